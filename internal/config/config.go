// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	ListenAddr             string
	DatabasePath           string
	BaseURL                string
	SecretKey              string
	DefaultLanguage        string
	DefaultIconSet         string
	DefaultSpeciesSet      string
	NavProviderURL         string
	APIKeys                []string
	DispatchConcurrency    int
	DispatchTimeoutSeconds int
	LogLevel               string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("BASE_URL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/fieldmap.db"
	}

	lang := os.Getenv("DEFAULT_LANGUAGE")
	if lang == "" {
		lang = "en"
	}

	iconSet := os.Getenv("DEFAULT_ICON_SET")
	if iconSet == "" {
		iconSet = "default"
	}

	speciesSet := os.Getenv("DEFAULT_SPECIES_SET")
	if speciesSet == "" {
		speciesSet = iconSet
	}

	navProvider := os.Getenv("NAV_PROVIDER_URL")
	if navProvider == "" {
		navProvider = "https://www.google.com/maps/search/?api=1&query={LAT},{LON}"
	}

	var apiKeys []string
	if raw := os.Getenv("API_KEYS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			apiKeys = append(apiKeys, s)
		}
	}

	concurrency, err := intEnv("DISPATCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	timeout, err := intEnv("DISPATCH_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		ListenAddr:             listenAddr,
		DatabasePath:           dbPath,
		BaseURL:                baseURL,
		SecretKey:              secret,
		DefaultLanguage:        lang,
		DefaultIconSet:         iconSet,
		DefaultSpeciesSet:      speciesSet,
		NavProviderURL:         navProvider,
		APIKeys:                apiKeys,
		DispatchConcurrency:    concurrency,
		DispatchTimeoutSeconds: timeout,
		LogLevel:               logLevel,
	}, nil
}

// IsAPIKey checks whether a presented key is in the configured list.
// Returns false when no API keys are configured.
func (c *Config) IsAPIKey(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range c.APIKeys {
		if k == key {
			return true
		}
	}
	return false
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, raw)
	}
	return n, nil
}
