package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing secret key",
			env:     map[string]string{"BASE_URL": "https://map.example.com"},
			wantErr: true,
		},
		{
			name:    "missing base url",
			env:     map[string]string{"SECRET_KEY": "s3cret"},
			wantErr: true,
		},
		{
			name: "required only, defaults applied",
			env: map[string]string{
				"SECRET_KEY": "s3cret",
				"BASE_URL":   "https://map.example.com/",
			},
			want: &Config{
				ListenAddr:             ":8080",
				DatabasePath:           "./data/fieldmap.db",
				BaseURL:                "https://map.example.com",
				SecretKey:              "s3cret",
				DefaultLanguage:        "en",
				DefaultIconSet:         "default",
				DefaultSpeciesSet:      "default",
				NavProviderURL:         "https://www.google.com/maps/search/?api=1&query={LAT},{LON}",
				APIKeys:                nil,
				DispatchConcurrency:    4,
				DispatchTimeoutSeconds: 15,
				LogLevel:               "info",
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"SECRET_KEY":               "s3cret",
				"BASE_URL":                 "https://map.example.com",
				"LISTEN_ADDR":              "127.0.0.1:9090",
				"DATABASE_PATH":            "/tmp/map.db",
				"DEFAULT_LANGUAGE":         "de",
				"DEFAULT_ICON_SET":         "crisp",
				"DEFAULT_SPECIES_SET":      "shiny",
				"NAV_PROVIDER_URL":         "https://nav.example.com/{LAT}/{LON}",
				"API_KEYS":                 "alpha, beta ,",
				"DISPATCH_CONCURRENCY":     "8",
				"DISPATCH_TIMEOUT_SECONDS": "30",
				"LOG_LEVEL":                "debug",
			},
			want: &Config{
				ListenAddr:             "127.0.0.1:9090",
				DatabasePath:           "/tmp/map.db",
				BaseURL:                "https://map.example.com",
				SecretKey:              "s3cret",
				DefaultLanguage:        "de",
				DefaultIconSet:         "crisp",
				DefaultSpeciesSet:      "shiny",
				NavProviderURL:         "https://nav.example.com/{LAT}/{LON}",
				APIKeys:                []string{"alpha", "beta"},
				DispatchConcurrency:    8,
				DispatchTimeoutSeconds: 30,
				LogLevel:               "debug",
			},
		},
		{
			name: "species set falls back to icon set",
			env: map[string]string{
				"SECRET_KEY":       "s3cret",
				"BASE_URL":         "https://map.example.com",
				"DEFAULT_ICON_SET": "crisp",
			},
			want: &Config{
				ListenAddr:             ":8080",
				DatabasePath:           "./data/fieldmap.db",
				BaseURL:                "https://map.example.com",
				SecretKey:              "s3cret",
				DefaultLanguage:        "en",
				DefaultIconSet:         "crisp",
				DefaultSpeciesSet:      "crisp",
				NavProviderURL:         "https://www.google.com/maps/search/?api=1&query={LAT},{LON}",
				DispatchConcurrency:    4,
				DispatchTimeoutSeconds: 15,
				LogLevel:               "info",
			},
		},
		{
			name: "invalid concurrency",
			env: map[string]string{
				"SECRET_KEY":           "s3cret",
				"BASE_URL":             "https://map.example.com",
				"DISPATCH_CONCURRENCY": "zero",
			},
			wantErr: true,
		},
		{
			name: "negative timeout",
			env: map[string]string{
				"SECRET_KEY":               "s3cret",
				"BASE_URL":                 "https://map.example.com",
				"DISPATCH_TIMEOUT_SECONDS": "-5",
			},
			wantErr: true,
		},
	}

	keys := []string{
		"SECRET_KEY", "BASE_URL", "LISTEN_ADDR", "DATABASE_PATH",
		"DEFAULT_LANGUAGE", "DEFAULT_ICON_SET", "DEFAULT_SPECIES_SET",
		"NAV_PROVIDER_URL", "API_KEYS", "DISPATCH_CONCURRENCY",
		"DISPATCH_TIMEOUT_SECONDS", "LOG_LEVEL",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range keys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsAPIKey(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		key  string
		want bool
	}{
		{
			name: "no keys configured",
			keys: nil,
			key:  "anything",
			want: false,
		},
		{
			name: "key in list",
			keys: []string{"alpha", "beta"},
			key:  "beta",
			want: true,
		},
		{
			name: "key not in list",
			keys: []string{"alpha", "beta"},
			key:  "gamma",
			want: false,
		},
		{
			name: "empty key never matches",
			keys: []string{""},
			key:  "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIKeys: tt.keys}
			if got := cfg.IsAPIKey(tt.key); got != tt.want {
				t.Errorf("IsAPIKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
