// Package i18n resolves localized strings from embedded locale files.
//
// Every lookup takes an explicit language tag; there is no process-wide
// current language. The webhook renderer binds a hook's configured
// language for the duration of a single render and nothing else.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Bundle holds the string tables for all known languages.
type Bundle struct {
	tables   map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
	fallback string
}

// NewBundle loads the embedded locale files. fallback is the language used
// when a requested tag matches nothing.
func NewBundle(fallback string) (*Bundle, error) {
	b := &Bundle{
		tables:   make(map[string]map[string]string),
		fallback: fallback,
	}

	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		table := make(map[string]string)
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale file name %q is not a language tag: %w", name, err)
		}
		b.tables[name] = table
		b.tags = append(b.tags, tag)
	}
	if len(b.tags) == 0 {
		return nil, fmt.Errorf("no locale files embedded")
	}
	if _, ok := b.tables[fallback]; !ok {
		return nil, fmt.Errorf("fallback language %q has no locale file", fallback)
	}

	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Languages returns the language codes the bundle was built with.
func (b *Bundle) Languages() []string {
	langs := make([]string, 0, len(b.tables))
	for name := range b.tables {
		langs = append(langs, name)
	}
	return langs
}

// Has reports whether the key exists in the given language table or the
// fallback table.
func (b *Bundle) Has(lang, key string) bool {
	if _, ok := b.table(lang)[key]; ok {
		return true
	}
	_, ok := b.tables[b.fallback][key]
	return ok
}

// Resolve returns the localized string for key, with {%1}-style positional
// placeholders substituted by args. An unknown key resolves to the key
// itself so a broken template still renders something traceable.
func (b *Bundle) Resolve(lang, key string, args ...string) string {
	s, ok := b.table(lang)[key]
	if !ok {
		s, ok = b.tables[b.fallback][key]
	}
	if !ok {
		return key
	}
	for i, arg := range args {
		s = strings.ReplaceAll(s, fmt.Sprintf("{%%%d}", i+1), arg)
	}
	return s
}

func (b *Bundle) table(lang string) map[string]string {
	if table, ok := b.tables[lang]; ok {
		return table
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return b.tables[b.fallback]
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No {
		return b.tables[b.fallback]
	}
	return b.tables[b.tags[idx].String()]
}
