// Package i18n holds the display strings of the portal in every supported
// language. Tables are built once at package init and never mutated.
package i18n

import (
	"sort"
	"strings"
)

type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
	Telugu  Language = "te"
)

// Default is the language used when a session has not chosen one.
const Default = English

// Option is a selectable language as shown in the header switcher.
type Option struct {
	Code  Language
	Label string
}

var options = []Option{
	{Code: English, Label: "English"},
	{Code: Hindi, Label: "हिंदी"},
	{Code: Telugu, Label: "తెలుగు"},
}

// Languages returns the supported languages in display order.
func Languages() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// ParseLanguage validates a language code. Codes are case-insensitive.
func ParseLanguage(code string) (Language, bool) {
	lang := Language(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := tables[lang]; ok {
		return lang, true
	}
	return "", false
}

// Lookup returns the string for key in lang and whether it exists.
func Lookup(lang Language, key string) (string, bool) {
	table, ok := tables[lang]
	if !ok {
		return "", false
	}
	s, ok := table[key]
	return s, ok
}

// Get returns the string for key in lang. Missing entries fall back to
// English and then to the key itself so a page never renders a blank label.
func Get(lang Language, key string) string {
	if s, ok := Lookup(lang, key); ok && s != "" {
		return s
	}
	if s, ok := Lookup(Default, key); ok && s != "" {
		return s
	}
	return key
}

// Translator binds Get to one language, for use as a template function.
func Translator(lang Language) func(key string) string {
	return func(key string) string { return Get(lang, key) }
}

// Keys returns every key of the English table, sorted.
func Keys() []string {
	keys := make([]string, 0, len(tables[Default]))
	for k := range tables[Default] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
