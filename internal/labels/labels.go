// Package labels holds the closed disease-label taxonomy shared by both
// classifiers and the reconciler. Every adapter output passes through
// Canonical before any comparison or lookup.
package labels

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Canonical label set.
const (
	Botrytis    = "Botrytis"
	Xanthomonas = "Xanthomonas"
	Healthy     = "Healthy"
	Unknown     = "Unknown"
)

// defaultSynonyms maps accent-stripped lowercase aliases to canonical labels.
// Numeric entries are the class codes the trained models emit.
var defaultSynonyms = map[string]string{
	"botrytis":     Botrytis,
	"botritis":     Botrytis,
	"moho gris":    Botrytis,
	"0":            Botrytis,
	"xanthomonas":  Xanthomonas,
	"xantomonas":   Xanthomonas,
	"mancha foliar": Xanthomonas,
	"2":            Xanthomonas,
	"healthy":      Healthy,
	"sana":         Healthy,
	"sano":         Healthy,
	"saludable":    Healthy,
	"1":            Healthy,
}

// Taxonomy resolves free-text or coded classifier outputs to canonical labels.
type Taxonomy struct {
	synonyms map[string]string
}

// NewTaxonomy builds the default taxonomy.
func NewTaxonomy() *Taxonomy {
	syn := make(map[string]string, len(defaultSynonyms))
	for k, v := range defaultSynonyms {
		syn[k] = v
	}
	return &Taxonomy{synonyms: syn}
}

type synonymFile struct {
	Synonyms map[string]string `yaml:"synonyms"`
}

// NewTaxonomyFromFile builds the default taxonomy extended with aliases from
// a YAML file. Aliases in the file win over the built-in table.
func NewTaxonomyFromFile(path string) (*Taxonomy, error) {
	t := NewTaxonomy()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonym file: %w", err)
	}
	var parsed synonymFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse synonym file: %w", err)
	}

	for alias, label := range parsed.Synonyms {
		canon := strings.TrimSpace(label)
		switch canon {
		case Botrytis, Xanthomonas, Healthy, Unknown:
			t.synonyms[normalizeKey(alias)] = canon
		default:
			return nil, fmt.Errorf("synonym %q maps to unknown label %q", alias, label)
		}
	}
	return t, nil
}

// Canonical maps a raw label string to the closed taxonomy. Unrecognized
// values resolve to Unknown rather than erroring.
func (t *Taxonomy) Canonical(raw string) string {
	if label, ok := t.synonyms[normalizeKey(raw)]; ok {
		return label
	}
	return Unknown
}

// Same reports whether two raw labels resolve to the same canonical label.
func (t *Taxonomy) Same(a, b string) bool {
	return t.Canonical(a) == t.Canonical(b)
}

// affirmativeTokens is the set of answers treated as "yes" when building
// the tabular feature vector.
var affirmativeTokens = map[string]struct{}{
	"si": {}, "yes": {}, "true": {}, "1": {}, "y": {},
}

// IsAffirmative reports whether a recorded survey answer counts as yes.
// Matching is case- and accent-insensitive.
func IsAffirmative(answer string) bool {
	_, ok := affirmativeTokens[normalizeKey(answer)]
	return ok
}

// normalizeKey lowercases, trims, and strips diacritics so "Sí" and "si"
// compare equal.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped := stripAccent(r); mapped >= 0 {
			b.WriteRune(mapped)
		}
	}
	return b.String()
}

func stripAccent(r rune) rune {
	switch r {
	case 'á', 'à', 'ä', 'â':
		return 'a'
	case 'é', 'è', 'ë', 'ê':
		return 'e'
	case 'í', 'ì', 'ï', 'î':
		return 'i'
	case 'ó', 'ò', 'ö', 'ô':
		return 'o'
	case 'ú', 'ù', 'ü', 'û':
		return 'u'
	case 'ñ':
		return 'n'
	}
	if unicode.IsMark(r) {
		return -1
	}
	return r
}
