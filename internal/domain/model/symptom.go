package model

import (
	"strings"
	"unicode"
)

// CanonicalSymptom lower-cases a symptom token, trims it and joins its words
// with underscores ("Mild Fever" -> "mild_fever").
func CanonicalSymptom(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	return strings.Join(fields, "_")
}

// CanonicalSymptoms canonicalizes every token and drops empties and
// duplicates, keeping the first occurrence's position.
func CanonicalSymptoms(symptoms []string) []string {
	out := make([]string, 0, len(symptoms))
	seen := make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		c := CanonicalSymptom(s)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// MergeSymptoms returns the canonical union of a then b.
func MergeSymptoms(a, b []string) []string {
	all := make([]string, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return CanonicalSymptoms(all)
}

// HumanSymptoms renders canonical tokens for prose ("mild_fever, cough" -> "mild fever, cough").
func HumanSymptoms(symptoms []string) string {
	parts := make([]string, len(symptoms))
	for i, s := range symptoms {
		parts[i] = strings.ReplaceAll(s, "_", " ")
	}
	return strings.Join(parts, ", ")
}
