// Package catalog defines the closed vocabularies that classify products:
// category, size, color and gender.
//
// Every vocabulary offers two ways to interpret raw input. Write paths use
// Require, which rejects unknown codes with a validation error. Read paths use
// Optional, which turns an unknown code into "no filter".
package catalog

import (
	"strings"

	"github.com/notrya/storefront/internal/domain/apperr"
)

// Term is a single vocabulary entry.
type Term[T ~string] struct {
	Code  T
	Label string
}

// Vocabulary is an ordered, closed set of codes with display labels.
type Vocabulary[T ~string] struct {
	name  string
	terms []Term[T]
	index map[string]int
}

func newVocabulary[T ~string](name string, terms ...Term[T]) *Vocabulary[T] {
	v := &Vocabulary[T]{
		name:  name,
		terms: terms,
		index: make(map[string]int, len(terms)),
	}
	for i, t := range terms {
		v.index[string(t.Code)] = i
	}
	return v
}

// Name of the vocabulary, used as the field name in validation errors.
func (v *Vocabulary[T]) Name() string { return v.name }

// Parse interprets raw as a code. Matching ignores case and surrounding
// whitespace.
func (v *Vocabulary[T]) Parse(raw string) (T, bool) {
	i, ok := v.index[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		var zero T
		return zero, false
	}
	return v.terms[i].Code, true
}

// Require parses raw or fails with a validation error naming field.
func (v *Vocabulary[T]) Require(field, raw string) (T, error) {
	if strings.TrimSpace(raw) == "" {
		var zero T
		return zero, apperr.Invalid(field, "is required")
	}
	code, ok := v.Parse(raw)
	if !ok {
		return code, apperr.Invalid(field, "unknown %s %q", v.name, raw)
	}
	return code, nil
}

// Optional parses raw and returns nil when it is empty or unknown.
func (v *Vocabulary[T]) Optional(raw string) *T {
	code, ok := v.Parse(raw)
	if !ok {
		return nil
	}
	return &code
}

// Valid reports whether code belongs to the vocabulary.
func (v *Vocabulary[T]) Valid(code T) bool {
	_, ok := v.index[string(code)]
	return ok
}

// Label returns the display label of code, or the code itself when unknown.
func (v *Vocabulary[T]) Label(code T) string {
	if i, ok := v.index[string(code)]; ok {
		return v.terms[i].Label
	}
	return string(code)
}

// Rank is the declaration position of code, used for stable ordering.
// Unknown codes sort last.
func (v *Vocabulary[T]) Rank(code T) int {
	if i, ok := v.index[string(code)]; ok {
		return i
	}
	return len(v.terms)
}

// Terms returns the entries in declaration order.
func (v *Vocabulary[T]) Terms() []Term[T] {
	out := make([]Term[T], len(v.terms))
	copy(out, v.terms)
	return out
}
