package domainfilter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fields maps a field name to an accessor returning the field as a string.
// A field without an accessor reads as the empty string.
type Fields[T any] map[string]func(T) string

// Get returns the named field of item, or "" when the field is unknown
func (f Fields[T]) Get(item T, field string) string {
	if get, ok := f[field]; ok && get != nil {
		return get(item)
	}
	return ""
}

// ApplyDomainFilter keeps the records satisfying every domain. Matching is
// case-insensitive. The search field is matched as a substring of
// searchText(item) rather than read through fields.
func ApplyDomainFilter[T any](data []T, domains []FilterDomain, fields Fields[T], searchText func(T) string) []T {
	if len(domains) == 0 {
		return data
	}

	// Caser is stateful, one per call
	lower := cases.Lower(language.Und)

	type prepared struct {
		field    string
		operator Operator
		values   []string
	}
	preds := make([]prepared, 0, len(domains))
	for _, d := range domains {
		cands := d.candidates()
		vals := make([]string, len(cands))
		for i, v := range cands {
			vals[i] = lower.String(v)
		}
		preds = append(preds, prepared{field: d.Field, operator: d.Operator, values: vals})
	}

	out := make([]T, 0, len(data))
	for _, item := range data {
		keep := true
		for _, p := range preds {
			if p.field == SearchField {
				text := ""
				if searchText != nil {
					text = lower.String(searchText(item))
				}
				if !anyMatch(p.values, func(v string) bool { return strings.Contains(text, v) }) {
					keep = false
					break
				}
				continue
			}

			actual := lower.String(fields.Get(item, p.field))
			var ok bool
			switch p.operator {
			case OperatorContains:
				ok = anyMatch(p.values, func(v string) bool { return strings.Contains(actual, v) })
			default: // equals, in
				ok = anyMatch(p.values, func(v string) bool { return actual == v })
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, item)
		}
	}
	return out
}

func anyMatch(values []string, match func(string) bool) bool {
	for _, v := range values {
		if match(v) {
			return true
		}
	}
	return false
}
