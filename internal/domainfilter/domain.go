// Package domainfilter turns search-bar chips into field-scoped predicates
// ("domains") and applies them to in-memory collections.
package domainfilter

import "encoding/json"

// Filter chip types
const (
	TypeFilter  = "filter"
	TypeGroupBy = "groupby"
)

// SearchField is the synthetic field matched against the caller's flattened text
const SearchField = "search"

// SearchFilter is a chip selected in the search bar
type SearchFilter struct {
	Field string `json:"field" binding:"required"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
	Type  string `json:"type" binding:"required"` // filter, groupby
}

// Operator of a FilterDomain
type Operator string

const (
	OperatorEquals   Operator = "equals"
	OperatorContains Operator = "contains"
	OperatorIn       Operator = "in"
)

// FilterDomain is a predicate over one field. Single-value operators use
// Value; OperatorIn uses Values.
type FilterDomain struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string
}

// MarshalJSON renders value as a string, or as an array for OperatorIn
func (d FilterDomain) MarshalJSON() ([]byte, error) {
	out := struct {
		Field    string      `json:"field"`
		Operator Operator    `json:"operator"`
		Value    interface{} `json:"value"`
	}{Field: d.Field, Operator: d.Operator, Value: d.Value}
	if d.Operator == OperatorIn {
		out.Value = d.Values
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts value as a string or an array of strings
func (d *FilterDomain) UnmarshalJSON(data []byte) error {
	var in struct {
		Field    string          `json:"field"`
		Operator Operator        `json:"operator"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*d = FilterDomain{Field: in.Field, Operator: in.Operator}
	if len(in.Value) == 0 || string(in.Value) == "null" {
		return nil
	}
	if in.Value[0] == '[' {
		return json.Unmarshal(in.Value, &d.Values)
	}
	return json.Unmarshal(in.Value, &d.Value)
}

// candidates returns the values the domain accepts
func (d FilterDomain) candidates() []string {
	if d.Operator == OperatorIn {
		return d.Values
	}
	return []string{d.Value}
}

// BuildDomainFromFilters collapses filter chips into one domain per field.
// Chips on the same field become an OperatorIn domain (OR); distinct fields
// are ANDed by ApplyDomainFilter. Groupby chips are ignored.
func BuildDomainFromFilters(filters []SearchFilter) []FilterDomain {
	var order []string
	values := make(map[string][]string)

	for _, f := range filters {
		if f.Type != TypeFilter {
			continue
		}
		if _, seen := values[f.Field]; !seen {
			order = append(order, f.Field)
		}
		values[f.Field] = append(values[f.Field], f.Value)
	}

	domains := make([]FilterDomain, 0, len(order))
	for _, field := range order {
		vals := values[field]
		if len(vals) == 1 {
			op := OperatorEquals
			if field == SearchField {
				op = OperatorContains
			}
			domains = append(domains, FilterDomain{Field: field, Operator: op, Value: vals[0]})
			continue
		}
		domains = append(domains, FilterDomain{Field: field, Operator: OperatorIn, Values: vals})
	}
	return domains
}

// GetGroupByFields returns the fields of groupby chips in selection order
func GetGroupByFields(filters []SearchFilter) []string {
	var fields []string
	for _, f := range filters {
		if f.Type == TypeGroupBy {
			fields = append(fields, f.Field)
		}
	}
	return fields
}
