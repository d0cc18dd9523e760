package domainfilter

// Grouping labels
const (
	AllGroupKey       = "All"
	UndeterminedLabel = "Chưa xác định"
	GroupKeySeparator = " > "
)

// Groups is a flat group-key → records mapping. Keys holds the keys in the
// order their first record appeared.
type Groups[T any] struct {
	Keys  []string
	Items map[string][]T
}

func newGroups[T any]() Groups[T] {
	return Groups[T]{Items: make(map[string][]T)}
}

func (g *Groups[T]) add(key string, items ...T) {
	if _, ok := g.Items[key]; !ok {
		g.Keys = append(g.Keys, key)
		g.Items[key] = []T{}
	}
	g.Items[key] = append(g.Items[key], items...)
}

// Len returns the number of groups
func (g Groups[T]) Len() int { return len(g.Keys) }

// GroupOptions tunes GroupDataByFieldsWith
type GroupOptions struct {
	// Undetermined is the bucket for records with an empty group value
	Undetermined string
}

// GroupDataByFields groups records by one or more fields, flattening nested
// groups into "outer > inner" keys.
func GroupDataByFields[T any](data []T, groupBy []string, fields Fields[T]) Groups[T] {
	return GroupDataByFieldsWith(data, groupBy, fields, GroupOptions{})
}

// GroupDataByFieldsWith is GroupDataByFields with a custom undetermined label
func GroupDataByFieldsWith[T any](data []T, groupBy []string, fields Fields[T], opts GroupOptions) Groups[T] {
	if opts.Undetermined == "" {
		opts.Undetermined = UndeterminedLabel
	}

	groups := newGroups[T]()
	if len(groupBy) == 0 {
		groups.add(AllGroupKey, data...)
		return groups
	}

	first := groupBySingle(data, groupBy[0], fields, opts.Undetermined)
	if len(groupBy) == 1 {
		return first
	}

	for _, outer := range first.Keys {
		inner := GroupDataByFieldsWith(first.Items[outer], groupBy[1:], fields, opts)
		for _, key := range inner.Keys {
			groups.add(outer+GroupKeySeparator+key, inner.Items[key]...)
		}
	}
	return groups
}

func groupBySingle[T any](data []T, field string, fields Fields[T], undetermined string) Groups[T] {
	groups := newGroups[T]()
	for _, item := range data {
		key := fields.Get(item, field)
		if key == "" {
			key = undetermined
		}
		groups.add(key, item)
	}
	return groups
}
