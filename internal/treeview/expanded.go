package treeview

import (
	"maps"
	"slices"
)

// Expanded is the set of folder ids shown open. It is view state only and
// never changes the forest. The zero value is an empty set; methods return
// new sets.
type Expanded struct {
	ids map[string]struct{}
}

// NewExpanded builds a set from ids.
func NewExpanded(ids ...string) Expanded {
	return Expanded{}.With(ids...)
}

// Has reports whether id is expanded.
func (e Expanded) Has(id string) bool {
	_, ok := e.ids[id]
	return ok
}

// Toggle flips membership of id.
func (e Expanded) Toggle(id string) Expanded {
	if e.Has(id) {
		return e.Without(id)
	}
	return e.With(id)
}

// With adds ids.
func (e Expanded) With(ids ...string) Expanded {
	out := e.clone()
	for _, id := range ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Without removes ids.
func (e Expanded) Without(ids ...string) Expanded {
	out := e.clone()
	for _, id := range ids {
		delete(out.ids, id)
	}
	return out
}

// IDs returns the members in sorted order.
func (e Expanded) IDs() []string {
	return slices.Sorted(maps.Keys(e.ids))
}

func (e Expanded) clone() Expanded {
	out := Expanded{ids: make(map[string]struct{}, len(e.ids)+1)}
	maps.Copy(out.ids, e.ids)
	return out
}
