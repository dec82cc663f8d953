package bookmarks

import (
	"context"
	"slices"
)

// Lookup fetches records by id. Ids with no record are left out of the
// result; order of the result is not significant.
type Lookup interface {
	Fetch(ctx context.Context, ids []string) ([]Bookmark, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, ids []string) ([]Bookmark, error)

func (f LookupFunc) Fetch(ctx context.Context, ids []string) ([]Bookmark, error) {
	return f(ctx, ids)
}

// Index is an in-memory Lookup over an already loaded flat collection.
type Index map[string]Bookmark

// NewIndex indexes records by id.
func NewIndex(records []Bookmark) Index {
	ix := make(Index, len(records))
	for _, r := range records {
		ix[r.ID] = r
	}
	return ix
}

// Fetch implements Lookup.
func (ix Index) Fetch(_ context.Context, ids []string) ([]Bookmark, error) {
	out := make([]Bookmark, 0, len(ids))
	for _, id := range ids {
		if r, ok := ix[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Assemble reconstructs the nested forest from flat records.
//
// Roots are the records without a parentId, in the order given. Below the
// roots the folder's children sequence drives the descent, fetched in one
// batch per folder through lookup, so a child listed by its folder is
// included even when its own parentId disagrees. Dangling child ids are
// skipped, as are ids already on the current path (cycles) and repeats
// within one folder. Folders deeper than maxDepth are returned without
// children; maxDepth <= 0 means unbounded.
func Assemble(ctx context.Context, records []Bookmark, lookup Lookup, maxDepth int) ([]Node, error) {
	a := &assembler{lookup: lookup, maxDepth: maxDepth, onPath: map[string]bool{}}

	forest := make([]Node, 0)
	for i := range records {
		if !records[i].IsRoot() {
			continue
		}
		n, err := a.build(ctx, &records[i], 0)
		if err != nil {
			return nil, err
		}
		forest = append(forest, n)
	}
	return forest, nil
}

type assembler struct {
	lookup   Lookup
	maxDepth int
	onPath   map[string]bool
}

func (a *assembler) build(ctx context.Context, rec *Bookmark, depth int) (Node, error) {
	if !rec.IsFolder {
		return &Leaf{Meta: rec.Meta(), URL: rec.URL}, nil
	}

	folder := &Folder{Meta: rec.Meta(), Children: []Node{}}
	if len(rec.Children) == 0 || (a.maxDepth > 0 && depth >= a.maxDepth) {
		return folder, nil
	}

	fetched, err := a.lookup.Fetch(ctx, rec.Children)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Bookmark, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	a.onPath[rec.ID] = true
	defer delete(a.onPath, rec.ID)

	seen := make(map[string]bool, len(rec.Children))
	for _, id := range rec.Children {
		child, ok := byID[id]
		if !ok || seen[id] || a.onPath[id] {
			continue
		}
		seen[id] = true

		n, err := a.build(ctx, child, depth+1)
		if err != nil {
			return nil, err
		}
		folder.Children = append(folder.Children, n)
	}
	return folder, nil
}

// Flatten converts a forest back into flat records in depth-first order.
// parentId and children are taken from the tree shape.
func Flatten(forest []Node) []Bookmark {
	var out []Bookmark
	Walk(forest, func(n Node, parent *Folder, _ int) bool {
		var parentID *string
		if parent != nil {
			parentID = StringPtr(parent.ID)
		}

		switch v := n.(type) {
		case *Folder:
			children := make([]string, 0, len(v.Children))
			for _, c := range v.Children {
				children = append(children, c.NodeID())
			}
			out = append(out, recordFromMeta(v.Meta, parentID, true, "", children))
		case *Leaf:
			out = append(out, recordFromMeta(v.Meta, parentID, false, v.URL, nil))
		}
		return true
	})
	return out
}

func recordFromMeta(m Meta, parentID *string, isFolder bool, url string, children []string) Bookmark {
	return Bookmark{
		ID:        m.ID,
		Title:     m.Title,
		URL:       url,
		IsFolder:  isFolder,
		Children:  slices.Clip(children),
		ParentID:  parentID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		UserID:    m.UserID,
	}
}
