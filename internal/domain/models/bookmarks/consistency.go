package bookmarks

import (
	"fmt"
	"slices"
)

// IssueKind classifies a broken parent/child link.
type IssueKind string

const (
	IssueDanglingChild   IssueKind = "dangling_child"     // folder lists an id with no record
	IssueDuplicateChild  IssueKind = "duplicate_child"    // folder lists the same id twice
	IssueParentMismatch  IssueKind = "parent_mismatch"    // listed child names another parent
	IssueMissingParent   IssueKind = "missing_parent"     // parentId names no record (orphan)
	IssueParentNotFolder IssueKind = "parent_not_folder"  // parentId names a leaf
	IssueUnlistedChild   IssueKind = "unlisted_child"     // parent exists but does not list the record
	IssueLeafChildren    IssueKind = "leaf_with_children" // leaf carries a children array
	IssueCycle           IssueKind = "cycle"              // parent chain loops back
)

// Issue is one consistency violation.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	ID        string    `json:"id"`
	RelatedID string    `json:"relatedId,omitempty"`
	Message   string    `json:"message"`
}

// Report is the outcome of a consistency check or repair.
type Report struct {
	Checked  int     `json:"checked"`
	Issues   []Issue `json:"issues"`
	Repaired int     `json:"repaired"`
}

// Consistent reports whether no issues were found.
func (r *Report) Consistent() bool {
	return len(r.Issues) == 0
}

// CheckConsistency verifies bidirectional parent/child agreement over a
// flat collection.
func CheckConsistency(records []Bookmark) *Report {
	ix := NewIndex(records)
	report := &Report{Checked: len(records), Issues: []Issue{}}
	add := func(kind IssueKind, id, related, format string, args ...any) {
		report.Issues = append(report.Issues, Issue{
			Kind:      kind,
			ID:        id,
			RelatedID: related,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	for _, r := range records {
		if !r.IsFolder && len(r.Children) > 0 {
			add(IssueLeafChildren, r.ID, "", "leaf %s lists %d children", r.ID, len(r.Children))
		}

		seen := make(map[string]bool, len(r.Children))
		for _, c := range r.Children {
			if seen[c] {
				add(IssueDuplicateChild, r.ID, c, "folder %s lists %s more than once", r.ID, c)
				continue
			}
			seen[c] = true

			child, ok := ix[c]
			if !ok {
				add(IssueDanglingChild, r.ID, c, "folder %s lists missing record %s", r.ID, c)
				continue
			}
			if child.ParentID == nil || *child.ParentID != r.ID {
				add(IssueParentMismatch, c, r.ID, "record %s is listed by %s but names parent %s", c, r.ID, describeParent(child.ParentID))
			}
		}

		if r.ParentID == nil {
			continue
		}
		parent, ok := ix[*r.ParentID]
		switch {
		case !ok:
			add(IssueMissingParent, r.ID, *r.ParentID, "record %s names missing parent %s", r.ID, *r.ParentID)
		case !parent.IsFolder:
			add(IssueParentNotFolder, r.ID, parent.ID, "record %s names leaf %s as parent", r.ID, parent.ID)
		case !parent.HasChild(r.ID):
			add(IssueUnlistedChild, r.ID, parent.ID, "parent %s does not list record %s", parent.ID, r.ID)
		}
	}

	for _, id := range findCycles(ix, records) {
		add(IssueCycle, id, "", "parent chain of %s loops back on itself", id)
	}

	return report
}

func describeParent(p *string) string {
	if p == nil {
		return "<root>"
	}
	return *p
}

// findCycles returns one id per parent-chain cycle.
func findCycles(ix Index, records []Bookmark) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(records))
	var cycles []string

	for _, r := range records {
		var path []string
		id := r.ID
		for {
			if state[id] == done {
				break
			}
			if state[id] == visiting {
				cycles = append(cycles, id)
				break
			}
			state[id] = visiting
			path = append(path, id)

			rec, ok := ix[id]
			if !ok || rec.ParentID == nil {
				break
			}
			if _, ok := ix[*rec.ParentID]; !ok {
				break
			}
			id = *rec.ParentID
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return cycles
}

// Repair returns a copy of records with parent/child agreement restored and
// the ids of the records whose stored form changed.
//
// A folder's children sequence decides ownership. When several folders
// list the same record, the one named by the record's parentId wins,
// otherwise the first in record order. Records no folder lists keep a valid
// parentId (and are appended to that folder) or become roots. Cycles are
// broken by promoting one member to the root.
func Repair(records []Bookmark) ([]Bookmark, []string) {
	fixed := make([]Bookmark, len(records))
	pos := make(map[string]int, len(records))
	for i, r := range records {
		fixed[i] = r.Clone()
		pos[r.ID] = i
	}

	// Leaves never own children.
	for i := range fixed {
		if !fixed[i].IsFolder && len(fixed[i].Children) > 0 {
			fixed[i].Children = nil
		}
	}

	claims := make(map[string][]string)
	for _, f := range fixed {
		if !f.IsFolder {
			continue
		}
		for _, c := range f.Children {
			if _, ok := pos[c]; !ok || c == f.ID || slices.Contains(claims[c], f.ID) {
				continue
			}
			claims[c] = append(claims[c], f.ID)
		}
	}

	owner := make(map[string]string, len(claims))
	for c, folders := range claims {
		declared := fixed[pos[c]].ParentID
		if declared != nil && slices.Contains(folders, *declared) {
			owner[c] = *declared
		} else {
			owner[c] = folders[0]
		}
	}

	for i := range fixed {
		f := &fixed[i]
		if !f.IsFolder {
			continue
		}
		kept := make([]string, 0, len(f.Children))
		for _, c := range f.Children {
			if owner[c] == f.ID && !slices.Contains(kept, c) {
				kept = append(kept, c)
			}
		}
		f.Children = kept
	}

	for i := range fixed {
		r := &fixed[i]
		if o, ok := owner[r.ID]; ok {
			r.ParentID = StringPtr(o)
			continue
		}
		if r.ParentID == nil {
			continue
		}
		p, ok := pos[*r.ParentID]
		if ok && fixed[p].IsFolder && *r.ParentID != r.ID {
			fixed[p].Children = append(fixed[p].Children, r.ID)
			continue
		}
		r.ParentID = nil
	}

	for {
		cycles := findCycles(NewIndex(fixed), fixed)
		if len(cycles) == 0 {
			break
		}
		for _, id := range cycles {
			r := &fixed[pos[id]]
			if r.ParentID == nil {
				continue
			}
			parent := &fixed[pos[*r.ParentID]]
			parent.Children = slices.DeleteFunc(parent.Children, func(c string) bool { return c == id })
			r.ParentID = nil
		}
	}

	var changed []string
	for i := range fixed {
		if !SameParent(fixed[i].ParentID, records[i].ParentID) || !slices.Equal(fixed[i].Children, records[i].Children) {
			changed = append(changed, fixed[i].ID)
		}
	}
	return fixed, changed
}
