package bookmarks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treemark/internal/domain/models/bookmarks"
)

func kinds(r *bookmarks.Report) []bookmarks.IssueKind {
	out := make([]bookmarks.IssueKind, 0, len(r.Issues))
	for _, i := range r.Issues {
		out = append(out, i.Kind)
	}
	return out
}

func TestCheckConsistency(t *testing.T) {
	tests := []struct {
		name    string
		records []bookmarks.Bookmark
		want    []bookmarks.IssueKind
	}{
		{
			name:    "consistent forest",
			records: sampleRecords(),
			want:    []bookmarks.IssueKind{},
		},
		{
			name: "dangling child",
			records: []bookmarks.Bookmark{
				folder("a", "A", nil, "gone"),
			},
			want: []bookmarks.IssueKind{bookmarks.IssueDanglingChild},
		},
		{
			name: "orphan after shallow delete",
			records: []bookmarks.Bookmark{
				leaf("x", "X", "https://x.test", p("deleted-folder")),
			},
			want: []bookmarks.IssueKind{bookmarks.IssueMissingParent},
		},
		{
			name: "unlisted child",
			records: []bookmarks.Bookmark{
				folder("a", "A", nil),
				leaf("x", "X", "https://x.test", p("a")),
			},
			want: []bookmarks.IssueKind{bookmarks.IssueUnlistedChild},
		},
		{
			name: "parent mismatch and duplicate",
			records: []bookmarks.Bookmark{
				folder("a", "A", nil, "x", "x"),
				leaf("x", "X", "https://x.test", nil),
			},
			want: []bookmarks.IssueKind{bookmarks.IssueParentMismatch, bookmarks.IssueDuplicateChild},
		},
		{
			name: "leaf parent with children",
			records: []bookmarks.Bookmark{
				{ID: "l", Title: "L", URL: "https://l.test", Children: []string{"x"}},
				leaf("x", "X", "https://x.test", p("l")),
			},
			want: []bookmarks.IssueKind{bookmarks.IssueLeafChildren, bookmarks.IssueParentNotFolder},
		},
		{
			name: "cycle",
			records: []bookmarks.Bookmark{
				folder("a", "A", p("b"), "b"),
				folder("b", "B", p("a"), "a"),
			},
			want: []bookmarks.IssueKind{bookmarks.IssueCycle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := bookmarks.CheckConsistency(tt.records)
			assert.Equal(t, len(tt.records), report.Checked)
			assert.ElementsMatch(t, tt.want, kinds(report))
		})
	}
}

func TestRepair_RestoresConsistency(t *testing.T) {
	records := []bookmarks.Bookmark{
		folder("a", "A", nil, "x", "gone", "x"),
		folder("b", "B", nil, "y"),
		leaf("x", "X", "https://x.test", p("b")),   // listed by a only
		leaf("y", "Y", "https://y.test", p("a")),   // listed by b only
		leaf("z", "Z", "https://z.test", p("a")),   // listed by nobody
		leaf("o", "O", "https://o.test", p("nope")), // orphan
		folder("c1", "C1", p("c2"), "c2"),
		folder("c2", "C2", p("c1"), "c1"),
	}

	fixed, changed := bookmarks.Repair(records)

	report := bookmarks.CheckConsistency(fixed)
	require.True(t, report.Consistent(), "issues left: %+v", report.Issues)

	ix := bookmarks.NewIndex(fixed)
	assert.Equal(t, []string{"x", "z"}, ix["a"].Children)
	assert.Equal(t, "a", *ix["x"].ParentID)
	assert.Equal(t, "b", *ix["y"].ParentID)
	assert.Nil(t, ix["o"].ParentID)
	assert.ElementsMatch(t, []string{"a", "x", "y", "o", "c1", "c2"}, changed)

	// Input is untouched.
	assert.Equal(t, []string{"x", "gone", "x"}, records[0].Children)
}

func TestRepair_NoopOnConsistentInput(t *testing.T) {
	_, changed := bookmarks.Repair(sampleRecords())
	assert.Empty(t, changed)
}
