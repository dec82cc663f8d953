package treeview

import (
	"bytes"
	_ "embed"
	"fmt"

	"treemark/internal/domain/models/bookmarks"
)

//go:embed seed.yaml
var initialSeed []byte

// InitialState returns the starter tree with every seeded folder expanded.
func InitialState() State {
	nodes, err := bookmarks.DecodeSeed(bytes.NewReader(initialSeed))
	if err != nil {
		panic(fmt.Sprintf("treeview: embedded seed: %v", err))
	}
	forest := bookmarks.SeedForest(nodes, "")

	var folders []string
	bookmarks.Walk(forest, func(n bookmarks.Node, _ *bookmarks.Folder, _ int) bool {
		if _, ok := n.(*bookmarks.Folder); ok {
			folders = append(folders, n.NodeID())
		}
		return true
	})

	return State{Bookmarks: forest, Expanded: NewExpanded(folders...)}
}
