package bookmarks

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedNode is the YAML form of a tree used for fixtures and seeding.
// An entry is a folder when it sets `folder: true` or has children.
type SeedNode struct {
	ID       string     `yaml:"id,omitempty"`
	Title    string     `yaml:"title"`
	URL      string     `yaml:"url,omitempty"`
	Folder   bool       `yaml:"folder,omitempty"`
	Children []SeedNode `yaml:"children,omitempty"`
}

// IsFolder reports whether the seed entry describes a folder.
func (s *SeedNode) IsFolder() bool {
	return s.Folder || len(s.Children) > 0
}

// DecodeSeed reads a YAML list of seed nodes and validates it.
func DecodeSeed(r io.Reader) ([]SeedNode, error) {
	var nodes []SeedNode
	if err := yaml.NewDecoder(r).Decode(&nodes); err != nil {
		if errors.Is(err, io.EOF) {
			return []SeedNode{}, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i := range nodes {
		if err := nodes[i].validate("/"); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

func (s *SeedNode) validate(path string) error {
	if s.Title == "" {
		return fmt.Errorf("seed entry under %s: title is required", path)
	}
	here := path + s.Title
	if s.IsFolder() {
		if s.URL != "" {
			return fmt.Errorf("seed folder %s: folders cannot have a url", here)
		}
		for i := range s.Children {
			if err := s.Children[i].validate(here + "/"); err != nil {
				return err
			}
		}
		return nil
	}
	if s.URL == "" {
		return fmt.Errorf("seed bookmark %s: url is required", here)
	}
	return nil
}

// SeedForest converts seed entries into tree nodes. Entries without an id
// get a generated UUID; timestamps are set to now.
func SeedForest(nodes []SeedNode, userID string) []Node {
	now := time.Now().UTC()
	return seedForest(nodes, nil, userID, now)
}

func seedForest(nodes []SeedNode, parentID *string, userID string, now time.Time) []Node {
	out := make([]Node, 0, len(nodes))
	for _, s := range nodes {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta := Meta{
			ID:        id,
			Title:     s.Title,
			ParentID:  parentID,
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if s.IsFolder() {
			out = append(out, &Folder{
				Meta:     meta,
				Children: seedForest(s.Children, StringPtr(id), userID, now),
			})
			continue
		}
		out = append(out, &Leaf{Meta: meta, URL: s.URL})
	}
	return out
}
