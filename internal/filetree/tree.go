// Package filetree builds and browses a folder hierarchy over a flat,
// prefix-addressed object listing.
package filetree

import (
	"strings"

	"github.com/spcai/labcms/pkg/core"
)

// Node is a folder or file in the tree.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	IsFolder bool    `json:"isFolder"`
	Children []*Node `json:"children"`
	Path     string  `json:"path"`
	// Loaded is set once the folder's children have been fetched.
	Loaded bool `json:"loaded"`
	Open   bool `json:"open"`
}

// Build turns a listing of parentPath into nodes. Entry names are split on
// "/" and every path prefix is represented by exactly one node. A segment
// is a file only when it is the last one and the entry has a MIME type.
// Empty segments are skipped.
func Build(entries []core.ObjectEntry, parentPath string) []*Node {
	tree := []*Node{}
	index := make(map[string]*Node)
	parentPath = strings.Trim(parentPath, "/")

	for _, entry := range entries {
		parts := strings.Split(entry.Name, "/")
		level := &tree
		current := parentPath

		for i, part := range parts {
			if part == "" {
				continue
			}
			current = core.JoinObjectPath(current, part)
			isFile := i == len(parts)-1 && entry.IsFile()

			node, ok := index[current]
			if !ok {
				node = &Node{
					ID:       current,
					Name:     part,
					IsFolder: !isFile,
					Children: []*Node{},
					Path:     current,
				}
				index[current] = node
				*level = append(*level, node)
			}

			if node.IsFolder {
				level = &node.Children
			}
		}
	}
	return tree
}

// Find returns the node at path, searching depth first.
func Find(nodes []*Node, path string) *Node {
	for _, n := range nodes {
		if n.Path == path {
			return n
		}
		if n.IsFolder && strings.HasPrefix(path, n.Path+"/") {
			if found := Find(n.Children, path); found != nil {
				return found
			}
		}
	}
	return nil
}

// Count returns the number of nodes in the forest.
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Children)
	}
	return total
}

// Clone deep-copies a forest.
func Clone(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Children = Clone(n.Children)
		out[i] = &c
	}
	return out
}

// parentOf returns the folder containing path, or "" at the root.
func parentOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// baseName returns the last segment of path.
func baseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
