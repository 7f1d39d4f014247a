// Package query answers point and substring lookups over a widget tree.
package query

import (
	"strings"

	"github.com/dgallion1/uifuse/internal/uitree"
)

// Hit is one search result: the matching node plus the summary path
// from the root down to it, for locating the node in a rendered tree.
type Hit struct {
	Node *uitree.Node
	Path []string
}

// ElementAt returns the node whose bounds contain the point with the
// smallest area, or nil when nothing contains it. Nodes without parsed
// bounds never qualify; area ties resolve to the first in pre-order.
func ElementAt(root *uitree.Node, x, y int) *uitree.Node {
	var best *uitree.Node
	uitree.Walk(root, func(n *uitree.Node) bool {
		if n.HasBounds && n.Bounds.Contains(x, y) {
			if best == nil || n.Bounds.Area() < best.Bounds.Area() {
				best = n
			}
		}
		return true
	})
	return best
}

// Search collects, in pre-order, every node whose class, resource id,
// text, or content description contains the query, case-insensitively.
// An empty query matches nothing.
func Search(root *uitree.Node, query string) []Hit {
	query = strings.ToLower(query)
	if query == "" || root == nil {
		return nil
	}
	var hits []Hit
	searchNode(root, query, nil, &hits)
	return hits
}

func searchNode(n *uitree.Node, query string, path []string, hits *[]Hit) {
	var here []string
	here = append(here, path...)
	here = append(here, n.Summary())

	if matchesQuery(n, query) {
		*hits = append(*hits, Hit{Node: n, Path: copyPath(here)})
	}
	for _, child := range n.Children {
		searchNode(child, query, here, hits)
	}
}

func matchesQuery(n *uitree.Node, query string) bool {
	return strings.Contains(strings.ToLower(n.ResourceID), query) ||
		strings.Contains(strings.ToLower(n.Text), query) ||
		strings.Contains(strings.ToLower(n.Class), query) ||
		strings.Contains(strings.ToLower(n.ContentDesc), query)
}

func copyPath(path []string) []string {
	out := make([]string, len(path))
	copy(out, path)
	return out
}
