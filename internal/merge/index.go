// Package merge reconciles a geometry tree with an attribute tree: the
// geometry side keeps its hierarchy and pixel bounds, the attribute
// side donates text, content descriptions, and state flags.
package merge

import "github.com/dgallion1/uifuse/internal/uitree"

// AttributeIndex maps id-suffix to the attribute nodes sharing it, in
// pre-order. It is the primary acceleration structure for exact-id
// candidate lookup; nodes without a resource id stay reachable through
// the proximity search.
type AttributeIndex struct {
	byID map[string][]*uitree.Node
}

// BuildIndex walks the attribute tree once and indexes every node that
// carries a resource id.
func BuildIndex(root *uitree.Node) *AttributeIndex {
	idx := &AttributeIndex{byID: make(map[string][]*uitree.Node)}
	uitree.Walk(root, func(n *uitree.Node) bool {
		if suffix := uitree.IDSuffix(n.ResourceID); suffix != "" {
			idx.byID[suffix] = append(idx.byID[suffix], n)
		}
		return true
	})
	return idx
}

// Lookup returns the indexed nodes for an id-suffix in insertion order.
func (idx *AttributeIndex) Lookup(suffix string) []*uitree.Node {
	return idx.byID[suffix]
}

// Size returns the number of distinct indexed suffixes.
func (idx *AttributeIndex) Size() int {
	return len(idx.byID)
}
