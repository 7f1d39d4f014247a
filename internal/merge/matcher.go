package merge

import (
	"strings"

	"github.com/dgallion1/uifuse/internal/uitree"
)

// Scoring weights. The values are empirical and load-bearing: changing
// them changes which widgets pair up across real dumps.
const (
	scoreIDMatch     = 0.4
	scoreClassExact  = 0.3
	scoreClassFamily = 0.2
	weightChildren   = 0.15
	weightFlags      = 0.15

	matchThreshold = 0.5
	proximityDepth = 2
)

// ClassFamilies groups widget classes that the two dump mechanisms
// report under different concrete names. Membership is substring
// containment on the simple class name, so "AppCompatTextView" falls
// into the same family as "TextView".
type ClassFamilies map[string][]string

// DefaultClassFamilies returns the built-in family table.
func DefaultClassFamilies() ClassFamilies {
	return ClassFamilies{
		"text":      {"TextView", "EditText", "TextInputEditText", "AppCompatTextView"},
		"button":    {"Button", "ImageButton", "AppCompatButton", "MaterialButton"},
		"image":     {"ImageView", "AppCompatImageView", "ImageButton"},
		"layout":    {"LinearLayout", "RelativeLayout", "FrameLayout", "ConstraintLayout"},
		"container": {"RecyclerView", "ListView", "ScrollView", "ViewPager"},
	}
}

// Similar reports whether both simple class names fall into one family.
func (f ClassFamilies) Similar(class1, class2 string) bool {
	if class1 == class2 {
		return true
	}
	for _, members := range f {
		in1, in2 := false, false
		for _, m := range members {
			if strings.Contains(class1, m) {
				in1 = true
			}
			if strings.Contains(class2, m) {
				in2 = true
			}
		}
		if in1 && in2 {
			return true
		}
	}
	return false
}

// matcher finds the attribute node for one geometry node. It owns the
// reservation table for a single merge pass: a claimed attribute node
// never pairs with a second geometry node.
type matcher struct {
	index    *AttributeIndex
	families ClassFamilies
	reserved map[int]bool // attribute node IDs claimed this pass
}

func newMatcher(index *AttributeIndex, families ClassFamilies) *matcher {
	return &matcher{
		index:    index,
		families: families,
		reserved: make(map[int]bool),
	}
}

type candidate struct {
	node  *uitree.Node
	score float64
}

// findBestMatch returns the winning attribute node for geo, reserving
// it, or nil when no candidate reaches the acceptance threshold. Ties
// resolve to the first-encountered candidate: id hits first, then the
// proximity walk in pre-order.
func (m *matcher) findBestMatch(geo, context *uitree.Node) *uitree.Node {
	var candidates []candidate

	if suffix := uitree.IDSuffix(geo.ResourceID); suffix != "" {
		for _, attr := range m.index.Lookup(suffix) {
			if !m.reserved[attr.ID] {
				candidates = append(candidates, candidate{attr, m.score(geo, attr, true)})
			}
		}
	}
	if context != nil {
		m.collectNearby(geo, context, 0, &candidates)
	}

	var best *candidate
	for i := range candidates {
		if best == nil || candidates[i].score > best.score {
			best = &candidates[i]
		}
	}
	if best == nil || best.score < matchThreshold {
		return nil
	}
	m.reserved[best.node.ID] = true
	return best.node
}

// collectNearby gathers unreserved candidates within proximityDepth of
// the current search context, whatever their id.
func (m *matcher) collectNearby(geo, root *uitree.Node, depth int, out *[]candidate) {
	if root == nil || depth > proximityDepth {
		return
	}
	if !m.reserved[root.ID] {
		if s := m.score(geo, root, false); s > 0 {
			*out = append(*out, candidate{root, s})
		}
	}
	for _, child := range root.Children {
		m.collectNearby(geo, child, depth+1, out)
	}
}

// score rates how well an attribute node stands in for a geometry node.
func (m *matcher) score(geo, attr *uitree.Node, sameID bool) float64 {
	score := 0.0

	if sameID {
		score += scoreIDMatch
	}

	geoClass := uitree.SimpleClass(geo.Class)
	attrClass := uitree.SimpleClass(attr.Class)
	switch {
	case geoClass == attrClass:
		score += scoreClassExact
	case m.families.Similar(geoClass, attrClass):
		score += scoreClassFamily
	}

	geoKids, attrKids := len(geo.Children), len(attr.Children)
	switch {
	case geoKids == attrKids:
		score += weightChildren
	case geoKids > 0 && attrKids > 0:
		lo, hi := geoKids, attrKids
		if lo > hi {
			lo, hi = hi, lo
		}
		score += weightChildren * float64(lo) / float64(hi)
	}

	agreeing := 0
	if geo.Clickable == attr.Clickable {
		agreeing++
	}
	if geo.Focusable == attr.Focusable {
		agreeing++
	}
	if geo.Enabled == attr.Enabled {
		agreeing++
	}
	if geo.Scrollable == attr.Scrollable {
		agreeing++
	}
	score += weightFlags * float64(agreeing) / 4

	return score
}
