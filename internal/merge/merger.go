package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/uifuse/internal/uitree"
)

// ErrMissingSource is returned when a merge is asked to run without
// both source trees.
var ErrMissingSource = errors.New("merge: both source trees are required")

// Stats summarizes one reconciliation pass over the geometry tree.
type Stats struct {
	Matched   int    `json:"matched"`
	Unmatched int    `json:"unmatched"`
	Total     int    `json:"total"`
	MatchRate string `json:"match_rate"`
}

// Result carries the merged tree and everything a caller needs to judge
// the pass. Tree is the (possibly anchored) geometry tree, annotated in
// place.
type Result struct {
	Tree  *uitree.Node
	Stats Stats

	// Anchor outcomes: false means the corresponding tree had no
	// content anchor and was merged whole.
	GeometryAnchored  bool
	AttributeAnchored bool
}

// Merger reconciles geometry trees with attribute trees.
type Merger struct {
	families ClassFamilies
	log      *slog.Logger
}

// New returns a Merger using the given class-family table; nil selects
// the built-in table.
func New(families ClassFamilies, log *slog.Logger) *Merger {
	if families == nil {
		families = DefaultClassFamilies()
	}
	return &Merger{families: families, log: log}
}

// Merge annotates the geometry tree in place with text and state copied
// from the attribute tree. The attribute tree is consumed by the pass:
// matched nodes are reserved against reuse, so every call needs a
// freshly parsed attribute tree.
func (m *Merger) Merge(geometry, attribute *uitree.Node) (*Result, error) {
	if geometry == nil || attribute == nil {
		return nil, ErrMissingSource
	}

	res := &Result{GeometryAnchored: true, AttributeAnchored: true}

	geoRoot := findContentAnchor(geometry)
	if geoRoot == nil {
		geoRoot = geometry
		res.GeometryAnchored = false
		m.log.Warn("geometry tree has no content anchor, merging whole tree")
	}
	attrRoot := findContentAnchor(attribute)
	if attrRoot == nil {
		attrRoot = attribute
		res.AttributeAnchored = false
		m.log.Warn("attribute tree has no content anchor, merging whole tree")
	}

	matcher := newMatcher(BuildIndex(attrRoot), m.families)
	m.reconcile(geoRoot, attrRoot, matcher, &res.Stats, 0)

	res.Tree = geoRoot
	res.Stats.Total = res.Stats.Matched + res.Stats.Unmatched
	res.Stats.MatchRate = matchRate(res.Stats.Matched, res.Stats.Total)

	m.log.Info("merge complete",
		"matched", res.Stats.Matched,
		"unmatched", res.Stats.Unmatched,
		"match_rate", res.Stats.MatchRate)
	return res, nil
}

// Passthrough wraps a single-source tree in a Result with zero
// statistics, for captures where only one dump was available.
func Passthrough(tree *uitree.Node) *Result {
	return &Result{Tree: tree, Stats: Stats{MatchRate: "0%"}}
}

// reconcile walks the geometry tree. A matched node adopts the
// attribute node's text and state and narrows the search context for
// its children; a miss keeps the parent's context so descendants can
// still pair up.
func (m *Merger) reconcile(geo, context *uitree.Node, matcher *matcher, st *Stats, depth int) {
	if geo == nil {
		return
	}

	matched := matcher.findBestMatch(geo, context)
	if matched != nil {
		st.Matched++
		supplement(geo, matched)
		m.log.Debug("matched",
			"geometry", geo.Summary(), "attribute", matched.Summary(), "depth", depth)
		for _, child := range geo.Children {
			m.reconcile(child, matched, matcher, st, depth+1)
		}
		return
	}

	st.Unmatched++
	geo.Matched = false
	m.log.Debug("unmatched", "geometry", geo.Summary(), "depth", depth)
	for _, child := range geo.Children {
		m.reconcile(child, context, matcher, st, depth+1)
	}
}

// supplement copies the attribute node's fields onto the geometry node.
// Content description is preferred for the display text; the raw text
// always transfers; state flags transfer verbatim because the attribute
// dump is authoritative for them.
func supplement(geo, attr *uitree.Node) {
	if attr.ContentDesc != "" {
		geo.ContentDesc = attr.ContentDesc
		geo.TextSource = uitree.TextSourceContentDesc
	} else if attr.Text != "" {
		geo.ContentDesc = attr.Text
		geo.TextSource = uitree.TextSourceText
	}
	geo.Text = attr.Text

	if attr.ResourceID != "" && geo.ResourceID == "" {
		geo.ResourceID = attr.ResourceID
	}

	geo.State = attr.State
	geo.InfoSupplemented = true
	geo.Matched = true
}

// findContentAnchor returns the first pre-order node whose resource id
// names the window content slot. Both dump mechanisms wrap the app
// content in differing decor chrome; anchoring past it aligns the trees.
func findContentAnchor(root *uitree.Node) *uitree.Node {
	var anchor *uitree.Node
	uitree.Walk(root, func(n *uitree.Node) bool {
		if n.ResourceID != "" &&
			(strings.Contains(n.ResourceID, "content") ||
				strings.HasSuffix(n.ResourceID, ":id/content")) {
			anchor = n
			return false
		}
		return true
	})
	return anchor
}

func matchRate(matched, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(matched)/float64(total)*100)
}
