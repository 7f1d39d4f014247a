// Package uitree defines the widget-tree model shared by the parsers,
// the merger, and the query layer.
package uitree

import "strings"

// State is the ordered set of boolean widget flags carried by a dump node.
type State struct {
	Clickable     bool
	LongClickable bool
	Checkable     bool
	Checked       bool
	Selected      bool
	Enabled       bool
	Focusable     bool
	Focused       bool
	Scrollable    bool
}

// Text-source markers recorded by the merger when it fills ContentDesc.
const (
	TextSourceContentDesc = "content-desc"
	TextSourceText        = "text"
)

// Node is one widget snapshot. A parser assigns IDs in construction
// order, so an ID is stable and unique within its own tree only.
type Node struct {
	ID          int
	Class       string // full class name, e.g. "android.widget.TextView"
	Package     string
	ResourceID  string
	Text        string
	ContentDesc string
	Index       int // declaration-order position among siblings

	Bounds    Rect
	HasBounds bool // false when the dump carried no parseable bounds

	State

	Children []*Node

	// Merge metadata, written on geometry nodes during reconciliation.
	Matched          bool
	TextSource       string
	InfoSupplemented bool
}

// Walk visits n and its descendants in pre-order, stopping early when
// visit returns false. The return value reports whether the walk ran
// to completion.
func Walk(n *Node, visit func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, c := range n.Children {
		if !Walk(c, visit) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool {
		total++
		return true
	})
	return total
}

// IDSuffix extracts the trailing segment of a resource id: the part
// after ":id/", else after the last "/", else the whole id.
func IDSuffix(resourceID string) string {
	if resourceID == "" {
		return ""
	}
	if i := strings.LastIndex(resourceID, ":id/"); i >= 0 {
		return resourceID[i+len(":id/"):]
	}
	if i := strings.LastIndex(resourceID, "/"); i >= 0 {
		return resourceID[i+1:]
	}
	return resourceID
}

// SimpleClass returns the last dot-separated segment of a class name.
func SimpleClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}

// Summary renders a short label for logs and reports: truncated simple
// class, id suffix, and leading text, e.g. TextView#title'Hello'.
func (n *Node) Summary() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(clip(SimpleClass(n.Class), 20))
	if suffix := IDSuffix(n.ResourceID); suffix != "" {
		b.WriteString("#")
		b.WriteString(suffix)
	}
	if n.Text != "" {
		b.WriteString("'")
		b.WriteString(clip(n.Text, 15))
		b.WriteString("'")
	} else if n.ContentDesc != "" {
		b.WriteString("[")
		b.WriteString(clip(n.ContentDesc, 15))
		b.WriteString("]")
	}
	return b.String()
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
