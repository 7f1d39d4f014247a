package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/uifuse/internal/uitree"
)

// Default blocklists for decor widgets that carry no useful geometry.
var (
	DefaultFilterIDs = []string{
		"action_mode_bar_stub",
		"navigationBarBackground",
		"statusBarBackground",
	}
	DefaultFilterClasses = []string{
		"android.view.IndicatorBar",
	}
)

// SyntheticRootClass is the class assigned to the synthetic root that
// collects top-level widgets when the dump has more than one.
const SyntheticRootClass = "RootNode"

// GeometryParser reads the indented view-hierarchy text dump. Each line
// carries a class name, bounds relative to the parent, and positional
// state codes; indentation encodes nesting. The output tree carries
// absolute bounds and no text.
//
// FilterIDs and FilterClasses override the default blocklists when
// non-nil. A filtered widget is dropped together with its whole subtree.
type GeometryParser struct {
	FilterIDs     []string
	FilterClasses []string
}

var (
	viewClassRe  = regexp.MustCompile(`^([a-zA-Z0-9.$_]+)`)
	viewBoundsRe = regexp.MustCompile(`(\d+),(\d+)-(\d+),(\d+)`)
	viewIDRe     = regexp.MustCompile(`#[a-f0-9]+ (?:app|android):id/([a-zA-Z0-9_]+)`)
)

// viewLine is the information one dump line yields before tree placement.
type viewLine struct {
	class      string
	rel        uitree.Rect
	resourceID string // bare name, without namespace
	clickable  bool
	enabled    bool
	focusable  bool
}

func (p *GeometryParser) Parse(r io.Reader) (*uitree.Node, error) {
	filterIDs := p.FilterIDs
	if filterIDs == nil {
		filterIDs = DefaultFilterIDs
	}
	filterClasses := p.FilterClasses
	if filterClasses == nil {
		filterClasses = DefaultFilterClasses
	}

	nextID := 0
	root := &uitree.Node{
		ID:        nextID,
		Class:     SyntheticRootClass,
		HasBounds: true,
		State:     uitree.State{Enabled: true},
	}
	nextID++

	type stackEntry struct {
		indent int
		node   *uitree.Node
	}
	var stack []stackEntry
	skipUntil := -1 // indent of the last filtered widget, -1 when inactive

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Contains(line, "View Hierarchy:") {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		// Inside a filtered subtree: drop everything nested deeper.
		if skipUntil >= 0 {
			if indent > skipUntil {
				continue
			}
			skipUntil = -1
		}

		info, ok := parseViewLine(trimmed)
		if !ok {
			// Malformed line, ancestor stack stays untouched.
			continue
		}

		if filteredView(info, filterIDs, filterClasses) {
			skipUntil = indent
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		abs := info.rel
		if len(stack) > 0 {
			parent := stack[len(stack)-1].node.Bounds
			abs = uitree.Rect{
				X1: parent.X1 + info.rel.X1,
				Y1: parent.Y1 + info.rel.Y1,
				X2: parent.X1 + info.rel.X2,
				Y2: parent.Y1 + info.rel.Y2,
			}
		}

		// Composition with an ancestor can still collapse the widget
		// to a point; those subtrees are dropped the same way.
		if abs.Width() == 0 && abs.Height() == 0 {
			skipUntil = indent
			continue
		}

		node := &uitree.Node{
			ID:         nextID,
			Class:      info.class,
			ResourceID: qualifyResourceID(info.resourceID),
			Bounds:     abs,
			HasBounds:  true,
			State: uitree.State{
				Clickable: info.clickable,
				Enabled:   info.enabled,
				Focusable: info.focusable,
			},
		}
		nextID++

		parent := root
		if len(stack) > 0 {
			parent = stack[len(stack)-1].node
		}
		node.Index = len(parent.Children)
		parent.Children = append(parent.Children, node)
		stack = append(stack, stackEntry{indent: indent, node: node})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read hierarchy dump: %w", err)
	}

	if len(root.Children) == 1 {
		return root.Children[0], nil
	}
	return root, nil
}

// parseViewLine extracts the widget fields from one stripped dump line.
// A line without both a class name and a bounds quadruple yields no
// widget.
func parseViewLine(line string) (viewLine, bool) {
	var info viewLine

	classMatch := viewClassRe.FindStringSubmatch(line)
	if classMatch == nil {
		return info, false
	}
	info.class = classMatch[1]

	boundsMatch := viewBoundsRe.FindStringSubmatch(line)
	if boundsMatch == nil {
		return info, false
	}
	info.rel = uitree.Rect{
		X1: atoi(boundsMatch[1]),
		Y1: atoi(boundsMatch[2]),
		X2: atoi(boundsMatch[3]),
		Y2: atoi(boundsMatch[4]),
	}

	if idMatch := viewIDRe.FindStringSubmatch(line); idMatch != nil {
		info.resourceID = idMatch[1]
	}

	// Positional state codes. Buttons and text views report clickable
	// even when the dump omits the code.
	info.focusable = strings.Contains(line, ".F")
	info.enabled = strings.Contains(line, ".E")
	info.clickable = strings.Contains(line, ".C") ||
		strings.Contains(info.class, "Button") ||
		strings.Contains(info.class, "TextView")

	return info, true
}

func filteredView(info viewLine, filterIDs, filterClasses []string) bool {
	if info.resourceID != "" {
		for _, id := range filterIDs {
			if strings.Contains(info.resourceID, id) {
				return true
			}
		}
	}
	for _, class := range filterClasses {
		if info.class == class {
			return true
		}
	}
	if info.rel.Width() == 0 && info.rel.Height() == 0 {
		return true
	}
	return false
}

// qualifyResourceID restores the namespace the dump strips, so geometry
// ids join against automator ids on the same suffix rules.
func qualifyResourceID(bare string) string {
	if bare == "" {
		return ""
	}
	return "app:id/" + bare
}

// atoi converts digit runs already validated by a regexp.
func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
