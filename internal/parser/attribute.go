package parser

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/dgallion1/uifuse/internal/uitree"
)

// AttributeParser reads the uiautomator XML dump. Every element maps to
// one node in document order; the root element (usually <hierarchy>)
// becomes the tree root. A malformed document yields no tree at all.
type AttributeParser struct{}

// xmlNode mirrors the dump's element shape. Flags stay strings so an
// absent attribute is distinguishable from an explicit "false".
type xmlNode struct {
	Class         string    `xml:"class,attr"`
	Package       string    `xml:"package,attr"`
	Text          string    `xml:"text,attr"`
	ResourceID    string    `xml:"resource-id,attr"`
	ContentDesc   string    `xml:"content-desc,attr"`
	Bounds        string    `xml:"bounds,attr"`
	Index         string    `xml:"index,attr"`
	Clickable     string    `xml:"clickable,attr"`
	LongClickable string    `xml:"long-clickable,attr"`
	Checkable     string    `xml:"checkable,attr"`
	Checked       string    `xml:"checked,attr"`
	Selected      string    `xml:"selected,attr"`
	Enabled       string    `xml:"enabled,attr"`
	Focusable     string    `xml:"focusable,attr"`
	Focused       string    `xml:"focused,attr"`
	Scrollable    string    `xml:"scrollable,attr"`
	Children      []xmlNode `xml:"node"`
}

func (p *AttributeParser) Parse(r io.Reader) (*uitree.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read automator dump: %w", err)
	}

	var doc xmlNode
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse automator dump: %w", err)
	}

	nextID := 0
	return buildAttributeNode(&doc, &nextID), nil
}

func buildAttributeNode(x *xmlNode, nextID *int) *uitree.Node {
	n := &uitree.Node{
		ID:          *nextID,
		Class:       x.Class,
		Package:     x.Package,
		Text:        x.Text,
		ResourceID:  x.ResourceID,
		ContentDesc: x.ContentDesc,
		Index:       atoi(x.Index),
		State: uitree.State{
			Clickable:     attrBool(x.Clickable, false),
			LongClickable: attrBool(x.LongClickable, false),
			Checkable:     attrBool(x.Checkable, false),
			Checked:       attrBool(x.Checked, false),
			Selected:      attrBool(x.Selected, false),
			Enabled:       attrBool(x.Enabled, true),
			Focusable:     attrBool(x.Focusable, false),
			Focused:       attrBool(x.Focused, false),
			Scrollable:    attrBool(x.Scrollable, false),
		},
	}
	*nextID++

	if x.Bounds != "" {
		if rect, err := uitree.ParseBounds(x.Bounds); err == nil {
			n.Bounds = rect
			n.HasBounds = true
		}
	}

	for i := range x.Children {
		n.Children = append(n.Children, buildAttributeNode(&x.Children[i], nextID))
	}
	return n
}

// attrBool parses a dump flag value, falling back when the attribute is
// absent. Everything but the literal "true" is false.
func attrBool(s string, absent bool) bool {
	if s == "" {
		return absent
	}
	return s == "true"
}
