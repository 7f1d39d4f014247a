package uitree

import (
	"encoding/json"
	"strconv"
)

// nodeJSON is the wire form served to clients. Flag values keep the
// string form used by the raw dumps.
type nodeJSON struct {
	Class            string  `json:"class"`
	ResourceID       string  `json:"resource-id"`
	Text             string  `json:"text"`
	ContentDesc      string  `json:"content-desc"`
	Bounds           string  `json:"bounds"`
	X1               int     `json:"x1"`
	Y1               int     `json:"y1"`
	X2               int     `json:"x2"`
	Y2               int     `json:"y2"`
	CenterX          int     `json:"center_x"`
	CenterY          int     `json:"center_y"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Clickable        string  `json:"clickable"`
	LongClickable    string  `json:"long-clickable"`
	Checkable        string  `json:"checkable"`
	Checked          string  `json:"checked"`
	Selected         string  `json:"selected"`
	Enabled          string  `json:"enabled"`
	Focusable        string  `json:"focusable"`
	Focused          string  `json:"focused"`
	Scrollable       string  `json:"scrollable"`
	Package          string  `json:"package"`
	Index            int     `json:"index"`
	TextSource       string  `json:"text_source,omitempty"`
	InfoSupplemented bool    `json:"info_supplemented"`
	Matched          bool    `json:"matched"`
	Children         []*Node `json:"children"`
}

// MarshalJSON emits the external node representation. Nodes without
// parsed bounds serialize with an empty bounds string and zero geometry.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		Class:            n.Class,
		ResourceID:       n.ResourceID,
		Text:             n.Text,
		ContentDesc:      n.ContentDesc,
		Clickable:        strconv.FormatBool(n.Clickable),
		LongClickable:    strconv.FormatBool(n.LongClickable),
		Checkable:        strconv.FormatBool(n.Checkable),
		Checked:          strconv.FormatBool(n.Checked),
		Selected:         strconv.FormatBool(n.Selected),
		Enabled:          strconv.FormatBool(n.Enabled),
		Focusable:        strconv.FormatBool(n.Focusable),
		Focused:          strconv.FormatBool(n.Focused),
		Scrollable:       strconv.FormatBool(n.Scrollable),
		Package:          n.Package,
		Index:            n.Index,
		TextSource:       n.TextSource,
		InfoSupplemented: n.InfoSupplemented,
		Matched:          n.Matched,
		Children:         n.Children,
	}
	if n.HasBounds {
		out.Bounds = n.Bounds.String()
		out.X1 = n.Bounds.X1
		out.Y1 = n.Bounds.Y1
		out.X2 = n.Bounds.X2
		out.Y2 = n.Bounds.Y2
		out.CenterX = n.Bounds.CenterX()
		out.CenterY = n.Bounds.CenterY()
		out.Width = n.Bounds.Width()
		out.Height = n.Bounds.Height()
	}
	if out.Children == nil {
		out.Children = []*Node{}
	}
	return json.Marshal(out)
}
