package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"

	"github.com/dgallion1/uifuse/internal/merge"
	"github.com/dgallion1/uifuse/internal/pipeline"
	"github.com/dgallion1/uifuse/internal/uitree"
)

func reportSnapshot() *pipeline.Snapshot {
	button := &uitree.Node{
		ID:         2,
		Class:      "android.widget.Button",
		ResourceID: "com.app:id/submit",
		Text:       "Send",
		Bounds:     uitree.Rect{X1: 40, Y1: 140, X2: 400, Y2: 260},
		HasBounds:  true,
		State:      uitree.State{Clickable: true, Enabled: true},
	}
	root := &uitree.Node{
		ID:        1,
		Class:     "android.widget.FrameLayout",
		Bounds:    uitree.Rect{X1: 0, Y1: 100, X2: 1080, Y2: 1900},
		HasBounds: true,
		State:     uitree.State{Enabled: true},
		Matched:   true,
		Children:  []*uitree.Node{button},
	}
	return &pipeline.Snapshot{
		ID:           "snap-test",
		Source:       pipeline.SourceDevice,
		DeviceSerial: "0123456789ABCDEF",
		DeviceModel:  "HU_X1",
		Activity:     "com.app/com.app.MainActivity",
		CapturedAt:   time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Stats:        merge.Stats{Matched: 1, Unmatched: 1, Total: 2, MatchRate: "50.0%"},
		Warnings:     []string{"no content anchor in attribute tree; matched against the full tree"},
		Tree:         root,
	}
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(reportSnapshot())

	for _, want := range []string{
		"# UI Snapshot Report",
		"- Snapshot: snap-test",
		"- Captured: 2026-08-25T10:00:00Z",
		"- Device: HU_X1 (0123456789ABCDEF)",
		"- Activity: com.app/com.app.MainActivity",
		"## Merge",
		"- Nodes: 2",
		"- Matched: 1 (50.0%)",
		"- Unmatched: 1",
		"## Warnings",
		"no content anchor in attribute tree",
		"## Unmatched Elements",
		"Button#submit'Send'",
		"## Interactive Elements",
		"center=(220,200)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
}

func TestMarkdownSkipsEmptySections(t *testing.T) {
	snap := reportSnapshot()
	snap.Warnings = nil
	snap.Stats = merge.Stats{Matched: 2, Unmatched: 0, Total: 2, MatchRate: "100.0%"}
	snap.Tree.Children[0].State.Clickable = false

	md := Markdown(snap)
	for _, absent := range []string{"## Warnings", "## Unmatched Elements", "## Interactive Elements"} {
		if strings.Contains(md, absent) {
			t.Errorf("expected markdown to omit %q\n%s", absent, md)
		}
	}
}

func TestHTMLStructure(t *testing.T) {
	out, err := HTML(reportSnapshot())
	if err != nil {
		t.Fatalf("render html: %v", err)
	}

	doc, err := html.Parse(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("parse rendered html: %v", err)
	}

	var h1 string
	var h2s []string
	liCount := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h1":
				h1 = textContent(n)
			case "h2":
				h2s = append(h2s, textContent(n))
			case "li":
				liCount++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if h1 != "UI Snapshot Report" {
		t.Errorf("expected h1 %q, got %q", "UI Snapshot Report", h1)
	}
	if len(h2s) == 0 || h2s[0] != "Merge" {
		t.Errorf("expected first h2 %q, got %v", "Merge", h2s)
	}
	if liCount == 0 {
		t.Error("expected rendered list items")
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func TestDOCXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := DOCX(reportSnapshot(), &buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	doc, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parse written docx: %v", err)
	}

	var text strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if tx, ok := rc.(*docx.Text); ok {
					text.WriteString(tx.Text)
				}
			}
		}
		text.WriteString("\n")
	}

	got := text.String()
	for _, want := range []string{"UI Snapshot Report", "Matched: 1 (50.0%)", "Button#submit'Send'"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected docx text to contain %q\n%s", want, got)
		}
	}
}
