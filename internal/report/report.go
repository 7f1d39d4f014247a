// Package report renders merged snapshots for humans: markdown, a
// standalone HTML page, and DOCX for attaching to bug reports.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
	"github.com/yuin/goldmark"

	"github.com/dgallion1/uifuse/internal/pipeline"
	"github.com/dgallion1/uifuse/internal/uitree"
)

// section is one block of the report; a section without a title holds
// the capture metadata under the document heading.
type section struct {
	title string
	lines []string
}

// Markdown renders the snapshot report as markdown.
func Markdown(snap *pipeline.Snapshot) string {
	var b strings.Builder
	b.WriteString("# UI Snapshot Report\n")
	for _, sec := range sections(snap) {
		if sec.title != "" {
			fmt.Fprintf(&b, "\n## %s\n", sec.title)
		}
		b.WriteString("\n")
		for _, line := range sec.lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}

// HTML renders the report as a standalone page.
func HTML(snap *pipeline.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>UI Snapshot Report</title></head>\n<body>\n")
	if err := goldmark.Convert([]byte(Markdown(snap)), &buf); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

// DOCX writes the report as a Word document.
func DOCX(snap *pipeline.Snapshot, w io.Writer) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText("UI Snapshot Report").Size("32").Bold()
	for _, sec := range sections(snap) {
		if sec.title != "" {
			doc.AddParagraph().AddText(sec.title).Size("26").Bold()
		}
		for _, line := range sec.lines {
			doc.AddParagraph().AddText(line).Size("22")
		}
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func sections(snap *pipeline.Snapshot) []section {
	var meta section
	meta.lines = append(meta.lines,
		"Snapshot: "+snap.ID,
		"Captured: "+snap.CapturedAt.UTC().Format(time.RFC3339),
		"Source: "+snap.Source,
	)
	if snap.DeviceSerial != "" {
		model := snap.DeviceModel
		if model == "" {
			model = snap.DeviceSerial
		}
		meta.lines = append(meta.lines, fmt.Sprintf("Device: %s (%s)", model, snap.DeviceSerial))
	}
	if snap.Activity != "" {
		meta.lines = append(meta.lines, "Activity: "+snap.Activity)
	}

	stats := section{title: "Merge", lines: []string{
		fmt.Sprintf("Nodes: %d", snap.Stats.Total),
		fmt.Sprintf("Matched: %d (%s)", snap.Stats.Matched, snap.Stats.MatchRate),
		fmt.Sprintf("Unmatched: %d", snap.Stats.Unmatched),
	}}

	secs := []section{meta, stats}

	if len(snap.Warnings) > 0 {
		secs = append(secs, section{title: "Warnings", lines: snap.Warnings})
	}

	if snap.Stats.Unmatched > 0 {
		unmatched := section{title: "Unmatched Elements"}
		for _, n := range collect(snap.Tree, func(n *uitree.Node) bool { return !n.Matched }) {
			unmatched.lines = append(unmatched.lines, n.Summary())
		}
		secs = append(secs, unmatched)
	}

	clickable := collect(snap.Tree, func(n *uitree.Node) bool { return n.Clickable })
	if len(clickable) > 0 {
		interactive := section{title: "Interactive Elements"}
		for _, n := range clickable {
			line := n.Summary()
			if n.HasBounds {
				line = fmt.Sprintf("%s %s center=(%d,%d)",
					n.Summary(), n.Bounds.String(), n.Bounds.CenterX(), n.Bounds.CenterY())
			}
			interactive.lines = append(interactive.lines, line)
		}
		secs = append(secs, interactive)
	}

	return secs
}

func collect(root *uitree.Node, pred func(*uitree.Node) bool) []*uitree.Node {
	var out []*uitree.Node
	uitree.Walk(root, func(n *uitree.Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
