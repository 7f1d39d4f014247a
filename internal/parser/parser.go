package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DumpKind names the two dump sources a capture produces.
type DumpKind string

const (
	// KindHierarchy is the indented view-hierarchy text from
	// "dumpsys activity top": reliable nesting and pixel bounds, no text.
	KindHierarchy DumpKind = "hierarchy"
	// KindAutomator is the uiautomator XML dump: reliable text and
	// state flags, looser structure.
	KindAutomator DumpKind = "automator"
)

// KindForFile guesses the dump kind from a filename extension.
// XML files are automator dumps; plain-text extensions are hierarchy
// dumps.
func KindForFile(filename string) (DumpKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml":
		return KindAutomator, nil
	case ".txt", ".log", ".dump", "":
		return KindHierarchy, nil
	default:
		return "", fmt.Errorf("unsupported dump file extension: %s", filepath.Ext(filename))
	}
}
