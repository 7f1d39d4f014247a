package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/uifuse/internal/uitree"
)

func TestGeometryParseBasic(t *testing.T) {
	input := `  View Hierarchy:
    com.android.internal.policy.DecorView{e603937 V.E...... R....... 0,0-1080,1920}
      android.widget.LinearLayout{21f4747 V.E...... ......I. 0,0-1080,1920}
        android.widget.FrameLayout{b5c9e12 V.E...... ......ID 0,80-1080,1920 #1020002 android:id/content}
          android.widget.TextView{7a11f03 V.ED..C.. ......I. 40,20-400,80}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Class != "com.android.internal.policy.DecorView" {
		t.Fatalf("expected DecorView root, got %q", tree.Class)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(tree.Children))
	}
	frame := tree.Children[0].Children[0]
	if frame.ResourceID != "app:id/content" {
		t.Errorf("expected app:id/content, got %q", frame.ResourceID)
	}
	if got := frame.Bounds.String(); got != "[0,80][1080,1920]" {
		t.Errorf("expected [0,80][1080,1920], got %q", got)
	}
	text := frame.Children[0]
	if got := text.Bounds.String(); got != "[40,100][400,160]" {
		t.Errorf("expected text bounds offset by parent origin, got %q", got)
	}
	if !text.Clickable {
		t.Error("expected TextView to infer clickable")
	}
	if !text.Enabled {
		t.Error("expected .E code to parse as enabled")
	}
}

func TestGeometryAbsoluteComposition(t *testing.T) {
	// A child declared at 10,20-30,40 under an ancestor spanning
	// (100,100)-(500,500) lands at (110,120)-(130,140).
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 100,100-500,500}
 android.widget.TextView{bb11 V.ED..C.. ......I. 10,20-30,40}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	child := tree.Children[0]
	want := uitree.Rect{X1: 110, Y1: 120, X2: 130, Y2: 140}
	if child.Bounds != want {
		t.Errorf("expected %v, got %v", want, child.Bounds)
	}
}

func TestGeometryFilterBlocklists(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-1080,1920}
 android.view.View{bb11 V.ED..... ......I. 0,1840-1080,1920 #102002f android:id/navigationBarBackground}
  android.widget.TextView{cc22 V.ED..C.. ......I. 0,0-100,40}
 android.view.IndicatorBar{dd33 V.E...... ......I. 0,0-1080,40}
  android.widget.TextView{ee44 V.ED..C.. ......I. 0,0-100,40}
 android.widget.Button{ff55 V.ED..C.. ......I. 0,200-200,260}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected only the button to survive, got %d children", len(tree.Children))
	}
	if tree.Children[0].Class != "android.widget.Button" {
		t.Errorf("expected Button, got %q", tree.Children[0].Class)
	}
}

func TestGeometryZeroSizeSubtreeDropped(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-1080,1920}
 android.view.ViewStub{bb11 v.G...... ......I. 0,0-0,0 #10203a5 android:id/action_mode_bar_stub}
  android.widget.TextView{cc22 V.ED..C.. ......I. 0,0-100,40}
   android.widget.TextView{dd33 V.ED..C.. ......I. 0,0-100,40}
 android.widget.TextView{ee44 V.ED..C.. ......I. 0,40-100,80}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := uitree.Count(tree); got != 2 {
		t.Fatalf("expected 2 surviving nodes, got %d", got)
	}
	if tree.Children[0].Bounds.Y1 != 40 {
		t.Errorf("expected the sibling after the dropped subtree, got %v", tree.Children[0].Bounds)
	}
}

func TestGeometryMalformedLineSkipped(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-1080,1920}
 android.view.ViewStub (not attached)
 android.widget.TextView{bb11 V.ED..C.. ......I. 0,0-100,40}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(tree.Children))
	}
	if tree.Children[0].Class != "android.widget.TextView" {
		t.Errorf("expected TextView, got %q", tree.Children[0].Class)
	}
}

func TestGeometryMultipleTopLevel(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-540,1920}
android.widget.FrameLayout{bb11 V.E...... ......I. 540,0-1080,1920}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Class != SyntheticRootClass {
		t.Fatalf("expected synthetic root, got %q", tree.Class)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(tree.Children))
	}
	if tree.Children[0].Index != 0 || tree.Children[1].Index != 1 {
		t.Errorf("expected sibling indexes 0,1, got %d,%d",
			tree.Children[0].Index, tree.Children[1].Index)
	}
}

func TestGeometryContainment(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-1080,1920}
 android.widget.LinearLayout{bb11 V.E...... ......I. 0,80-1080,1900}
  android.widget.TextView{cc22 V.ED..C.. ......I. 40,20-400,80}
  android.widget.Button{dd33 V.ED..C.. ......I. 40,100-400,180}
`
	p := &GeometryParser{}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var check func(n *uitree.Node)
	check = func(n *uitree.Node) {
		for _, c := range n.Children {
			if c.Bounds.X1 < n.Bounds.X1 || c.Bounds.Y1 < n.Bounds.Y1 ||
				c.Bounds.X2 > n.Bounds.X2 || c.Bounds.Y2 > n.Bounds.Y2 {
				t.Errorf("child %v escapes parent %v", c.Bounds, n.Bounds)
			}
			check(c)
		}
	}
	check(tree)
}

func TestGeometryDeterministic(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-1080,1920}
 android.widget.TextView{bb11 V.ED..C.. ......I. 40,20-400,80 #7f0a0123 app:id/title}
 android.widget.Button{cc22 V.ED..C.. ......I. 40,100-400,180 #7f0a0124 app:id/ok}
`
	p := &GeometryParser{}
	first, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical trees from identical input")
	}
}

func TestGeometryCustomFilters(t *testing.T) {
	input := `android.widget.FrameLayout{aa00 V.E...... ......I. 0,0-1080,1920}
 android.widget.TextView{bb11 V.ED..C.. ......I. 0,0-100,40 #7f0a0123 app:id/debug_overlay}
 android.widget.TextView{cc22 V.ED..C.. ......I. 0,40-100,80 #7f0a0124 app:id/title}
`
	p := &GeometryParser{FilterIDs: []string{"debug_overlay"}, FilterClasses: []string{}}
	tree, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(tree.Children))
	}
	if got := uitree.IDSuffix(tree.Children[0].ResourceID); got != "title" {
		t.Errorf("expected title to survive, got %q", got)
	}
}
