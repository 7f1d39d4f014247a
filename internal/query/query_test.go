package query

import (
	"testing"

	"github.com/dgallion1/uifuse/internal/uitree"
)

func sampleTree() *uitree.Node {
	return &uitree.Node{
		ID: 0, Class: "android.widget.FrameLayout",
		Bounds: uitree.Rect{X1: 0, Y1: 0, X2: 1080, Y2: 1920}, HasBounds: true,
		Children: []*uitree.Node{
			{
				ID: 1, Class: "android.widget.LinearLayout",
				Bounds: uitree.Rect{X1: 0, Y1: 0, X2: 1080, Y2: 960}, HasBounds: true,
				Children: []*uitree.Node{
					{
						ID: 2, Class: "android.widget.TextView",
						ResourceID: "com.app:id/title", Text: "Navigation",
						Bounds: uitree.Rect{X1: 40, Y1: 40, X2: 400, Y2: 100}, HasBounds: true,
					},
					{
						ID: 3, Class: "android.widget.Button",
						ResourceID: "com.app:id/ok", ContentDesc: "Confirm",
						Bounds: uitree.Rect{X1: 40, Y1: 120, X2: 400, Y2: 200}, HasBounds: true,
					},
				},
			},
			{
				ID: 4, Class: "android.view.View",
				// No parsed bounds: invisible to hit testing.
				Text: "ghost",
			},
		},
	}
}

func TestElementAtSmallestWins(t *testing.T) {
	root := sampleTree()
	got := ElementAt(root, 50, 50)
	if got == nil {
		t.Fatal("expected a hit")
	}
	if got.ID != 2 {
		t.Errorf("expected the innermost text view (id 2), got id %d", got.ID)
	}
}

func TestElementAtFallsBackToContainer(t *testing.T) {
	root := sampleTree()
	got := ElementAt(root, 900, 500)
	if got == nil {
		t.Fatal("expected a hit")
	}
	if got.ID != 1 {
		t.Errorf("expected the linear layout (id 1), got id %d", got.ID)
	}
}

func TestElementAtMiss(t *testing.T) {
	root := sampleTree()
	if got := ElementAt(root, 5000, 5000); got != nil {
		t.Errorf("expected nil outside the tree, got id %d", got.ID)
	}
}

func TestElementAtIgnoresBoundlessNodes(t *testing.T) {
	root := &uitree.Node{
		ID: 0, Class: "android.widget.FrameLayout",
		Bounds: uitree.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, HasBounds: true,
		Children: []*uitree.Node{{ID: 1, Class: "android.view.View"}},
	}
	got := ElementAt(root, 10, 10)
	if got == nil || got.ID != 0 {
		t.Fatalf("expected the bounded root, got %v", got)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	root := sampleTree()
	hits := Search(root, "NAVIG")
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Node.ID != 2 {
		t.Errorf("expected the title node, got id %d", hits[0].Node.ID)
	}
}

func TestSearchSpansAllFields(t *testing.T) {
	root := sampleTree()
	cases := []struct {
		query string
		want  int
	}{
		{"confirm", 1},           // content-desc
		{"com.app:id/ok", 1},     // resource id
		{"ghost", 1},             // text
		{"android.widget", 4},    // class prefix hits most of the tree
		{"nothing-like-this", 0}, // no field contains it
	}
	for _, c := range cases {
		if got := len(Search(root, c.query)); got != c.want {
			t.Errorf("Search(%q): expected %d hits, got %d", c.query, c.want, got)
		}
	}
}

func TestSearchPreOrderAndPath(t *testing.T) {
	root := sampleTree()
	hits := Search(root, "android.widget")
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}
	wantIDs := []int{0, 1, 2, 3}
	for i, id := range wantIDs {
		if hits[i].Node.ID != id {
			t.Errorf("hit %d: expected id %d, got %d", i, id, hits[i].Node.ID)
		}
	}
	// Path runs root → node, ending at the hit itself.
	title := hits[2]
	if len(title.Path) != 3 {
		t.Fatalf("expected path of 3, got %v", title.Path)
	}
	if title.Path[2] != title.Node.Summary() {
		t.Errorf("expected path to end at the hit, got %q", title.Path[2])
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	if hits := Search(sampleTree(), ""); hits != nil {
		t.Errorf("expected no hits for empty query, got %d", len(hits))
	}
}
