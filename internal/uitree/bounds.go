package uitree

import (
	"fmt"
	"regexp"
	"strconv"
)

// Rect is an absolute pixel rectangle in screen coordinates.
type Rect struct {
	X1, Y1, X2, Y2 int
}

func (r Rect) Width() int   { return r.X2 - r.X1 }
func (r Rect) Height() int  { return r.Y2 - r.Y1 }
func (r Rect) CenterX() int { return (r.X1 + r.X2) / 2 }
func (r Rect) CenterY() int { return (r.Y1 + r.Y2) / 2 }

// Area is the hit-test ranking key: the smallest containing node wins.
func (r Rect) Area() int { return r.Width() * r.Height() }

// Contains reports whether the point lies inside the rectangle, edges
// inclusive.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
}

// String renders the dump form "[x1,y1][x2,y2]".
func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.X1, r.Y1, r.X2, r.Y2)
}

var boundsDigits = regexp.MustCompile(`\d+`)

// ParseBounds reads a dump bounds string, canonically "[x1,y1][x2,y2]".
// Any string carrying exactly four integer runs is accepted.
func ParseBounds(s string) (Rect, error) {
	nums := boundsDigits.FindAllString(s, -1)
	if len(nums) != 4 {
		return Rect{}, fmt.Errorf("bounds %q: want 4 coordinates, found %d", s, len(nums))
	}
	var vals [4]int
	for i, raw := range nums {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Rect{}, fmt.Errorf("bounds %q: %w", s, err)
		}
		vals[i] = v
	}
	return Rect{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}, nil
}
