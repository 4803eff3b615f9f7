// Package layout partitions a sequence of posts into masonry columns.
//
// The partition is a greedy shortest-column pass in input order. It is cheap
// and stable across re-renders, and it does not try to find the optimal
// packing.
package layout

import (
	"fmt"

	"wallfeed/internal/models"
	"wallfeed/internal/observability"
)

// Tile is a post placed in a column at a vertical offset.
type Tile struct {
	Post models.Post
	Top  float64
}

// Column is an ordered run of tiles with its cumulative height, gaps included.
type Column struct {
	Tiles  []Tile
	Height float64
}

// Posts returns the posts of the column in placement order.
func (c Column) Posts() []models.Post {
	out := make([]models.Post, len(c.Tiles))
	for i, t := range c.Tiles {
		out[i] = t.Post
	}
	return out
}

// Layout assigns each post, in order, to the column with the smallest
// cumulative height. Ties go to the lowest index. The chosen column then grows
// by the post's display height plus gap.
func Layout(posts []models.Post, columnCount int, gap float64) ([]Column, error) {
	if columnCount < 1 {
		return nil, models.NewValidationError(fmt.Sprintf("column count must be at least 1, got %d", columnCount))
	}
	if gap < 0 {
		return nil, models.NewValidationError(fmt.Sprintf("gap must not be negative, got %v", gap))
	}

	cols := make([]Column, columnCount)
	for _, p := range posts {
		shortest := 0
		for i := 1; i < columnCount; i++ {
			if cols[i].Height < cols[shortest].Height {
				shortest = i
			}
		}
		col := &cols[shortest]
		col.Tiles = append(col.Tiles, Tile{Post: p, Top: col.Height})
		col.Height += float64(p.DisplayHeight) + gap
	}
	return cols, nil
}

// Spread is the difference between the tallest and the shortest column.
func Spread(cols []Column) float64 {
	if len(cols) == 0 {
		return 0
	}
	lo, hi := cols[0].Height, cols[0].Height
	for _, c := range cols[1:] {
		lo = min(lo, c.Height)
		hi = max(hi, c.Height)
	}
	return hi - lo
}

// Engine holds a fixed column configuration.
type Engine struct {
	columns int
	gap     float64
}

// NewEngine validates the configuration up front so Arrange cannot fail on it.
func NewEngine(columns int, gap float64) (*Engine, error) {
	if _, err := Layout(nil, columns, gap); err != nil {
		return nil, err
	}
	return &Engine{columns: columns, gap: gap}, nil
}

// Columns returns the configured column count.
func (e *Engine) Columns() int { return e.columns }

// Arrange lays out posts and records the resulting column spread.
func (e *Engine) Arrange(posts []models.Post) []Column {
	cols, _ := Layout(posts, e.columns, e.gap)
	observability.LayoutSpread.Observe(Spread(cols))
	return cols
}
