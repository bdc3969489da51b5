// Package town provides the grid town, its road network and the customer houses.
// Coordinates are integer cells with (0,0) in the top-left corner.
package town

import (
	"fmt"
	"math"

	"github.com/talgya/poopster/internal/config"
)

// Point is a cell on the town grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Euclidean distance between two cells.
func Distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(bx-ax, by-ay)
}

// Chebyshev returns the king-move distance between two points.
func Chebyshev(a, b Point) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Grid describes the town layout derived from the balance.
type Grid struct {
	Width     int
	Height    int
	RoadWidth int
	LotSize   int
}

// NewGrid builds a Grid from the town configuration.
func NewGrid(cfg config.Town) Grid {
	return Grid{
		Width:     cfg.Width,
		Height:    cfg.Height,
		RoadWidth: cfg.RoadWidth,
		LotSize:   cfg.LotSize,
	}
}

// Center returns the geometric centre of the grid.
func (g Grid) Center() (float64, float64) {
	return float64(g.Width) / 2, float64(g.Height) / 2
}

// InBounds reports whether p lies on the grid.
func (g Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

func (g Grid) period() int {
	return g.LotSize + g.RoadWidth
}

// IsRoad reports whether the cell carries a road. Roads run along every
// row and column congruent to RoadWidth modulo LotSize+RoadWidth.
func (g Grid) IsRoad(x, y int) bool {
	if !g.InBounds(Point{X: x, Y: y}) {
		return false
	}
	p := g.period()
	if p <= 0 {
		return false
	}
	if y >= g.RoadWidth && (y-g.RoadWidth)%p == 0 {
		return true
	}
	if x >= g.RoadWidth && (x-g.RoadWidth)%p == 0 {
		return true
	}
	return false
}

// Roads lists every road cell, horizontal bands first.
func (g Grid) Roads() []Point {
	seen := make(map[Point]bool)
	var out []Point
	p := g.period()
	if p <= 0 {
		return nil
	}
	for y := g.RoadWidth; y < g.Height; y += p {
		for x := 0; x < g.Width; x++ {
			pt := Point{X: x, Y: y}
			seen[pt] = true
			out = append(out, pt)
		}
	}
	for x := g.RoadWidth; x < g.Width; x += p {
		for y := 0; y < g.Height; y++ {
			pt := Point{X: x, Y: y}
			if !seen[pt] {
				out = append(out, pt)
			}
		}
	}
	return out
}

// footprintClear reports whether no road falls inside the size×size square
// whose top-left corner is (x, y).
func (g Grid) footprintClear(x, y, size int) bool {
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			if g.IsRoad(x+dx, y+dy) {
				return false
			}
		}
	}
	return true
}

// Lots returns the candidate lot centres in row-major order.
func (g Grid) Lots() []Point {
	var lots []Point
	half := float64(g.LotSize) / 2
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if !g.footprintClear(x, y, g.RoadWidth) || !g.footprintClear(x, y, g.LotSize) {
				continue
			}
			if float64(x)+half >= float64(g.Width) || float64(y)+half >= float64(g.Height) {
				continue
			}
			lots = append(lots, Point{
				X: int(math.Floor(float64(x) + half)),
				Y: int(math.Floor(float64(y) + half)),
			})
		}
	}
	return lots
}

// String returns a summary of the grid.
func (g Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, road=%d, lot=%d)", g.Width, g.Height, g.RoadWidth, g.LotSize)
}
