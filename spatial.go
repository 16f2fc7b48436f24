package main

import (
	"math"
	"slices"
)

// spatialGrid is a fixed-size grid for broad-phase collision queries. It
// stores indices into a caller-owned slice. Positions outside the world
// clamp to the edge cells, so off-map entities are still found.
type spatialGrid struct {
	cellSize   float64
	cols, rows int
	cells      [][]int
}

func newSpatialGrid(width, height, cellSize float64) *spatialGrid {
	cellSize = math.Max(cellSize, 1)
	cols := int(math.Ceil(width/cellSize)) + 1
	rows := int(math.Ceil(height/cellSize)) + 1
	return &spatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]int, cols*rows),
	}
}

// gridCellSize fits two ships plus a projectile in a cell
func gridCellSize(cfg SimConfig) float64 {
	return 2 * (2*cfg.ShipRadius + cfg.ProjectileRadius)
}

// Clear resets all cells (keeps allocated capacity)
func (g *spatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *spatialGrid) clampCol(x float64) int {
	c := int(math.Floor(x / g.cellSize))
	return min(max(c, 0), g.cols-1)
}

func (g *spatialGrid) clampRow(y float64) int {
	r := int(math.Floor(y / g.cellSize))
	return min(max(r, 0), g.rows-1)
}

// InsertCircle adds idx to every cell the circle's bounding box touches
func (g *spatialGrid) InsertCircle(p Point2D, radius float64, idx int) {
	for cy := g.clampRow(p.Y - radius); cy <= g.clampRow(p.Y+radius); cy++ {
		for cx := g.clampCol(p.X - radius); cx <= g.clampCol(p.X+radius); cx++ {
			i := cy*g.cols + cx
			g.cells[i] = append(g.cells[i], idx)
		}
	}
}

// QueryBuf appends the indices that may overlap the circle to buf, sorted
// ascending and without duplicates.
func (g *spatialGrid) QueryBuf(p Point2D, radius float64, buf []int) []int {
	start := len(buf)
	for cy := g.clampRow(p.Y - radius); cy <= g.clampRow(p.Y+radius); cy++ {
		for cx := g.clampCol(p.X - radius); cx <= g.clampCol(p.X+radius); cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	found := buf[start:]
	slices.Sort(found)
	return buf[:start+len(slices.Compact(found))]
}
