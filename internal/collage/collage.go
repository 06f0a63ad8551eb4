// Package collage computes deterministic grid layouts for slides whose
// members share a filename prefix. The planner is pure geometry; the
// encoder turns a Plan into an xstack filter graph.
package collage

import (
	"errors"
)

// Orientation classifies an image's aspect for layout decisions.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	Square    Orientation = "square"
	Unknown   Orientation = "unknown"
)

// Classify maps pixel dimensions to an Orientation. A 10% band around 1:1
// counts as square so near-square crops do not flip the two-image layout.
func Classify(width, height int) Orientation {
	if width <= 0 || height <= 0 {
		return Unknown
	}
	switch {
	case float64(height) > float64(width)*1.1:
		return Portrait
	case float64(width) > float64(height)*1.1:
		return Landscape
	default:
		return Square
	}
}

// Cell is the top-left corner of one member's slot on the canvas.
type Cell struct {
	X int
	Y int
}

// Plan describes a complete collage layout for N members.
type Plan struct {
	Cols       int
	Rows       int
	CellWidth  int
	CellHeight int
	Padding    int
	Positions  []Cell
}

// ErrTooFewMembers is returned when a collage is requested for fewer than
// two images; single-member slides render as plain stills.
var ErrTooFewMembers = errors.New("collage requires at least two images")

// PlanGrid chooses a grid for count images on a width×height canvas:
// two images stack by orientation, three render as two-up with a centered
// third, four fill a 2×2 grid, and larger sets wrap at three columns.
// The result depends only on the inputs.
func PlanGrid(count, width, height int, orientations []Orientation) (Plan, error) {
	if count < 2 {
		return Plan{}, ErrTooFewMembers
	}

	padding := min(width, height) / 40
	if padding < 20 {
		padding = 20
	}

	var cols, rows int
	switch {
	case count == 2:
		first, second := orientationAt(orientations, 0), orientationAt(orientations, 1)
		if first == second && first == Landscape {
			cols, rows = 1, 2
		} else {
			cols, rows = 2, 1
		}
	case count <= 4:
		cols, rows = 2, 2
	default:
		cols = 3
		rows = (count + cols - 1) / cols
	}

	cellW, cellH := cellSize(width, height, cols, rows, padding)
	plan := Plan{
		Cols:       cols,
		Rows:       rows,
		CellWidth:  cellW,
		CellHeight: cellH,
		Padding:    padding,
		Positions:  positions(count, cols, cellW, cellH, padding),
	}
	return plan, nil
}

func orientationAt(orientations []Orientation, index int) Orientation {
	if index < len(orientations) {
		return orientations[index]
	}
	return Unknown
}

func cellSize(width, height, cols, rows, padding int) (int, int) {
	usableW := width - padding*(cols+1)
	usableH := height - padding*(rows+1)
	cellW := usableW / cols
	cellH := usableH / rows
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}
	return cellW, cellH
}

func positions(count, cols, cellW, cellH, padding int) []Cell {
	colX := func(col int) int { return padding + col*(cellW+padding) }
	rowY := func(row int) int { return padding + row*(cellH+padding) }

	// Three images get a centered bottom cell instead of a ragged grid row.
	if count == 3 {
		contentWidth := cols*cellW + (cols-1)*padding
		centerX := padding + (contentWidth-cellW)/2
		return []Cell{
			{X: colX(0), Y: rowY(0)},
			{X: colX(1), Y: rowY(0)},
			{X: centerX, Y: rowY(1)},
		}
	}

	cells := make([]Cell, 0, count)
	for idx := 0; idx < count; idx++ {
		cells = append(cells, Cell{X: colX(idx % cols), Y: rowY(idx / cols)})
	}
	return cells
}
