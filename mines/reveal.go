package mines

import "strconv"

// CellState is what the player sees: Hidden, MineMarker or a revealed
// count 0-8.
type CellState int8

const (
	Hidden     CellState = -1
	MineMarker CellState = -2
)

func (s CellState) Revealed() bool {
	return s != Hidden
}

func (s CellState) String() string {
	switch {
	case s == Hidden:
		return " "
	case s == MineMarker:
		return "X"
	case s >= 0 && s <= 8:
		return strconv.Itoa(int(s))
	default:
		return "!"
	}
}

// ParseCellState is the inverse of CellState.String.
func ParseCellState(token string) (CellState, bool) {
	switch token {
	case " ":
		return Hidden, true
	case "X":
		return MineMarker, true
	}
	if len(token) == 1 && token[0] >= '0' && token[0] <= '8' {
		return CellState(token[0] - '0'), true
	}
	return Hidden, false
}

type Overlay struct {
	Width  int
	Height int
	cells  []CellState
}

func NewOverlay(width, height int) *Overlay {
	cells := make([]CellState, width*height)
	for i := range cells {
		cells[i] = Hidden
	}
	return &Overlay{Width: width, Height: height, cells: cells}
}

func (o *Overlay) At(x, y int) CellState {
	return o.cells[y*o.Width+x]
}

func (o *Overlay) set(x, y int, s CellState) {
	o.cells[y*o.Width+x] = s
}

// HiddenCells counts cells the player has not uncovered yet.
func (o *Overlay) HiddenCells() int {
	hidden := 0
	for _, c := range o.cells {
		if c == Hidden {
			hidden++
		}
	}
	return hidden
}

type RevealEffect int

const (
	RevealedSingle RevealEffect = iota
	RevealedRegion
	RevealedMine
)

// Reveal uncovers (x, y), which the caller guarantees is in bounds and
// hidden. Zero cells are expanded with Cascade. A mine leaves the overlay
// untouched and reports RevealedMine.
func Reveal(board *Board, overlay *Overlay, x, y int) (RevealEffect, []Point) {
	value := board.At(x, y)
	switch {
	case value == Mine:
		return RevealedMine, nil
	case value == 0:
		return RevealedRegion, Cascade(board, overlay, x, y)
	default:
		overlay.set(x, y, CellState(value))
		return RevealedSingle, []Point{{x, y}}
	}
}

// Cascade reveals the zero cell at (x, y) and flood fills through
// connected zero cells, also uncovering their numbered border. Cells are
// marked before they are queued, so each is processed at most once.
func Cascade(board *Board, overlay *Overlay, x, y int) []Point {
	overlay.set(x, y, CellState(board.At(x, y)))
	updated := []Point{{x, y}}
	queue := []Point{{x, y}}
	for len(queue) > 0 {
		cell := queue[0]
		queue = queue[1:]
		for _, n := range board.GetNeighbouringCells(cell.X, cell.Y) {
			value := board.At(n.X, n.Y)
			if overlay.At(n.X, n.Y) != Hidden || value == Mine {
				continue
			}
			overlay.set(n.X, n.Y, CellState(value))
			updated = append(updated, n)
			if value == 0 {
				queue = append(queue, n)
			}
		}
	}
	return updated
}
