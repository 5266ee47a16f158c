package mines

import (
	"fmt"
	"math/rand/v2"
)

const (
	MinSide = 2
	MaxSide = 30
)

// CellValue is the hidden content of a cell: Mine or the number of
// neighbouring mines (0-8).
type CellValue int8

const Mine CellValue = -1

type GameParams struct {
	Width  int
	Height int
	Mines  int
}

// RandomSource is satisfied by *rand.Rand from math/rand/v2.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the math/rand/v2 global generator.
var DefaultSource RandomSource = globalSource{}

// Board is the immutable hidden field. Cells are stored row-major.
type Board struct {
	Width  int
	Height int
	Mines  int
	cells  []CellValue
}

type Point struct {
	X int
	Y int
}

// Order matters only for reproducible traversal.
var neighbourOffsets = [8]Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

func (p GameParams) MaxMines() int {
	return p.Width*p.Height - 1
}

// Validate checks width, height and mine count in that order and reports the
// first failure.
func (p GameParams) Validate() error {
	switch {
	case p.Width < MinSide || p.Width > MaxSide:
		return &InvalidBoardParamsError{Kind: ErrInvalidWidth, Width: p.Width, Height: p.Height, Mines: p.Mines}
	case p.Height < MinSide || p.Height > MaxSide:
		return &InvalidBoardParamsError{Kind: ErrInvalidHeight, Width: p.Width, Height: p.Height, Mines: p.Mines}
	case p.Mines < 1 || p.Mines > p.MaxMines():
		return &InvalidBoardParamsError{Kind: ErrInvalidMineCount, Width: p.Width, Height: p.Height, Mines: p.Mines}
	}
	return nil
}

func newEmptyBoard(params GameParams) *Board {
	return &Board{
		Width:  params.Width,
		Height: params.Height,
		Mines:  params.Mines,
		cells:  make([]CellValue, params.Width*params.Height),
	}
}

// GenerateBoard places mines by rejection sampling: draw a random cell and
// keep it only if it is not already mined. With N cells and M mines the
// expected number of draws is N*(H(N)-H(N-M)), about N*ln(N) when M = N-1,
// which stays below 6200 draws on a 30x30 board.
// Params must already be valid.
func GenerateBoard(params GameParams, rng RandomSource) *Board {
	if rng == nil {
		rng = DefaultSource
	}
	board := newEmptyBoard(params)
	placed := 0
	for placed < params.Mines {
		x := rng.IntN(params.Width)
		y := rng.IntN(params.Height)
		if board.cells[board.index(x, y)] == Mine {
			continue
		}
		board.cells[board.index(x, y)] = Mine
		placed++
	}
	board.countNeighbouringMines()
	return board
}

// NewBoardWithMines builds a board with mines at the given positions.
func NewBoardWithMines(width, height int, mines []Point) (*Board, error) {
	params := GameParams{Width: width, Height: height, Mines: len(mines)}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	board := newEmptyBoard(params)
	for _, p := range mines {
		if !board.ValidCellIndex(p.X, p.Y) {
			return nil, &InvalidMoveError{X: p.X, Y: p.Y, Width: width, Height: height}
		}
		if board.cells[board.index(p.X, p.Y)] == Mine {
			return nil, fmt.Errorf("duplicate mine at (%d, %d)", p.X, p.Y)
		}
		board.cells[board.index(p.X, p.Y)] = Mine
	}
	board.countNeighbouringMines()
	return board, nil
}

func (board *Board) countNeighbouringMines() {
	for y := 0; y < board.Height; y++ {
		for x := 0; x < board.Width; x++ {
			i := board.index(x, y)
			if board.cells[i] == Mine {
				continue
			}
			count := 0
			for _, n := range board.GetNeighbouringCells(x, y) {
				if board.At(n.X, n.Y) == Mine {
					count++
				}
			}
			board.cells[i] = CellValue(count)
		}
	}
}

func (board *Board) index(x, y int) int {
	return y*board.Width + x
}

func (board *Board) ValidCellIndex(x, y int) bool {
	return !(x < 0 || x >= board.Width || y >= board.Height || y < 0)
}

// At returns the hidden value of an in-bounds cell.
func (board *Board) At(x, y int) CellValue {
	return board.cells[board.index(x, y)]
}

// GetNeighbouringCells returns the in-bounds neighbours of (x, y) in
// up-left to down-right order.
func (board *Board) GetNeighbouringCells(x, y int) []Point {
	cells := make([]Point, 0, len(neighbourOffsets))
	for _, offset := range neighbourOffsets {
		nx, ny := x+offset.X, y+offset.Y
		if board.ValidCellIndex(nx, ny) {
			cells = append(cells, Point{nx, ny})
		}
	}
	return cells
}

// MinePositions lists mines in row-major order.
func (board *Board) MinePositions() []Point {
	positions := make([]Point, 0, board.Mines)
	for y := 0; y < board.Height; y++ {
		for x := 0; x < board.Width; x++ {
			if board.At(x, y) == Mine {
				positions = append(positions, Point{x, y})
			}
		}
	}
	return positions
}

func (board *Board) Params() GameParams {
	return GameParams{Width: board.Width, Height: board.Height, Mines: board.Mines}
}
