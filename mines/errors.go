package mines

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWidth     = errors.New("invalid width")
	ErrInvalidHeight    = errors.New("invalid height")
	ErrInvalidMineCount = errors.New("invalid mine count")

	ErrGameAlreadyOver = errors.New("game is already over")
	ErrOutOfBounds     = errors.New("move out of bounds")
	ErrAlreadyRevealed = errors.New("cell is already revealed")
)

type InvalidBoardParamsError struct {
	Kind   error
	Width  int
	Height int
	Mines  int
}

type InvalidMoveError struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (e InvalidBoardParamsError) Error() string {
	switch e.Kind {
	case ErrInvalidWidth:
		return fmt.Sprintf("width must be between %d and %d, got %d", MinSide, MaxSide, e.Width)
	case ErrInvalidHeight:
		return fmt.Sprintf("height must be between %d and %d, got %d", MinSide, MaxSide, e.Height)
	case ErrInvalidMineCount:
		return fmt.Sprintf("mines count must be between 1 and %d, got %d", e.Width*e.Height-1, e.Mines)
	default:
		return "Cannot construct board: unknown error"
	}
}

func (e InvalidBoardParamsError) Unwrap() error {
	return e.Kind
}

func (e InvalidMoveError) Error() string {
	return fmt.Sprintf("Move out of range - (%d, %d) - Board (%d, %d)", e.X, e.Y, e.Width, e.Height)
}

func (e InvalidMoveError) Unwrap() error {
	return ErrOutOfBounds
}
