package mines_test

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/tomasstrnad1997/sweeper/mines"
)

func seededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func threeByThree(t *testing.T) *mines.Board {
	t.Helper()
	board, err := mines.NewBoardWithMines(3, 3, []mines.Point{{X: 2, Y: 2}})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	return board
}

func bruteForceCount(board *mines.Board, x, y int) int {
	count := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= board.Width || ny >= board.Height {
				continue
			}
			if board.At(nx, ny) == mines.Mine {
				count++
			}
		}
	}
	return count
}

func hiddenCells(game *mines.Game) int {
	return strings.Count(game.Snapshot().Overlay, " ")
}

func TestGeneratedBoards(t *testing.T) {
	params := []mines.GameParams{
		{Width: 2, Height: 2, Mines: 1},
		{Width: 2, Height: 2, Mines: 3},
		{Width: 5, Height: 7, Mines: 10},
		{Width: 30, Height: 30, Mines: 1},
		{Width: 30, Height: 30, Mines: 899},
		{Width: 16, Height: 30, Mines: 99},
	}
	for i, p := range params {
		board := mines.GenerateBoard(p, seededSource(uint64(i)))
		if got := len(board.MinePositions()); got != p.Mines {
			t.Fatalf("%+v: expected %d mines, got %d", p, p.Mines, got)
		}
		for y := 0; y < board.Height; y++ {
			for x := 0; x < board.Width; x++ {
				value := board.At(x, y)
				if value == mines.Mine {
					continue
				}
				if want := bruteForceCount(board, x, y); int(value) != want {
					t.Fatalf("%+v: cell (%d, %d) has count %d, expected %d", p, x, y, value, want)
				}
			}
		}
	}
}

func TestThreeByThreeCounts(t *testing.T) {
	board := threeByThree(t)
	expected := [][]mines.CellValue{
		{0, 0, 0},
		{0, 1, 1},
		{0, 1, mines.Mine},
	}
	for y, row := range expected {
		for x, want := range row {
			if got := board.At(x, y); got != want {
				t.Fatalf("Cell (%d, %d): expected %d, got %d", x, y, want, got)
			}
		}
	}
}

func TestParamsValidation(t *testing.T) {
	cases := []struct {
		params mines.GameParams
		want   error
	}{
		{mines.GameParams{Width: 1, Height: 5, Mines: 1}, mines.ErrInvalidWidth},
		{mines.GameParams{Width: 31, Height: 5, Mines: 1}, mines.ErrInvalidWidth},
		{mines.GameParams{Width: 1, Height: 1, Mines: 0}, mines.ErrInvalidWidth},
		{mines.GameParams{Width: 5, Height: 1, Mines: 0}, mines.ErrInvalidHeight},
		{mines.GameParams{Width: 5, Height: 31, Mines: 1}, mines.ErrInvalidHeight},
		{mines.GameParams{Width: 5, Height: 5, Mines: 25}, mines.ErrInvalidMineCount},
		{mines.GameParams{Width: 5, Height: 5, Mines: 0}, mines.ErrInvalidMineCount},
		{mines.GameParams{Width: 5, Height: 5, Mines: 24}, nil},
		{mines.GameParams{Width: 2, Height: 30, Mines: 1}, nil},
	}
	for _, c := range cases {
		err := c.params.Validate()
		if c.want == nil {
			if err != nil {
				t.Fatalf("%+v: unexpected error %v", c.params, err)
			}
			continue
		}
		if !errors.Is(err, c.want) {
			t.Fatalf("%+v: expected %v, got %v", c.params, c.want, err)
		}
		var paramsErr *mines.InvalidBoardParamsError
		if !errors.As(err, &paramsErr) {
			t.Fatalf("%+v: expected InvalidBoardParamsError, got %T", c.params, err)
		}
	}
}

func TestCreateGameRejectsInvalidParams(t *testing.T) {
	game, err := mines.CreateGame("g", mines.GameParams{Width: 5, Height: 5, Mines: 25}, nil)
	if game != nil || !errors.Is(err, mines.ErrInvalidMineCount) {
		t.Fatalf("Expected ErrInvalidMineCount, got %v", err)
	}
}

func TestFloodRevealWins(t *testing.T) {
	game := mines.NewGame("flood", threeByThree(t))
	result, err := game.Reveal(0, 0)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if result.Result != mines.GameWon || result.Status != mines.Won {
		t.Fatalf("Expected GameWon, got %v (%v)", result.Result, result.Status)
	}
	if len(result.UpdatedCells) != 8 {
		t.Fatalf("Expected 8 revealed cells, got %d", len(result.UpdatedCells))
	}
	if hidden := hiddenCells(game); hidden != 1 {
		t.Fatalf("Expected 1 hidden cell, got %d", hidden)
	}
	expected := [][]string{
		{"0", "0", "0"},
		{"0", "1", "1"},
		{"0", "1", "X"},
	}
	assertField(t, result.Field, expected)
	assertField(t, game.Field(), expected)
}

func TestRevealMineLoses(t *testing.T) {
	game := mines.NewGame("boom", threeByThree(t))
	result, err := game.Reveal(2, 2)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if result.Result != mines.MineBlown || game.Status() != mines.Lost {
		t.Fatalf("Expected MineBlown, got %v (%v)", result.Result, game.Status())
	}
	assertField(t, result.Field, [][]string{
		{"0", "0", "0"},
		{"0", "1", "1"},
		{"0", "1", "X"},
	})
	if _, err := game.Reveal(0, 0); !errors.Is(err, mines.ErrGameAlreadyOver) {
		t.Fatalf("Expected ErrGameAlreadyOver, got %v", err)
	}
}

func TestLossKeepsRevealedCells(t *testing.T) {
	board, err := mines.NewBoardWithMines(4, 3, []mines.Point{{X: 0, Y: 0}, {X: 3, Y: 2}})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	game := mines.NewGame("keep", board)
	if _, err := game.Reveal(1, 1); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	before := game.Snapshot().Overlay
	result, err := game.Reveal(3, 2)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if result.Status != mines.Lost {
		t.Fatalf("Expected lost game, got %v", result.Status)
	}
	after := game.Snapshot().Overlay
	for i := range before {
		x, y := i%board.Width, i/board.Width
		switch {
		case board.At(x, y) == mines.Mine:
			if after[i] != 'X' {
				t.Fatalf("Mine at (%d, %d) not marked, got %q", x, y, after[i])
			}
		case after[i] != before[i]:
			t.Fatalf("Cell (%d, %d) changed from %q to %q", x, y, before[i], after[i])
		}
	}
	if len(result.UpdatedCells) != 2 {
		t.Fatalf("Expected both mines in update, got %d cells", len(result.UpdatedCells))
	}
}

func TestRevealTwiceIsRejected(t *testing.T) {
	board, err := mines.NewBoardWithMines(4, 4, []mines.Point{{X: 0, Y: 3}, {X: 3, Y: 0}})
	if err != nil {
		t.Fatalf("Failed to create board: %v", err)
	}
	game := mines.NewGame("twice", board)
	if _, err := game.Reveal(1, 3); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if _, err := game.Reveal(3, 1); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	moves := game.Moves()
	if _, err := game.Reveal(1, 3); !errors.Is(err, mines.ErrAlreadyRevealed) {
		t.Fatalf("Expected ErrAlreadyRevealed, got %v", err)
	}
	if game.Moves() != moves {
		t.Fatalf("Rejected move was counted")
	}
}

func TestOutOfBoundsLeavesGameUnchanged(t *testing.T) {
	game := mines.NewGame("bounds", threeByThree(t))
	before := game.Snapshot()
	for _, p := range []mines.Point{{X: 3, Y: 0}, {X: 0, Y: 3}, {X: -1, Y: 0}, {X: 0, Y: -1}} {
		_, err := game.Reveal(p.X, p.Y)
		if !errors.Is(err, mines.ErrOutOfBounds) {
			t.Fatalf("%v: expected ErrOutOfBounds, got %v", p, err)
		}
		var moveErr *mines.InvalidMoveError
		if !errors.As(err, &moveErr) || moveErr.X != p.X || moveErr.Y != p.Y {
			t.Fatalf("%v: expected InvalidMoveError with coordinates, got %v", p, err)
		}
	}
	after := game.Snapshot()
	if after.Overlay != before.Overlay || after.Status != mines.InProgress || after.Moves != 0 {
		t.Fatalf("Game changed after rejected moves")
	}
}

func TestZeroRevealUncoversNeighbouringZeros(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		params := mines.GameParams{Width: 12, Height: 9, Mines: 15}
		board := mines.GenerateBoard(params, seededSource(seed))
		for y := 0; y < board.Height; y++ {
			for x := 0; x < board.Width; x++ {
				if board.At(x, y) != 0 {
					continue
				}
				overlay := mines.NewOverlay(board.Width, board.Height)
				effect, _ := mines.Reveal(board, overlay, x, y)
				if effect != mines.RevealedRegion {
					t.Fatalf("Expected region reveal at (%d, %d), got %v", x, y, effect)
				}
				assertNoHiddenZeroNextToRevealedZero(t, board, overlay)
			}
		}
	}
}

func assertNoHiddenZeroNextToRevealedZero(t *testing.T, board *mines.Board, overlay *mines.Overlay) {
	t.Helper()
	for y := 0; y < board.Height; y++ {
		for x := 0; x < board.Width; x++ {
			if overlay.At(x, y) != 0 {
				continue
			}
			for _, n := range board.GetNeighbouringCells(x, y) {
				if board.At(n.X, n.Y) == 0 && overlay.At(n.X, n.Y) == mines.Hidden {
					t.Fatalf("Zero at (%d, %d) left hidden next to revealed zero (%d, %d)", n.X, n.Y, x, y)
				}
			}
		}
	}
}

func TestNumberRevealIsSingle(t *testing.T) {
	board := threeByThree(t)
	overlay := mines.NewOverlay(3, 3)
	effect, updated := mines.Reveal(board, overlay, 1, 1)
	if effect != mines.RevealedSingle || len(updated) != 1 {
		t.Fatalf("Expected single reveal, got %v with %d cells", effect, len(updated))
	}
	if overlay.HiddenCells() != 8 {
		t.Fatalf("Expected 8 hidden cells, got %d", overlay.HiddenCells())
	}
}

func TestRevealMineDoesNotTouchOverlay(t *testing.T) {
	board := threeByThree(t)
	overlay := mines.NewOverlay(3, 3)
	effect, updated := mines.Reveal(board, overlay, 2, 2)
	if effect != mines.RevealedMine || updated != nil {
		t.Fatalf("Expected mine effect, got %v", effect)
	}
	if overlay.HiddenCells() != 9 {
		t.Fatalf("Overlay changed on mine reveal")
	}
}

func TestWinIffOnlyMinesHidden(t *testing.T) {
	for seed := uint64(0); seed < 30; seed++ {
		rng := seededSource(seed)
		game, err := mines.CreateGame("random", mines.GameParams{Width: 8, Height: 6, Mines: 6}, rng)
		if err != nil {
			t.Fatalf("Failed to create game: %v", err)
		}
		for game.Status() == mines.InProgress {
			x, y := rng.IntN(8), rng.IntN(6)
			result, err := game.Reveal(x, y)
			if errors.Is(err, mines.ErrAlreadyRevealed) {
				continue
			}
			if err != nil {
				t.Fatalf("Reveal failed: %v", err)
			}
			if result.Status == mines.Lost {
				break
			}
			won := result.Status == mines.Won
			if won != (hiddenCells(game) == 6) {
				t.Fatalf("Seed %d: status %v with %d hidden cells", seed, result.Status, hiddenCells(game))
			}
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	game, err := mines.CreateGame("snap", mines.GameParams{Width: 10, Height: 7, Mines: 9}, seededSource(7))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	for y := 0; y < 7 && game.Status() == mines.InProgress; y += 3 {
		game.Reveal(y, y/2)
	}
	snapshot := game.Snapshot()
	restored, err := mines.RestoreGame(snapshot)
	if err != nil {
		t.Fatalf("Failed to restore game: %v", err)
	}
	again := restored.Snapshot()
	if again.Overlay != snapshot.Overlay || again.Status != snapshot.Status || again.Moves != snapshot.Moves {
		t.Fatalf("Restored game does not match original")
	}
	assertField(t, restored.Field(), game.Field())
}

func TestRestoreRejectsInconsistentOverlay(t *testing.T) {
	snapshot := mines.NewGame("bad", threeByThree(t)).Snapshot()
	snapshot.Overlay = "5" + snapshot.Overlay[1:]
	if _, err := mines.RestoreGame(snapshot); err == nil {
		t.Fatalf("Expected error for overlay that contradicts board")
	}
	snapshot.Overlay = "X" + snapshot.Overlay[1:]
	if _, err := mines.RestoreGame(snapshot); err == nil {
		t.Fatalf("Expected error for mine marker on safe cell")
	}
}

func TestRestoreRejectsStatusMismatch(t *testing.T) {
	// 3x3 board with its only mine at (2,2), row-major overlay.
	solved := "000011" + "01 "
	cases := []struct {
		name    string
		overlay string
		status  mines.Status
	}{
		{"in progress with only mines hidden", solved, mines.InProgress},
		{"in progress with mine marker", "         "[:8] + "X", mines.InProgress},
		{"won with safe cells hidden", "         ", mines.Won},
		{"lost without mine marker", "         ", mines.Lost},
		{"won with mine marker", "00001101X", mines.Won},
	}
	for _, c := range cases {
		snapshot := mines.NewGame("bad", threeByThree(t)).Snapshot()
		snapshot.Overlay = c.overlay
		snapshot.Status = c.status
		if _, err := mines.RestoreGame(snapshot); err == nil {
			t.Fatalf("%s: expected restore to fail", c.name)
		}
	}

	valid := []struct {
		overlay string
		status  mines.Status
	}{
		{"         ", mines.InProgress},
		{solved, mines.Won},
		{"        X", mines.Lost},
		{"0000110 X", mines.Lost},
	}
	for _, v := range valid {
		snapshot := mines.NewGame("good", threeByThree(t)).Snapshot()
		snapshot.Overlay = v.overlay
		snapshot.Status = v.status
		if _, err := mines.RestoreGame(snapshot); err != nil {
			t.Fatalf("Overlay %q as %s should restore: %v", v.overlay, v.status, err)
		}
	}
}

func TestRollbackUndoesLastMove(t *testing.T) {
	game := mines.NewGame("undo", threeByThree(t))
	before := game.Snapshot()
	if _, err := game.Reveal(0, 0); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if game.Status() != mines.Won {
		t.Fatalf("Expected win, got %s", game.Status())
	}
	if err := game.Rollback(before); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if game.Status() != mines.InProgress || game.Moves() != 0 {
		t.Fatalf("Expected fresh game after rollback, got %s after %d moves", game.Status(), game.Moves())
	}
	if game.Snapshot().Overlay != before.Overlay {
		t.Fatalf("Overlay not restored")
	}
	if _, err := game.Reveal(0, 0); err != nil {
		t.Fatalf("Move should be playable again: %v", err)
	}

	if err := game.Rollback(before); err != nil {
		t.Fatalf("Rollback of the replayed move failed: %v", err)
	}
	game.Reveal(1, 1)
	game.Reveal(0, 0)
	if err := game.Rollback(before); err == nil {
		t.Fatalf("Expected rollback across two moves to fail")
	}
}

func TestCellStateTokens(t *testing.T) {
	for _, token := range []string{" ", "X", "0", "4", "8"} {
		state, ok := mines.ParseCellState(token)
		if !ok || state.String() != token {
			t.Fatalf("Token %q did not round trip", token)
		}
	}
	for _, token := range []string{"9", "M", "", "10"} {
		if _, ok := mines.ParseCellState(token); ok {
			t.Fatalf("Token %q should be invalid", token)
		}
	}
}

func assertField(t *testing.T, got, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(got))
	}
	for y := range want {
		if strings.Join(got[y], "|") != strings.Join(want[y], "|") {
			t.Fatalf("Row %d: expected %q, got %q", y, want[y], got[y])
		}
	}
}

func TestFormatField(t *testing.T) {
	game := mines.NewGame("print", threeByThree(t))
	if _, err := game.Reveal(1, 1); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	want := " 012\n0###\n1#1#\n2###\n"
	if got := mines.FormatField(game.Field()); got != want {
		t.Fatalf("Expected\n%s\ngot\n%s", want, got)
	}
}
