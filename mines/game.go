package mines

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type Status int

const (
	InProgress Status = iota
	Won
	Lost
)

var statusNames = map[Status]string{
	InProgress: "in_progress",
	Won:        "won",
	Lost:       "lost",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) Finished() bool {
	return s == Won || s == Lost
}

func ParseStatus(name string) (Status, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return InProgress, fmt.Errorf("unknown game status %q", name)
}

type MoveResultType int

const (
	CellRevealed MoveResultType = iota
	RegionRevealed
	MineBlown
	GameWon
)

func (t MoveResultType) String() string {
	switch t {
	case CellRevealed:
		return "CellRevealed"
	case RegionRevealed:
		return "RegionRevealed"
	case MineBlown:
		return "MineBlown"
	case GameWon:
		return "GameWon"
	default:
		return "UNKNOWN"
	}
}

type UpdatedCell struct {
	X     int
	Y     int
	Value string
}

type MoveResult struct {
	Result       MoveResultType
	UpdatedCells []UpdatedCell
	Status       Status
	Field        [][]string
}

// Game is one session. All methods are safe for concurrent use; moves on
// the same game are serialised by mu.
type Game struct {
	ID        string
	Params    GameParams
	CreatedAt time.Time

	mu      sync.Mutex
	board   *Board
	overlay *Overlay
	status  Status
	moves   int
}

// CreateGame validates params and generates a fresh board.
func CreateGame(id string, params GameParams, rng RandomSource) (*Game, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return NewGame(id, GenerateBoard(params, rng)), nil
}

// NewGame wraps an existing board with an all hidden overlay.
func NewGame(id string, board *Board) *Game {
	return &Game{
		ID:        id,
		Params:    board.Params(),
		CreatedAt: time.Now().UTC(),
		board:     board,
		overlay:   NewOverlay(board.Width, board.Height),
		status:    InProgress,
	}
}

func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

func (g *Game) Moves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moves
}

// Field returns the player's view as field[row][col].
func (g *Game) Field() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.field()
}

// View returns the field together with the status it was projected for.
func (g *Game) View() ([][]string, Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.field(), g.status
}

// Reveal applies a reveal move at column x, row y. Errors leave the game
// unchanged.
func (g *Game) Reveal(x, y int) (*MoveResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status.Finished() {
		return nil, ErrGameAlreadyOver
	}
	if !g.board.ValidCellIndex(x, y) {
		return nil, &InvalidMoveError{X: x, Y: y, Width: g.board.Width, Height: g.board.Height}
	}
	if g.overlay.At(x, y).Revealed() {
		return nil, ErrAlreadyRevealed
	}

	effect, updated := Reveal(g.board, g.overlay, x, y)
	g.moves++
	result := &MoveResult{}

	switch effect {
	case RevealedMine:
		updated = g.board.MinePositions()
		for _, p := range updated {
			g.overlay.set(p.X, p.Y, MineMarker)
		}
		g.status = Lost
		result.Result = MineBlown
	case RevealedRegion:
		result.Result = RegionRevealed
	default:
		result.Result = CellRevealed
	}

	if g.status == InProgress && g.overlay.HiddenCells() == g.board.Mines {
		g.status = Won
		result.Result = GameWon
	}

	result.Status = g.status
	result.UpdatedCells = g.createUpdatedCells(updated)
	result.Field = g.field()
	return result, nil
}

func (g *Game) createUpdatedCells(points []Point) []UpdatedCell {
	updates := make([]UpdatedCell, len(points))
	for i, p := range points {
		updates[i] = UpdatedCell{X: p.X, Y: p.Y, Value: g.overlay.At(p.X, p.Y).String()}
	}
	return updates
}

// field projects the current state without aliasing the hidden board. A
// finished game shows the whole board with mines as "X".
func (g *Game) field() [][]string {
	rows := make([][]string, g.board.Height)
	for y := range rows {
		row := make([]string, g.board.Width)
		for x := range row {
			if g.status.Finished() {
				row[x] = solvedToken(g.board.At(x, y))
			} else {
				row[x] = g.overlay.At(x, y).String()
			}
		}
		rows[y] = row
	}
	return rows
}

func solvedToken(v CellValue) string {
	if v == Mine {
		return MineMarker.String()
	}
	return CellState(v).String()
}

// Snapshot is a self-contained copy of a game used for persistence.
// Overlay holds one CellState token per cell in row-major order.
type Snapshot struct {
	ID        string
	Params    GameParams
	Mines     []Point
	Overlay   string
	Status    Status
	Moves     int
	CreatedAt time.Time
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	var overlay strings.Builder
	overlay.Grow(len(g.overlay.cells))
	for _, c := range g.overlay.cells {
		overlay.WriteString(c.String())
	}
	return Snapshot{
		ID:        g.ID,
		Params:    g.Params,
		Mines:     g.board.MinePositions(),
		Overlay:   overlay.String(),
		Status:    g.status,
		Moves:     g.moves,
		CreatedAt: g.CreatedAt,
	}
}

// RestoreGame rebuilds a game from a snapshot, rejecting overlays that do
// not agree with the mine layout or with the recorded status.
func RestoreGame(s Snapshot) (*Game, error) {
	board, err := NewBoardWithMines(s.Params.Width, s.Params.Height, s.Mines)
	if err != nil {
		return nil, err
	}
	if board.Params() != s.Params {
		return nil, fmt.Errorf("snapshot %s: mine list does not match params", s.ID)
	}
	overlay, err := parseOverlay(board, s)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(board, overlay, s); err != nil {
		return nil, err
	}
	return &Game{
		ID:        s.ID,
		Params:    s.Params,
		CreatedAt: s.CreatedAt,
		board:     board,
		overlay:   overlay,
		status:    s.Status,
		moves:     s.Moves,
	}, nil
}

// Rollback undoes the single move applied since s was taken. It fails if
// any other move has landed in between.
func (g *Game) Rollback(s Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s.ID != g.ID || g.moves != s.Moves+1 {
		return fmt.Errorf("game %s: cannot roll back to move %d from move %d", g.ID, s.Moves, g.moves)
	}
	overlay, err := parseOverlay(g.board, s)
	if err != nil {
		return err
	}
	g.overlay = overlay
	g.status = s.Status
	g.moves = s.Moves
	return nil
}

func parseOverlay(board *Board, s Snapshot) (*Overlay, error) {
	if len(s.Overlay) != board.Width*board.Height {
		return nil, fmt.Errorf("snapshot %s: overlay has %d cells, want %d", s.ID, len(s.Overlay), board.Width*board.Height)
	}
	overlay := NewOverlay(board.Width, board.Height)
	for i := range overlay.cells {
		state, ok := ParseCellState(s.Overlay[i : i+1])
		x, y := i%board.Width, i/board.Width
		value := board.At(x, y)
		switch {
		case !ok:
			return nil, fmt.Errorf("snapshot %s: invalid token %q at (%d, %d)", s.ID, s.Overlay[i], x, y)
		case state == MineMarker && value != Mine,
			state >= 0 && CellState(value) != state:
			return nil, fmt.Errorf("snapshot %s: overlay disagrees with board at (%d, %d)", s.ID, x, y)
		}
		overlay.cells[i] = state
	}
	return overlay, nil
}

// checkStatus requires the overlay to be reachable under the recorded
// status: mine markers appear only once lost, and every mine is marked then.
func checkStatus(board *Board, overlay *Overlay, s Snapshot) error {
	markers := 0
	for _, c := range overlay.cells {
		if c == MineMarker {
			markers++
		}
	}
	hidden := overlay.HiddenCells()
	var ok bool
	switch s.Status {
	case InProgress:
		ok = markers == 0 && hidden > board.Mines
	case Won:
		ok = markers == 0 && hidden == board.Mines
	case Lost:
		ok = markers == board.Mines
	}
	if !ok {
		return fmt.Errorf("snapshot %s: overlay does not match status %s", s.ID, s.Status)
	}
	return nil
}
