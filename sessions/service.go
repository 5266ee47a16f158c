package sessions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/mines"
)

const maxIdAttempts = 8

type Service struct {
	Store SessionStore
	// Random must be safe for concurrent use.
	Random mines.RandomSource
	NewID  func() string
	Logger *zap.Logger
}

func NewService(store SessionStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:  store,
		Random: mines.DefaultSource,
		NewID:  uuid.NewString,
		Logger: logger,
	}
}

// CreateGame validates the size and mine count (width, then height, then
// mines), generates a board and stores the new game.
func (s *Service) CreateGame(ctx context.Context, width, height, minesCount int) (*mines.Game, error) {
	params := mines.GameParams{Width: width, Height: height, Mines: minesCount}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	id, err := s.uniqueId(ctx)
	if err != nil {
		return nil, err
	}
	game, err := mines.CreateGame(id, params, s.Random)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Put(ctx, game); err != nil {
		return nil, fmt.Errorf("store game %s: %w", id, err)
	}
	s.Logger.Info("game created",
		zap.String("game_id", id),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("mines", minesCount),
	)
	return game, nil
}

func (s *Service) uniqueId(ctx context.Context) (string, error) {
	for range maxIdAttempts {
		id := s.NewID()
		exists, err := s.Store.Contains(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check game id: %w", err)
		}
		if !exists {
			return id, nil
		}
		s.Logger.Warn("game id collision", zap.String("game_id", id))
	}
	return "", fmt.Errorf("no free game id after %d attempts", maxIdAttempts)
}

func (s *Service) Game(ctx context.Context, id string) (*mines.Game, error) {
	return s.Store.Get(ctx, id)
}

// ApplyMove reveals column x, row y of the game with the given id. If the
// store rejects the new state the move is rolled back and the game is left
// as it was.
func (s *Service) ApplyMove(ctx context.Context, id string, x, y int) (*mines.MoveResult, error) {
	game, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := game.Snapshot()
	result, err := game.Reveal(x, y)
	if err != nil {
		s.Logger.Debug("move rejected",
			zap.String("game_id", id),
			zap.Int("x", x),
			zap.Int("y", y),
			zap.Error(err),
		)
		return nil, err
	}
	// A move that could not be stored is undone so the caller may retry it.
	if err := s.Store.Put(ctx, game); err != nil {
		if rerr := game.Rollback(before); rerr != nil {
			s.Logger.Error("failed to roll back unsaved move", zap.String("game_id", id), zap.Error(rerr))
		}
		return nil, fmt.Errorf("store game %s: %w", id, err)
	}
	s.Logger.Info("move applied",
		zap.String("game_id", id),
		zap.Int("x", x),
		zap.Int("y", y),
		zap.Stringer("result", result.Result),
		zap.Int("updated_cells", len(result.UpdatedCells)),
	)
	if result.Status.Finished() {
		s.Logger.Info("game finished", zap.String("game_id", id), zap.Stringer("status", result.Status))
	}
	return result, nil
}
