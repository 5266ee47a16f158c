package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/mines"
	"github.com/tomasstrnad1997/sweeper/sessions"
)

//go:embed schema.sql
var ddl string

const (
	upsertGame = `
INSERT INTO games (id, width, height, mines_count, mines, overlay, status, completed, moves, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    overlay = excluded.overlay,
    status = excluded.status,
    completed = excluded.completed,
    moves = excluded.moves,
    updated_at = excluded.updated_at
WHERE excluded.moves > games.moves`

	selectGame = `
SELECT id, width, height, mines_count, mines, overlay, status, moves, created_at
FROM games WHERE id = ?`

	gameExists = `SELECT EXISTS(SELECT 1 FROM games WHERE id = ?)`

	countByStatus = `SELECT status, COUNT(*) FROM games GROUP BY status`
)

// SQLStore is a write-through session store. Loaded games stay cached so
// that every caller shares one *mines.Game and therefore one move lock.
type SQLStore struct {
	DB     *sql.DB
	Logger *zap.Logger

	loadMu sync.Mutex
	cache  *sessions.MemoryStore
}

func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func (s *SQLStore) InitializeTables() error {
	return InitializeTables(s.DB)
}

// InitStore opens the database named by DB_PATH.
func InitStore() (*SQLStore, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		return nil, fmt.Errorf("DB_PATH not set in environment")
	}
	return OpenStore(path, nil)
}

func OpenStore(path string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Need to ping the database to check if the file could be opened
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{DB: db, Logger: logger, cache: sessions.NewMemoryStore()}, nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) Put(ctx context.Context, game *mines.Game) error {
	snapshot := game.Snapshot()
	minesJSON, err := json.Marshal(snapshot.Mines)
	if err != nil {
		return err
	}
	now := time.Now().UTC().UnixNano()
	_, err = s.DB.ExecContext(ctx, upsertGame,
		snapshot.ID,
		snapshot.Params.Width,
		snapshot.Params.Height,
		snapshot.Params.Mines,
		string(minesJSON),
		snapshot.Overlay,
		snapshot.Status.String(),
		snapshot.Status.Finished(),
		snapshot.Moves,
		snapshot.CreatedAt.UnixNano(),
		now,
	)
	if err != nil {
		s.Logger.Error("failed to save game", zap.String("game_id", snapshot.ID), zap.Error(err))
		return fmt.Errorf("save game: %w", err)
	}
	return s.cache.Put(ctx, game)
}

func (s *SQLStore) Get(ctx context.Context, id string) (*mines.Game, error) {
	if game, err := s.cache.Get(ctx, id); err == nil {
		return game, nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if game, err := s.cache.Get(ctx, id); err == nil {
		return game, nil
	}
	game, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, game); err != nil {
		return nil, err
	}
	s.Logger.Debug("game loaded from database", zap.String("game_id", id))
	return game, nil
}

func (s *SQLStore) load(ctx context.Context, id string) (*mines.Game, error) {
	var (
		snapshot  mines.Snapshot
		minesJSON string
		status    string
		createdAt int64
	)
	err := s.DB.QueryRowContext(ctx, selectGame, id).Scan(
		&snapshot.ID,
		&snapshot.Params.Width,
		&snapshot.Params.Height,
		&snapshot.Params.Mines,
		&minesJSON,
		&snapshot.Overlay,
		&status,
		&snapshot.Moves,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessions.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(minesJSON), &snapshot.Mines); err != nil {
		return nil, fmt.Errorf("decode mines of game %s: %w", id, err)
	}
	if snapshot.Status, err = mines.ParseStatus(status); err != nil {
		return nil, err
	}
	snapshot.CreatedAt = time.Unix(0, createdAt).UTC()
	return mines.RestoreGame(snapshot)
}

func (s *SQLStore) Contains(ctx context.Context, id string) (bool, error) {
	if ok, _ := s.cache.Contains(ctx, id); ok {
		return true, nil
	}
	var exists bool
	if err := s.DB.QueryRowContext(ctx, gameExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check game %s: %w", id, err)
	}
	return exists, nil
}

// CountByStatus reports how many stored games are in each status.
func (s *SQLStore) CountByStatus(ctx context.Context) (map[mines.Status]int, error) {
	rows, err := s.DB.QueryContext(ctx, countByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[mines.Status]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		status, err := mines.ParseStatus(name)
		if err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
