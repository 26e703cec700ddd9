package results

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/averdin/gamebots/internal/game"
)

// Store persists resolved rounds in a sqlite database, one row per
// resolution. The bot treats it as best-effort: a failed insert is logged by
// the caller and the game moves on.
type Store struct {
	db *sql.DB
}

var _ game.ResultSink = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS rounds(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		guess TEXT NOT NULL,
		correct INTEGER NOT NULL,
		points INTEGER NOT NULL,
		timeout INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create rounds table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) RecordRound(ctx context.Context, r game.RoundResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds(room_id, round, guess, correct, points, timeout)
		 VALUES(?,?,?,?,?,?)`,
		r.RoomID, r.Round, r.Guess, r.Correct, r.Points, r.Timeout,
	)
	return err
}

// RoomRounds returns a room's rounds in play order.
func (s *Store) RoomRounds(ctx context.Context, roomID string) ([]game.RoundResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, round, guess, correct, points, timeout
		 FROM rounds WHERE room_id=? ORDER BY round ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []game.RoundResult
	for rows.Next() {
		var r game.RoundResult
		if err := rows.Scan(&r.RoomID, &r.Round, &r.Guess, &r.Correct, &r.Points, &r.Timeout); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RoomScore sums a room's points.
func (s *Store) RoomScore(ctx context.Context, roomID string) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points), 0) FROM rounds WHERE room_id=?`, roomID).Scan(&score)
	return score, err
}

func (s *Store) Close() error { return s.db.Close() }
