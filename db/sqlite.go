package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrStoreClosed = errors.New("store is closed")

// Store persists the player's preferences and a log of played rounds.
// Learned predictor state is never written here.
type Store struct {
	database *sql.DB
	closed   atomic.Bool
}

// Open initializes the SQLite database
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS preferences (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS rounds (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        predictor VARCHAR(50) NOT NULL,
        option_count INTEGER NOT NULL,
        user_choice INTEGER NOT NULL,
        prediction INTEGER NOT NULL,
        correct INTEGER NOT NULL,
        played_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_rounds_predictor ON rounds(predictor);
    CREATE TABLE IF NOT EXISTS bench_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        predictor VARCHAR(50) NOT NULL,
        player VARCHAR(50) NOT NULL,
        option_count INTEGER NOT NULL,
        rounds INTEGER NOT NULL,
        accuracy REAL NOT NULL,
        ran_at DATETIME NOT NULL
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{database: database}, nil
}

// Close is safe to call more than once and concurrently with queries; a query
// racing the close fails with the driver's closed-database error.
func (s *Store) Close() error {
	if s == nil || s.closed.Swap(true) {
		return nil
	}
	return s.database.Close()
}

func (s *Store) ready() error {
	if s == nil || s.closed.Load() {
		return ErrStoreClosed
	}
	return nil
}

func (s *Store) SavePreference(ctx context.Context, key, value string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// LoadPreference returns ok=false when the key has never been saved.
func (s *Store) LoadPreference(ctx context.Context, key string) (string, bool, error) {
	if err := s.ready(); err != nil {
		return "", false, err
	}
	var value string
	err := s.database.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

type RoundRecord struct {
	SessionID   string    `json:"session_id"`
	Predictor   string    `json:"predictor"`
	OptionCount int       `json:"option_count"`
	UserChoice  int       `json:"user_choice"`
	Prediction  int       `json:"prediction"`
	Correct     bool      `json:"correct"`
	PlayedAt    time.Time `json:"played_at"`
}

func (s *Store) SaveRound(ctx context.Context, record RoundRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if record.PlayedAt.IsZero() {
		record.PlayedAt = time.Now().UTC()
	}
	_, err := s.database.ExecContext(ctx, `
        INSERT INTO rounds (session_id, predictor, option_count, user_choice, prediction, correct, played_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID, record.Predictor, record.OptionCount,
		record.UserChoice, record.Prediction, record.Correct, record.PlayedAt)
	return err
}

type PredictorStats struct {
	Predictor string  `json:"predictor"`
	Rounds    int     `json:"rounds"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// LoadPredictorStats aggregates the round log per predictor.
func (s *Store) LoadPredictorStats(ctx context.Context) ([]PredictorStats, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT predictor, COUNT(*), COALESCE(SUM(correct), 0)
        FROM rounds
        GROUP BY predictor
        ORDER BY predictor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]PredictorStats, 0)
	for rows.Next() {
		var st PredictorStats
		if err := rows.Scan(&st.Predictor, &st.Rounds, &st.Correct); err != nil {
			return nil, err
		}
		if st.Rounds > 0 {
			st.Accuracy = float64(st.Correct) / float64(st.Rounds)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

type BenchResult struct {
	Predictor   string    `json:"predictor"`
	Player      string    `json:"player"`
	OptionCount int       `json:"option_count"`
	Rounds      int       `json:"rounds"`
	Accuracy    float64   `json:"accuracy"`
	RanAt       time.Time `json:"ran_at"`
}

func (s *Store) SaveBenchResults(ctx context.Context, results []BenchResult) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO bench_log (predictor, player, option_count, rounds, accuracy, ran_at)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range results {
		ranAt := r.RanAt
		if ranAt.IsZero() {
			ranAt = now
		}
		if _, err := stmt.ExecContext(ctx, r.Predictor, r.Player, r.OptionCount, r.Rounds, r.Accuracy, ranAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadBenchLog(ctx context.Context, limit int) ([]BenchResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT predictor, player, option_count, rounds, accuracy, ran_at
        FROM bench_log
        ORDER BY ran_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]BenchResult, 0)
	for rows.Next() {
		var r BenchResult
		if err := rows.Scan(&r.Predictor, &r.Player, &r.OptionCount, &r.Rounds, &r.Accuracy, &r.RanAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
