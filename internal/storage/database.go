package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/progress"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn     *sql.DB
	validate *validator.Validate
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, validate: progress.NewValidator()}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load implements progress.Backend. Rows are checked the same way as
// records read from a progress file.
func (db *DB) Load(ctx context.Context) (map[int]domain.SchedulingState, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, last_reviewed_at, times_reviewed, ease_factor, interval_days, streak_count,
		       total_correct, total_incorrect, total_studied, correct_streak, incorrect_streak
		FROM progress
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query progress: %w", progress.ErrIO, err)
	}
	defer rows.Close()

	states := make(map[int]domain.SchedulingState)
	for rows.Next() {
		var (
			id         int
			lastReview sql.NullString
			s          domain.SchedulingState
		)
		if err := rows.Scan(
			&id,
			&lastReview,
			&s.TimesReviewed,
			&s.EaseFactor,
			&s.IntervalDays,
			&s.StreakCount,
			&s.TotalCorrect,
			&s.TotalIncorrect,
			&s.TotalStudied,
			&s.CorrectStreak,
			&s.IncorrectStreak,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan progress row: %w", progress.ErrFormat, err)
		}
		if lastReview.Valid {
			t, err := progress.ParseTimestamp(lastReview.String)
			if err != nil {
				return nil, fmt.Errorf("%w: card %d: %w", progress.ErrFormat, id, err)
			}
			s.LastReviewedAt = &t
		}
		if err := progress.ValidateState(db.validate, id, s); err != nil {
			return nil, err
		}
		states[id] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read progress rows: %w", progress.ErrIO, err)
	}
	return states, nil
}

// Save implements progress.Backend. The table is replaced inside one
// transaction, so a failed save leaves the previous records intact.
func (db *DB) Save(ctx context.Context, records map[int]domain.SchedulingState) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", progress.ErrIO, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return fmt.Errorf("%w: failed to clear progress: %w", progress.ErrIO, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO progress (id, last_reviewed_at, times_reviewed, ease_factor, interval_days, streak_count,
		                      total_correct, total_incorrect, total_studied, correct_streak, incorrect_streak)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %w", progress.ErrIO, err)
	}
	defer stmt.Close()

	for id, s := range records {
		var lastReview sql.NullString
		if s.LastReviewedAt != nil {
			lastReview = sql.NullString{String: progress.FormatTimestamp(*s.LastReviewedAt), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			id,
			lastReview,
			s.TimesReviewed,
			s.EaseFactor,
			s.IntervalDays,
			s.StreakCount,
			s.TotalCorrect,
			s.TotalIncorrect,
			s.TotalStudied,
			s.CorrectStreak,
			s.IncorrectStreak,
		); err != nil {
			return fmt.Errorf("%w: failed to insert progress for card %d: %w", progress.ErrIO, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit progress: %w", progress.ErrIO, err)
	}
	return nil
}

// InsertReviewLog appends a review event.
func (db *DB) InsertReviewLog(ctx context.Context, log domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_log (card_id, reviewed_at, grade, interval_days, ease_factor)
		VALUES (?, ?, ?, ?, ?)
	`,
		log.CardID,
		progress.FormatTimestamp(log.Timestamp),
		log.Grade,
		log.IntervalDays,
		log.EaseFactor,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review log for card %d: %w", log.CardID, err)
	}
	return nil
}

// GetReviewLogs retrieves a card's review history, oldest first.
func (db *DB) GetReviewLogs(ctx context.Context, cardID int) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, reviewed_at, grade, interval_days, ease_factor
		FROM review_log WHERE card_id = ?
		ORDER BY id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			l  domain.ReviewLog
			ts string
		)
		if err := rows.Scan(&l.CardID, &ts, &l.Grade, &l.IntervalDays, &l.EaseFactor); err != nil {
			return nil, fmt.Errorf("failed to scan review log row for card %d: %w", cardID, err)
		}
		if l.Timestamp, err = progress.ParseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("review log for card %d: %w", cardID, err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read review logs for card %d: %w", cardID, err)
	}
	return logs, nil
}
