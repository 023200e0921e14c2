package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/progress"
	"github.com/conorfennell/kotoba/internal/sm2"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memHistory struct {
	logs []domain.ReviewLog
	err  error
}

func (h *memHistory) InsertReviewLog(_ context.Context, log domain.ReviewLog) error {
	if h.err != nil {
		return h.err
	}
	h.logs = append(h.logs, log)
	return nil
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newSession(t *testing.T, history History) (*Session, *progress.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := progress.Config{
		CatalogLocation:  filepath.Join(dir, "catalog.json"),
		ProgressLocation: filepath.Join(dir, "progress.json"),
	}
	const catalog = `[
  {"id": 1, "word_hiragana": "いぬ", "word_kanji": "犬", "word_romaji": "inu", "english": "dog", "part_of_speech": "noun"},
  {"id": 2, "word_hiragana": "はしる", "word_kanji": "走る", "word_romaji": "hashiru", "english": "to run", "part_of_speech": "verb"}
]`
	if err := os.WriteFile(cfg.CatalogLocation, []byte(catalog), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := progress.New(cfg, progress.WithLogger(logger))
	return New(store, sm2.DefaultParams(), history, fixedClock{t0}, logger), store
}

func TestReview(t *testing.T) {
	ctx := context.Background()

	t.Run("First review materializes and persists", func(t *testing.T) {
		history := &memHistory{}
		s, store := newSession(t, history)

		view, err := s.Review(ctx, 2, sm2.Easy)
		if err != nil {
			t.Fatalf("Review() returned an unexpected error: %v", err)
		}
		if view.State.IntervalDays != 21 {
			t.Errorf("Expected interval 21, but got %.2f", view.State.IntervalDays)
		}

		records, err := store.LoadProgress(ctx)
		if err != nil {
			t.Fatalf("LoadProgress() returned an unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected both cards to have records, but got %d", len(records))
		}
		if got := records[2].LastReviewedAt; got == nil || !got.Equal(t0) {
			t.Errorf("Expected last reviewed at %v, but got %v", t0, got)
		}
		if !records[1].NeverReviewed() {
			t.Errorf("Expected card 1 to stay new, but got %+v", records[1])
		}

		if len(history.logs) != 1 || history.logs[0].CardID != 2 || history.logs[0].Grade != int(sm2.Easy) {
			t.Errorf("Unexpected history: %+v", history.logs)
		}
	})

	t.Run("Returned view matches the saved record", func(t *testing.T) {
		s, store := newSession(t, nil)

		// A fresh card graded hard moves to 1.2 days, saved as 1.
		view, err := s.Review(ctx, 1, sm2.Hard)
		if err != nil {
			t.Fatalf("Review() returned an unexpected error: %v", err)
		}
		records, err := store.LoadProgress(ctx)
		if err != nil {
			t.Fatalf("LoadProgress() returned an unexpected error: %v", err)
		}
		if view.State.IntervalDays != 1 || records[1].IntervalDays != 1 {
			t.Errorf("Expected interval 1 returned and saved, but got %.2f and %.2f", view.State.IntervalDays, records[1].IntervalDays)
		}

		next, _ := sm2.NextReviewAt(view)
		saved, _ := sm2.NextReviewAt(domain.CardView{State: records[1]})
		if !next.Equal(saved) {
			t.Errorf("Expected next review %v to match the saved record, but got %v", saved, next)
		}
	})

	t.Run("Unknown card", func(t *testing.T) {
		s, _ := newSession(t, nil)
		_, err := s.Review(ctx, 99, sm2.Good)
		if !errors.Is(err, progress.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, but got %v", err)
		}
	})

	t.Run("Invalid grade writes nothing", func(t *testing.T) {
		s, store := newSession(t, nil)
		if _, err := s.Review(ctx, 1, sm2.Grade(0)); !errors.Is(err, sm2.ErrInvalidGrade) {
			t.Fatalf("Expected ErrInvalidGrade, but got %v", err)
		}
		if _, err := store.LoadProgress(ctx); !progress.IsMissing(err) {
			t.Errorf("Expected no progress file to be written, but got %v", err)
		}
	})

	t.Run("History failure does not fail the review", func(t *testing.T) {
		s, _ := newSession(t, &memHistory{err: errors.New("disk full")})
		if _, err := s.Review(ctx, 1, sm2.Good); err != nil {
			t.Errorf("Expected review to succeed, but got %v", err)
		}
	})
}

func TestDeck(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t, nil)

	if _, err := s.Review(ctx, 1, sm2.Good); err != nil {
		t.Fatalf("Review() returned an unexpected error: %v", err)
	}
	deck, err := s.Deck(ctx, "animals")
	if err != nil {
		t.Fatalf("Deck() returned an unexpected error: %v", err)
	}
	if deck.Name != "animals" || len(deck.Cards) != 2 || !deck.CreatedAt.Equal(t0) {
		t.Errorf("Unexpected deck: %+v", deck)
	}

	st := sm2.Stats(deck, t0)
	if st.Studied != 1 || st.New != 1 || st.Due != 1 || st.CompletionRate != 50 {
		t.Errorf("Unexpected stats: %+v", st)
	}
}
