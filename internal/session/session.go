package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/progress"
	"github.com/conorfennell/kotoba/internal/sm2"
)

// Clock abstracts time retrieval so reviews are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// History records graded reviews. It is optional.
type History interface {
	InsertReviewLog(ctx context.Context, log domain.ReviewLog) error
}

// Session runs reviews against a progress store.
type Session struct {
	store   *progress.Store
	params  *sm2.Params
	history History
	clock   Clock
	logger  *slog.Logger
}

// New creates a Session. history may be nil.
func New(store *progress.Store, params *sm2.Params, history History, clock Clock, logger *slog.Logger) *Session {
	return &Session{
		store:   store,
		params:  params,
		history: history,
		clock:   clock,
		logger:  logger,
	}
}

// Deck loads the merged deck.
func (s *Session) Deck(ctx context.Context, name string) (domain.Deck, error) {
	entries, err := s.store.Load(ctx)
	if err != nil {
		return domain.Deck{}, err
	}
	return domain.Deck{
		Name:        name,
		Description: fmt.Sprintf("%d cards", len(entries)),
		CreatedAt:   s.clock.Now(),
		Cards:       progress.Views(entries),
	}, nil
}

// Review grades card id now and persists the result. A card that has no
// record yet gets one through Materialize before the update. The returned
// view matches what was saved, with the interval rounded to whole days.
func (s *Session) Review(ctx context.Context, id int, grade sm2.Grade) (domain.CardView, error) {
	if !grade.IsValid() {
		return domain.CardView{}, fmt.Errorf("%w: %d", sm2.ErrInvalidGrade, int(grade))
	}
	entries, err := s.store.Load(ctx)
	if err != nil {
		return domain.CardView{}, err
	}

	idx := -1
	for i, e := range entries {
		if e.View.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.CardView{}, fmt.Errorf("%w: card %d is not in the catalog", progress.ErrNotFound, id)
	}

	if entries[idx].Outcome == progress.Defaulted {
		if _, err := s.store.Materialize(ctx, entries); err != nil {
			return domain.CardView{}, err
		}
	}

	now := s.clock.Now()
	view, err := s.params.ProcessReview(entries[idx].View, grade, now)
	if err != nil {
		return domain.CardView{}, err
	}
	// Report the interval as it is persisted.
	view.State.IntervalDays = sm2.RoundInterval(view.State.IntervalDays)
	if err := s.store.UpdateOne(ctx, id, view.State); err != nil {
		return domain.CardView{}, fmt.Errorf("failed to save review of card %d: %w", id, err)
	}
	s.logger.Debug("Card reviewed", "id", id, "grade", grade, "interval", view.State.IntervalDays, "ease", view.State.EaseFactor)

	if s.history != nil {
		entry := domain.ReviewLog{
			CardID:       id,
			Timestamp:    now,
			Grade:        int(grade),
			IntervalDays: view.State.IntervalDays,
			EaseFactor:   view.State.EaseFactor,
		}
		if err := s.history.InsertReviewLog(ctx, entry); err != nil {
			// Progress is already saved.
			s.logger.Warn("Failed to record review history", "id", id, "error", err)
		}
	}
	return view, nil
}
