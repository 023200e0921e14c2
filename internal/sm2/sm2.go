package sm2

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/kotoba/internal/domain"
)

// ErrInvalidGrade is returned when a review grade is outside Again..Easy.
var ErrInvalidGrade = errors.New("sm2: invalid grade")

// Params holds the tunables of the SM-2 variant.
type Params struct {
	InitialEase        float64 // ease factor assigned to a fresh card
	MinimumEase        float64 // floor applied on every ease update
	InitialInterval    float64 // days, for a fresh card
	GraduatingInterval float64 // days, first interval after leaving the learning phase
	HardCap            float64 // upper bound of the interval after a Hard answer
	HardFactor         float64 // interval multiplier for Hard
	EasyBonus          float64 // extra interval multiplier for Easy
	AgainPenalty       float64 // ease lost on Again
	HardPenalty        float64 // ease lost on Hard
	EasyBoost          float64 // ease gained on Easy
}

// DefaultParams returns the classic values used by the vocabulary deck.
func DefaultParams() *Params {
	return &Params{
		InitialEase:        2.5,
		MinimumEase:        1.3,
		InitialInterval:    1,
		GraduatingInterval: 6,
		HardCap:            6,
		HardFactor:         1.2,
		EasyBonus:          1.3,
		AgainPenalty:       0.2,
		HardPenalty:        0.15,
		EasyBoost:          0.15,
	}
}

// DefaultState returns the scheduling state of a card that has never been studied.
func (p *Params) DefaultState() domain.SchedulingState {
	return domain.SchedulingState{
		EaseFactor:   p.InitialEase,
		IntervalDays: p.InitialInterval,
	}
}

// Initialize joins content with a fresh scheduling state.
func (p *Params) Initialize(content domain.CardContent) domain.CardView {
	return domain.CardView{CardContent: content, State: p.DefaultState()}
}

// ProcessReview applies a graded review made at now and returns the updated view.
// The input view is not modified.
func (p *Params) ProcessReview(view domain.CardView, grade Grade, now time.Time) (domain.CardView, error) {
	if !grade.IsValid() {
		return view, fmt.Errorf("%w: %d", ErrInvalidGrade, int(grade))
	}

	s := view.State
	reviewedAt := now
	s.LastReviewedAt = &reviewedAt
	s.TimesReviewed++
	s.TotalStudied++

	if grade == Again {
		s.StreakCount = 0
		s.IntervalDays = 0
		s.EaseFactor = p.clampEase(s.EaseFactor - p.AgainPenalty)
		s.TotalIncorrect++
		s.IncorrectStreak++
		s.CorrectStreak = 0
		view.State = s
		return view, nil
	}

	s.TotalCorrect++
	s.CorrectStreak++
	s.IncorrectStreak = 0

	switch grade {
	case Hard:
		s.EaseFactor = p.clampEase(s.EaseFactor - p.HardPenalty)
		// Left fractional; rounded when the record is persisted.
		s.IntervalDays = math.Min(p.HardCap, s.IntervalDays*p.HardFactor)
		s.StreakCount = max(0, s.StreakCount-1)
	case Good:
		if s.StreakCount == 0 {
			s.IntervalDays = p.GraduatingInterval
		} else {
			s.IntervalDays = math.Round(s.IntervalDays * s.EaseFactor)
		}
		s.StreakCount++
	case Easy:
		s.EaseFactor += p.EasyBoost
		if s.StreakCount == 0 {
			s.IntervalDays = math.Round(p.GraduatingInterval * s.EaseFactor * p.EasyBonus)
		} else {
			s.IntervalDays = math.Round(s.IntervalDays * s.EaseFactor * p.EasyBonus)
		}
		s.StreakCount++
	}

	view.State = s
	return view, nil
}

func (p *Params) clampEase(ease float64) float64 {
	return math.Max(p.MinimumEase, ease)
}

// RoundInterval rounds an interval to whole days, the granularity that is persisted.
func RoundInterval(days float64) float64 {
	return math.Round(days)
}

// NextReviewAt returns when the card is next due. The boolean is false
// for a card that has never been reviewed.
func NextReviewAt(view domain.CardView) (time.Time, bool) {
	if view.State.NeverReviewed() {
		return time.Time{}, false
	}
	return addInterval(*view.State.LastReviewedAt, view.State.IntervalDays), true
}

// IsDue reports whether the card should be reviewed at now.
func IsDue(view domain.CardView, now time.Time) bool {
	next, ok := NextReviewAt(view)
	if !ok {
		return true
	}
	return !now.Before(next)
}

// maxIntervalDays bounds the whole days added by addInterval so the
// conversion to int stays defined for arbitrarily long intervals.
const maxIntervalDays = math.MaxInt32

// addInterval returns t plus days of 24 hours. Whole days go through
// AddDate in UTC; only the fraction becomes a time.Duration, which would
// overflow past roughly 106,751 days.
func addInterval(t time.Time, days float64) time.Time {
	whole, frac := math.Modf(days)
	if whole > maxIntervalDays {
		whole, frac = maxIntervalDays, 0
	}
	next := t.UTC().AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(24*time.Hour)))
	return next.In(t.Location())
}
