package progress

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/kotoba/internal/domain"
)

// record is the on-disk shape of one scheduling state.
type record struct {
	ID                   int     `json:"id" validate:"gt=0"`
	DateLastStudied      *string `json:"date_last_studied"`
	NumTimesStudied      int     `json:"num_times_studied" validate:"gte=0"`
	EaseFactor           float64 `json:"ease_factor" validate:"gte=1.3"`
	Interval             float64 `json:"interval" validate:"gte=0"`
	Repetitions          int     `json:"repetitions" validate:"gte=0"`
	TotalCorrect         int     `json:"total_correct" validate:"gte=0"`
	TotalIncorrect       int     `json:"total_incorrect" validate:"gte=0"`
	TotalStudied         int     `json:"total_studied" validate:"gte=0"`
	TotalCorrectStreak   int     `json:"total_correct_streak" validate:"gte=0"`
	TotalIncorrectStreak int     `json:"total_incorrect_streak" validate:"gte=0"`
}

// Timestamps without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 timestamp as written by this package or
// by older tooling that omitted the zone.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTimestamp writes t as RFC 3339 in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewValidator returns the validator used for catalog entries and records.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ValidateState applies the checks every record read from a progress file
// goes through. Failures wrap ErrFormat.
func ValidateState(validate *validator.Validate, id int, s domain.SchedulingState) error {
	if err := validate.Struct(newRecord(id, s)); err != nil {
		return fmt.Errorf("%w: card %d: %w", ErrFormat, id, err)
	}
	if s.LastReviewedAt == nil && s.TimesReviewed != 0 {
		return fmt.Errorf("%w: card %d studied %d times but has no last study date", ErrFormat, id, s.TimesReviewed)
	}
	return nil
}

func (r record) state() (domain.SchedulingState, error) {
	s := domain.SchedulingState{
		TimesReviewed:   r.NumTimesStudied,
		EaseFactor:      r.EaseFactor,
		IntervalDays:    r.Interval,
		StreakCount:     r.Repetitions,
		TotalCorrect:    r.TotalCorrect,
		TotalIncorrect:  r.TotalIncorrect,
		TotalStudied:    r.TotalStudied,
		CorrectStreak:   r.TotalCorrectStreak,
		IncorrectStreak: r.TotalIncorrectStreak,
	}
	if r.DateLastStudied == nil {
		if r.NumTimesStudied != 0 {
			return s, fmt.Errorf("card %d: studied %d times but has no last study date", r.ID, r.NumTimesStudied)
		}
		return s, nil
	}
	t, err := ParseTimestamp(*r.DateLastStudied)
	if err != nil {
		return s, fmt.Errorf("card %d: %w", r.ID, err)
	}
	s.LastReviewedAt = &t
	return s, nil
}

func newRecord(id int, s domain.SchedulingState) record {
	r := record{
		ID:                   id,
		NumTimesStudied:      s.TimesReviewed,
		EaseFactor:           s.EaseFactor,
		Interval:             s.IntervalDays,
		Repetitions:          s.StreakCount,
		TotalCorrect:         s.TotalCorrect,
		TotalIncorrect:       s.TotalIncorrect,
		TotalStudied:         s.TotalStudied,
		TotalCorrectStreak:   s.CorrectStreak,
		TotalIncorrectStreak: s.IncorrectStreak,
	}
	if s.LastReviewedAt != nil {
		ts := FormatTimestamp(*s.LastReviewedAt)
		r.DateLastStudied = &ts
	}
	return r
}
