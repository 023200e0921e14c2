package sm2

import (
	"slices"
	"time"

	"github.com/conorfennell/kotoba/internal/domain"
)

// Order compares two due cards. A nil Order keeps deck order.
type Order func(a, b domain.CardView) int

// ByOverdue puts the longest-overdue cards first. Never-reviewed cards come
// after all reviewed ones.
func ByOverdue(now time.Time) Order {
	return func(a, b domain.CardView) int {
		na, okA := NextReviewAt(a)
		nb, okB := NextReviewAt(b)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		return na.Compare(nb)
	}
}

// DueCards returns the cards due at now. The sort is stable, so ties keep deck order.
func DueCards(deck domain.Deck, now time.Time, order Order) []domain.CardView {
	var due []domain.CardView
	for _, c := range deck.Cards {
		if IsDue(c, now) {
			due = append(due, c)
		}
	}
	if order != nil {
		slices.SortStableFunc(due, order)
	}
	return due
}

// NewCards returns the cards that have never been reviewed.
func NewCards(deck domain.Deck) []domain.CardView {
	var fresh []domain.CardView
	for _, c := range deck.Cards {
		if c.State.NeverReviewed() {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// DeckStats summarizes a deck at a point in time.
type DeckStats struct {
	Total          int
	New            int
	Due            int
	Studied        int
	CompletionRate float64 // percent of cards reviewed at least once
}

// Stats computes DeckStats. New + Studied always equals Total.
func Stats(deck domain.Deck, now time.Time) DeckStats {
	st := DeckStats{Total: len(deck.Cards)}
	for _, c := range deck.Cards {
		if c.State.NeverReviewed() {
			st.New++
		} else {
			st.Studied++
		}
		if IsDue(c, now) {
			st.Due++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = float64(st.Studied) / float64(st.Total) * 100
	}
	return st
}
