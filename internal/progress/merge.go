package progress

import (
	"slices"

	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/sm2"
)

// Outcome tells how a card's scheduling state was obtained during a merge.
type Outcome int

const (
	Merged    Outcome = iota // state came from the progress resource
	Defaulted                // no record existed; state was freshly initialized
)

func (o Outcome) String() string {
	if o == Defaulted {
		return "defaulted"
	}
	return "merged"
}

// Entry is one merged card.
type Entry struct {
	View    domain.CardView
	Outcome Outcome
}

// Merge joins every catalog card with its record, in catalog order.
// Records whose id is not in the catalog are ignored.
func Merge(params *sm2.Params, catalog []domain.CardContent, records map[int]domain.SchedulingState) []Entry {
	entries := make([]Entry, 0, len(catalog))
	for _, c := range catalog {
		st, ok := records[c.ID]
		if !ok {
			entries = append(entries, Entry{View: params.Initialize(c), Outcome: Defaulted})
			continue
		}
		entries = append(entries, Entry{View: domain.CardView{CardContent: c, State: st}, Outcome: Merged})
	}
	return entries
}

// Split extracts the scheduling half of views, keyed by card id.
func Split(views []domain.CardView) map[int]domain.SchedulingState {
	records := make(map[int]domain.SchedulingState, len(views))
	for _, v := range views {
		records[v.ID] = v.State
	}
	return records
}

// Views drops the outcome tags.
func Views(entries []Entry) []domain.CardView {
	views := make([]domain.CardView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View)
	}
	return views
}

// Orphans returns, sorted, the ids that have a record but no catalog card.
func Orphans(catalog []domain.CardContent, records map[int]domain.SchedulingState) []int {
	known := make(map[int]bool, len(catalog))
	for _, c := range catalog {
		known[c.ID] = true
	}
	var orphans []int
	for id := range records {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	slices.Sort(orphans)
	return orphans
}
