package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/sm2"
)

// Config locates the two resources a Store bridges.
type Config struct {
	CatalogLocation  string
	ProgressLocation string
}

// Store reconciles the read-only card catalog with persisted scheduling records.
// It assumes a single writer.
type Store struct {
	catalogPath string
	backend     Backend
	params      *sm2.Params
	logger      *slog.Logger
	validate    *validator.Validate
}

// Option customizes a Store.
type Option func(*Store)

// WithBackend replaces the default JSON file backend.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithLogger sets the logger used for merge diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithParams sets the scheduler parameters used to initialize missing records.
func WithParams(p *sm2.Params) Option {
	return func(s *Store) { s.params = p }
}

// New creates a Store. Progress goes to a JSON file at cfg.ProgressLocation
// unless WithBackend is given.
func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		catalogPath: cfg.CatalogLocation,
		params:      sm2.DefaultParams(),
		logger:      slog.Default(),
		validate:    NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = NewFileBackend(cfg.ProgressLocation)
	}
	return s
}

// LoadCatalog reads and validates the card catalog.
func (s *Store) LoadCatalog(ctx context.Context) ([]domain.CardContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading catalog %s: %w", ErrIO, s.catalogPath, err)
	}

	var cards []domain.CardContent
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("%w: decoding catalog %s: %w", ErrFormat, s.catalogPath, err)
	}

	seen := make(map[int]bool, len(cards))
	for i, c := range cards {
		if err := s.validate.Struct(c); err != nil {
			return nil, fmt.Errorf("%w: catalog entry %d: %w", ErrFormat, i, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate catalog id %d", ErrFormat, c.ID)
		}
		seen[c.ID] = true
	}
	return cards, nil
}

// LoadProgress reads every persisted scheduling record.
func (s *Store) LoadProgress(ctx context.Context) (map[int]domain.SchedulingState, error) {
	return s.backend.Load(ctx)
}

// SaveProgress overwrites the persisted collection with records.
// Intervals are rounded to whole days here and nowhere else.
func (s *Store) SaveProgress(ctx context.Context, records map[int]domain.SchedulingState) error {
	rounded := make(map[int]domain.SchedulingState, len(records))
	for id, st := range records {
		st.IntervalDays = sm2.RoundInterval(st.IntervalDays)
		rounded[id] = st
	}
	return s.backend.Save(ctx, rounded)
}

// UpdateOne replaces the record for id and persists the whole collection.
// It never inserts: an id without a record yields ErrNotFound and nothing is written.
func (s *Store) UpdateOne(ctx context.Context, id int, state domain.SchedulingState) error {
	records, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	records[id] = state
	return s.SaveProgress(ctx, records)
}

// Load reads the catalog and progress and merges them. A progress resource
// that does not exist yet is treated as empty.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.LoadProgress(ctx)
	if IsMissing(err) {
		s.logger.Info("No progress file yet, starting fresh")
		records = map[int]domain.SchedulingState{}
	} else if err != nil {
		return nil, err
	}
	return s.Merge(catalog, records), nil
}

// Merge joins catalog and progress, logging a warning for every card that
// had to be default-initialized.
func (s *Store) Merge(catalog []domain.CardContent, records map[int]domain.SchedulingState) []Entry {
	entries := Merge(s.params, catalog, records)
	for _, e := range entries {
		if e.Outcome == Defaulted {
			s.logger.Warn("No progress for card, initializing", "id", e.View.ID)
		}
	}
	return entries
}

// Materialize persists default records for every Defaulted entry that has
// no stored record, leaving existing and orphaned records in place.
// It returns the number of records created.
func (s *Store) Materialize(ctx context.Context, entries []Entry) (int, error) {
	records, err := s.backend.Load(ctx)
	if IsMissing(err) {
		records = map[int]domain.SchedulingState{}
	} else if err != nil {
		return 0, err
	}

	var added int
	for _, e := range entries {
		if e.Outcome != Defaulted {
			continue
		}
		if _, ok := records[e.View.ID]; ok {
			continue
		}
		records[e.View.ID] = e.View.State
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.SaveProgress(ctx, records); err != nil {
		return 0, err
	}
	return added, nil
}
