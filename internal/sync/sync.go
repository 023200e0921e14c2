package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/gitsource"
	"github.com/conorfennell/kotoba/internal/progress"
)

// Result summarizes one reconciliation.
type Result struct {
	Cards     int
	Defaulted int
	Created   int
	Orphans   []int
}

// ResolveCatalog returns the catalog path to read. When gitURL is set the
// repository is cloned or pulled under reposDir first and catalog is taken
// relative to the checkout.
func ResolveCatalog(logger *slog.Logger, gitURL, reposDir, catalog string, out io.Writer) (string, error) {
	if gitURL == "" {
		return catalog, nil
	}
	localPath, err := gitsource.CheckoutPath(reposDir, gitURL)
	if err != nil {
		return "", err
	}
	if err := gitsource.Sync(logger, gitURL, localPath, out); err != nil {
		return "", err
	}
	return filepath.Join(localPath, catalog), nil
}

// Run merges the catalog with stored progress and persists default records
// for cards that have none, so both collections hold the same ids.
// Orphaned records are reported but kept.
func Run(ctx context.Context, store *progress.Store, logger *slog.Logger) (Result, error) {
	logger.Info("Starting sync")

	catalog, err := store.LoadCatalog(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	records, err := store.LoadProgress(ctx)
	if progress.IsMissing(err) {
		logger.Info("No progress yet, initializing every card")
		records = map[int]domain.SchedulingState{}
	} else if err != nil {
		return Result{}, fmt.Errorf("failed to load progress: %w", err)
	}

	entries := store.Merge(catalog, records)
	res := Result{Cards: len(entries), Orphans: progress.Orphans(catalog, records)}
	for _, e := range entries {
		if e.Outcome == progress.Defaulted {
			res.Defaulted++
		}
	}
	for _, id := range res.Orphans {
		logger.Info("Orphaned progress record, keeping", "id", id)
	}

	res.Created, err = store.Materialize(ctx, entries)
	if err != nil {
		return res, fmt.Errorf("failed to persist new records: %w", err)
	}

	logger.Info("reconciliation complete",
		"cards", res.Cards,
		"defaulted", res.Defaulted,
		"created", res.Created,
		"orphaned", len(res.Orphans),
	)
	return res, nil
}
