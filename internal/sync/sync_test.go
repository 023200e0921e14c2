package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/conorfennell/kotoba/internal/progress"
)

const catalog = `[
  {"id": 1, "word_hiragana": "やま", "word_kanji": "山", "word_romaji": "yama", "english": "mountain", "part_of_speech": "noun"},
  {"id": 2, "word_hiragana": "かわ", "word_kanji": "川", "word_romaji": "kawa", "english": "river", "part_of_speech": "noun"}
]`

const progressWithOrphan = `[
  {"id": 1, "date_last_studied": "2025-01-02T03:04:05Z", "num_times_studied": 1, "ease_factor": 2.5, "interval": 6,
   "repetitions": 1, "total_correct": 1, "total_incorrect": 0, "total_studied": 1, "total_correct_streak": 1, "total_incorrect_streak": 0},
  {"id": 40, "date_last_studied": null, "num_times_studied": 0, "ease_factor": 2.5, "interval": 1,
   "repetitions": 0, "total_correct": 0, "total_incorrect": 0, "total_studied": 0, "total_correct_streak": 0, "total_incorrect_streak": 0}
]`

func setup(t *testing.T, progressContent string) *progress.Store {
	t.Helper()
	dir := t.TempDir()
	cfg := progress.Config{
		CatalogLocation:  filepath.Join(dir, "catalog.json"),
		ProgressLocation: filepath.Join(dir, "progress.json"),
	}
	if err := os.WriteFile(cfg.CatalogLocation, []byte(catalog), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if progressContent != "" {
		if err := os.WriteFile(cfg.ProgressLocation, []byte(progressContent), 0o644); err != nil {
			t.Fatalf("failed to write progress: %v", err)
		}
	}
	return progress.New(cfg, progress.WithLogger(quiet()))
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Fresh install creates every record", func(t *testing.T) {
		store := setup(t, "")
		res, err := Run(ctx, store, quiet())
		if err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}
		if res.Cards != 2 || res.Defaulted != 2 || res.Created != 2 || len(res.Orphans) != 0 {
			t.Errorf("Unexpected result: %+v", res)
		}
		records, err := store.LoadProgress(ctx)
		if err != nil {
			t.Fatalf("LoadProgress() returned an unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("Expected 2 records, but got %d", len(records))
		}
	})

	t.Run("New card added, orphan kept", func(t *testing.T) {
		store := setup(t, progressWithOrphan)
		res, err := Run(ctx, store, quiet())
		if err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}
		if res.Defaulted != 1 || res.Created != 1 {
			t.Errorf("Expected one card created, but got %+v", res)
		}
		if len(res.Orphans) != 1 || res.Orphans[0] != 40 {
			t.Errorf("Expected orphan 40, but got %v", res.Orphans)
		}
		records, err := store.LoadProgress(ctx)
		if err != nil {
			t.Fatalf("LoadProgress() returned an unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("Expected 3 records, but got %d", len(records))
		}
		if records[1].TimesReviewed != 1 {
			t.Errorf("Expected existing record to be kept, but got %+v", records[1])
		}
	})

	t.Run("Second run is a no-op", func(t *testing.T) {
		store := setup(t, "")
		if _, err := Run(ctx, store, quiet()); err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}
		res, err := Run(ctx, store, quiet())
		if err != nil {
			t.Fatalf("Run() returned an unexpected error: %v", err)
		}
		if res.Defaulted != 0 || res.Created != 0 {
			t.Errorf("Expected nothing to do, but got %+v", res)
		}
	})

	t.Run("Corrupt progress is reported", func(t *testing.T) {
		store := setup(t, "{")
		_, err := Run(ctx, store, quiet())
		if !errors.Is(err, progress.ErrFormat) {
			t.Errorf("Expected ErrFormat, but got %v", err)
		}
	})
}

func TestResolveCatalogWithoutGit(t *testing.T) {
	got, err := ResolveCatalog(quiet(), "", "repos", "cards.json", io.Discard)
	if err != nil {
		t.Fatalf("ResolveCatalog() returned an unexpected error: %v", err)
	}
	if got != "cards.json" {
		t.Errorf("Expected cards.json, but got %q", got)
	}
}
