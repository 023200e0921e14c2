package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/kotoba/internal/config"
	"github.com/conorfennell/kotoba/internal/domain"
	"github.com/conorfennell/kotoba/internal/progress"
	"github.com/conorfennell/kotoba/internal/session"
	"github.com/conorfennell/kotoba/internal/sm2"
	"github.com/conorfennell/kotoba/internal/storage"
	"github.com/conorfennell/kotoba/internal/sync"
)

const usage = `Usage: kotoba [flags] <command> [args]

Commands:
  sync                 Pull the catalog and create progress records for new cards
  stats                Show deck statistics
  due                  List cards due now
  new                  List cards never reviewed
  review <id> <grade>  Grade a card: again, hard, good, easy (or 1-4)
  history <id>         Show a card's review history (needs --db)

Flags:
`

func main() {
	// 1. Define and parse command-line flags
	fs := pflag.NewFlagSet("kotoba", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kotoba: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), cfg, logger, args); err != nil {
		logger.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

// app holds what every command needs once the resources are open.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *progress.Store
	history *storage.DB
	params  *sm2.Params
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	// 2. Locate the catalog, pulling it from git when configured
	catalogPath, err := sync.ResolveCatalog(logger, cfg.GitURL, cfg.ReposDir, cfg.Catalog, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog: %w", err)
	}

	// 3. Open the progress backend and review history
	a := &app{cfg: cfg, logger: logger, params: sm2.DefaultParams()}
	opts := []progress.Option{progress.WithLogger(logger), progress.WithParams(a.params)}

	var progressDB *storage.DB
	if cfg.ProgressBackend == "sqlite" {
		progressDB, err = storage.Open(cfg.Progress)
		if err != nil {
			return err
		}
		defer progressDB.Close()
		opts = append(opts, progress.WithBackend(progressDB))
		logger.Debug("Progress database opened", "path", cfg.Progress)
	}

	if cfg.DB != "" {
		if progressDB != nil && cfg.DB == cfg.Progress {
			a.history = progressDB
		} else {
			a.history, err = storage.Open(cfg.DB)
			if err != nil {
				return err
			}
			defer a.history.Close()
		}
		logger.Debug("History database opened", "path", cfg.DB)
	}

	a.store = progress.New(progress.Config{
		CatalogLocation:  catalogPath,
		ProgressLocation: cfg.Progress,
	}, opts...)

	// 4. Dispatch
	switch args[0] {
	case "sync":
		_, err := sync.Run(ctx, a.store, logger)
		return err
	case "stats":
		return a.stats(ctx)
	case "due":
		return a.due(ctx)
	case "new":
		return a.fresh(ctx)
	case "review":
		if len(args) != 3 {
			return errors.New("review needs <id> <grade>")
		}
		return a.review(ctx, args[1], args[2])
	case "history":
		if len(args) != 2 {
			return errors.New("history needs <id>")
		}
		return a.showHistory(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) session() *session.Session {
	// A typed nil *storage.DB must not become a non-nil History.
	var history session.History
	if a.history != nil {
		history = a.history
	}
	return session.New(a.store, a.params, history, session.RealClock{}, a.logger)
}

func (a *app) stats(ctx context.Context) error {
	deck, err := a.session().Deck(ctx, a.cfg.DeckName)
	if err != nil {
		return err
	}
	st := sm2.Stats(deck, time.Now())
	fmt.Printf("%s\n", deck.Name)
	fmt.Printf("  Total:      %d\n", st.Total)
	fmt.Printf("  New:        %d\n", st.New)
	fmt.Printf("  Due:        %d\n", st.Due)
	fmt.Printf("  Studied:    %d\n", st.Studied)
	fmt.Printf("  Completion: %.1f%%\n", st.CompletionRate)
	return nil
}

func (a *app) due(ctx context.Context) error {
	deck, err := a.session().Deck(ctx, a.cfg.DeckName)
	if err != nil {
		return err
	}
	now := time.Now()
	var order sm2.Order
	if a.cfg.Order == "overdue" {
		order = sm2.ByOverdue(now)
	}
	printCards(sm2.DueCards(deck, now, order))
	return nil
}

func (a *app) fresh(ctx context.Context) error {
	deck, err := a.session().Deck(ctx, a.cfg.DeckName)
	if err != nil {
		return err
	}
	printCards(sm2.NewCards(deck))
	return nil
}

func (a *app) review(ctx context.Context, idArg, gradeArg string) error {
	id, err := strconv.Atoi(idArg)
	if err != nil {
		return fmt.Errorf("invalid card id %q", idArg)
	}
	grade, err := sm2.ParseGrade(gradeArg)
	if err != nil {
		return err
	}
	view, err := a.session().Review(ctx, id, grade)
	if err != nil {
		return err
	}
	next, _ := sm2.NextReviewAt(view)
	fmt.Printf("%s (%s): %s, next review %s\n", view.WordKanji, view.English, grade, next.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *app) showHistory(ctx context.Context, idArg string) error {
	if a.history == nil {
		return errors.New("review history is disabled, set --db")
	}
	id, err := strconv.Atoi(idArg)
	if err != nil {
		return fmt.Errorf("invalid card id %q", idArg)
	}
	logs, err := a.history.GetReviewLogs(ctx, id)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tGRADE\tINTERVAL\tEASE")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.2f\n", l.Timestamp.Local().Format("2006-01-02 15:04"), sm2.Grade(l.Grade), l.IntervalDays, l.EaseFactor)
	}
	return w.Flush()
}

func printCards(cards []domain.CardView) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKANJI\tKANA\tENGLISH\tNEXT")
	for _, c := range cards {
		next := "new"
		if at, ok := sm2.NextReviewAt(c); ok {
			next = at.Local().Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.WordKanji, c.WordHiragana, c.English, next)
	}
	w.Flush()
	fmt.Printf("%d cards\n", len(cards))
}
