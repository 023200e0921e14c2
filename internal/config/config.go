package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks the environment variables read as configuration,
// e.g. KOTOBA_GIT_URL sets git-url.
const EnvPrefix = "KOTOBA_"

// Config holds every runtime setting. Values are layered, lowest first:
// flag defaults, YAML file, environment, explicitly set flags.
type Config struct {
	Catalog         string `koanf:"catalog" validate:"required"`
	Progress        string `koanf:"progress" validate:"required"`
	ProgressBackend string `koanf:"progress-backend" validate:"oneof=json sqlite"`
	DB              string `koanf:"db"`
	GitURL          string `koanf:"git-url"`
	ReposDir        string `koanf:"repos-dir" validate:"required_with=GitURL"`
	DeckName        string `koanf:"deck-name"`
	Order           string `koanf:"order" validate:"oneof=insertion overdue"`
	LogLevel        string `koanf:"log-level" validate:"oneof=debug info warn error"`
}

// RegisterFlags adds the configuration flags and their defaults to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("catalog", "flashcard_generation/flashcards_with_ids.json", "Path to the card catalog (relative to the checkout when git-url is set)")
	fs.String("progress", "flashcard_generation/flashcard_progress.json", "Path to the progress file or SQLite database")
	fs.String("progress-backend", "json", "Progress storage: json or sqlite")
	fs.String("db", "", "Path to a SQLite database for review history (disabled when empty)")
	fs.String("git-url", "", "Git repository holding the catalog")
	fs.String("repos-dir", "repos", "Directory for git checkouts")
	fs.String("deck-name", "Japanese vocabulary", "Name shown for the deck")
	fs.String("order", "insertion", "Due card order: insertion or overdue")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
}

// Load resolves the configuration from fs, which must have been set up with
// RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read config flag: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Unchanged flags only fill keys nothing else has set.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config values.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}
