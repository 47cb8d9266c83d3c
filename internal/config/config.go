package config

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/sadopc/tasklist/internal/store"
)

type Config struct {
	DBPath   string `env:"TASKLIST_DB_PATH"`
	LogFile  string `env:"TASKLIST_LOG_FILE"`
	LogLevel string `env:"TASKLIST_LOG_LEVEL" envDefault:"info"`

	// Notifications is the notification permission. Without it task
	// creation still succeeds but nothing is shown.
	Notifications bool `env:"TASKLIST_NOTIFICATIONS" envDefault:"true"`
	NotifyBell    bool `env:"TASKLIST_NOTIFY_BELL"`

	// PromoteOnInsert stores new tasks directly as todo instead of letting
	// the synchronization loop promote them.
	PromoteOnInsert bool `env:"TASKLIST_PROMOTE_ON_INSERT"`

	// Sync runs a single headless synchronization pass (flag only).
	Sync bool `env:"-"`
}

// Load reads .env, then the environment, then command line flags. Flags win.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("tasklist", flag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "path to the log file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Notifications, "notifications", cfg.Notifications, "allow task creation notifications")
	fs.BoolVar(&cfg.NotifyBell, "bell", cfg.NotifyBell, "ring the terminal bell on notifications")
	fs.BoolVar(&cfg.PromoteOnInsert, "promote-on-insert", cfg.PromoteOnInsert, "store new tasks as todo right away")
	fs.BoolVar(&cfg.Sync, "sync", false, "run one synchronization pass, print tasks and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.DBPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("default db path: %w", err)
		}
		cfg.DBPath = p
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(filepath.Dir(cfg.DBPath), "tasklist.log")
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
