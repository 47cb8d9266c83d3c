package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sadopc/tasklist/internal/auth"
	"github.com/sadopc/tasklist/internal/config"
	"github.com/sadopc/tasklist/internal/logger"
	"github.com/sadopc/tasklist/internal/notify"
	"github.com/sadopc/tasklist/internal/store"
	"github.com/sadopc/tasklist/internal/tasksync"
	"github.com/sadopc/tasklist/internal/tui"
)

// syncTimeout bounds the headless pass when a promotion keeps failing.
const syncTimeout = 10 * time.Second

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain returns the process exit code so that deferred log flushing runs
// before the process exits.
func realMain(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	level, _ := cfg.Level()
	log, err := logger.New(cfg.LogFile, level)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer log.Sync()

	if err := run(cfg, log, stdout); err != nil {
		log.Errorw("exit", "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func run(cfg *config.Config, log *zap.SugaredLogger, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.New(cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	loop := tasksync.New(s, log)
	log.Infow("starting", "db", cfg.DBPath, "sync_only", cfg.Sync)

	if cfg.Sync {
		return syncOnce(ctx, s, loop, stdout)
	}

	senders := []notify.Sender{notify.LogSender{Log: log}}
	if cfg.NotifyBell {
		senders = append(senders, notify.BellSender{W: os.Stderr})
	}

	app := tui.NewApp(ctx, tui.Deps{
		Store:           s,
		Gate:            auth.NewGate(s.Prefs(auth.Namespace), log),
		Sync:            loop,
		Notifier:        notify.New(cfg.Notifications, log, senders...),
		Log:             log,
		PromoteOnInsert: cfg.PromoteOnInsert,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// syncOnce runs the synchronization loop until no task is left in new, then
// prints the settled list.
func syncOnce(ctx context.Context, s *store.Store, loop *tasksync.Loop, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	sub, err := s.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch tasks: %w", err)
	}
	defer sub.Close()

	var (
		settled []tasksync.Item
		done    bool
	)
	err = loop.Run(ctx, sub.C, func(items []tasksync.Item) {
		for _, it := range items {
			if it.Status == store.StatusNew {
				return
			}
		}
		settled, done = items, true
		cancel()
	})
	if !done {
		if err == nil {
			err = sub.Err()
		}
		if err == nil {
			err = errors.New("subscription closed")
		}
		return fmt.Errorf("sync did not settle: %w", err)
	}

	for _, it := range settled {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", it.ID, it.StatusLabel(), it.Title, it.CreatedAt.Local().Format(time.RFC3339))
	}
	return nil
}
