package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/homevisit/internal/config"
)

const usage = `usage: homevisit [command] [arguments]

commands:
  serve                                       run the HTTP API (default)
  migrate                                     apply pending schema migrations
  create-meetings NAME BEGIN FINAL START DAY... [--duration-mins N]
  create-meetings --rules FILE [--duration-mins N]
                                              insert a weekly batch of slots
  cancel-meetings DATE...                     delete the slots of each date
  seed-faqs                                   install the default help entries
  hash-password PASSWORD                      print an admin password hash
`

// errUsage marks invalid command lines; main prints the usage text for it.
var errUsage = errors.New("invalid arguments")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := config.LoadDotEnv(".env"); err != nil {
		bootstrap.Error("failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	a := &app{
		cfg:    cfg,
		logger: logger,
		stdout: os.Stdout,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usage)
			os.Exit(2)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	now    func() time.Time
	newID  func() string
}

func (a *app) run(ctx context.Context, args []string) error {
	command := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return a.serve(ctx)
	case "migrate":
		return a.migrate(ctx)
	case "create-meetings":
		return a.createMeetings(ctx, args)
	case "cancel-meetings":
		return a.cancelMeetings(ctx, args)
	case "seed-faqs":
		return a.seedFaqs(ctx)
	case "hash-password":
		return a.hashPassword(args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}
