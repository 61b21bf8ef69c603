package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/example/homevisit/internal/application"
	"github.com/example/homevisit/internal/clock"
	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/recurrence"
)

// parseInterleaved parses fs allowing flags before, between and after
// positional arguments.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func (a *app) meetingService(store persistence.Store) (*application.MeetingService, error) {
	zone, err := clock.LoadZone(a.cfg.SourceTimezone)
	if err != nil {
		return nil, err
	}
	return application.NewMeetingServiceWithLogger(store, zone, a.newID, a.now, a.logger), nil
}

func (a *app) createMeetings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-meetings", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	duration := fs.Int("duration-mins", a.cfg.DefaultDurationMinutes, "meeting length in minutes")
	rulesPath := fs.String("rules", "", "YAML rule file")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}

	var rules []recurrence.Rule
	switch {
	case *rulesPath != "" && len(positional) > 0:
		return fmt.Errorf("%w: --rules cannot be combined with positional arguments", errUsage)
	case *rulesPath != "":
		if rules, err = recurrence.LoadRules(*rulesPath, *duration); err != nil {
			return err
		}
	case len(positional) < 5:
		return fmt.Errorf("%w: create-meetings needs NAME BEGIN FINAL START_TIME DAY...", errUsage)
	default:
		spec := recurrence.RuleSpec{
			Name:            positional[0],
			BeginDate:       positional[1],
			FinalDate:       positional[2],
			StartTimes:      []string{positional[3]},
			Weekdays:        positional[4:],
			DurationMinutes: *duration,
		}
		rule, err := spec.Rule(*duration)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		rules = []recurrence.Rule{rule}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(ctx, store)

	meetings, err := a.meetingService(store)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		result, err := meetings.RunRecurrenceBatch(ctx, rule)
		if err != nil {
			return fmt.Errorf("create %q: %w", rule.Name, err)
		}
		fmt.Fprintf(a.stdout, "%s: inserted %d, skipped %d\n", rule.Name, result.Inserted, result.Skipped)
	}
	return nil
}

func (a *app) cancelMeetings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: cancel-meetings needs at least one DATE", errUsage)
	}
	dates := make([]clock.Date, 0, len(args))
	for _, raw := range args {
		date, err := clock.ParseDate(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		dates = append(dates, date)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(ctx, store)

	meetings, err := a.meetingService(store)
	if err != nil {
		return err
	}
	results, err := meetings.CancelDates(ctx, dates)
	for _, result := range results {
		fmt.Fprintf(a.stdout, "%s: cancelled %d\n", result.Date, result.Cancelled)
	}
	return err
}

func (a *app) seedFaqs(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(ctx, store)

	seeded, err := application.NewFaqService(store.Repositories().Faqs, a.logger).SeedFaqs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "installed %d faq(s)\n", seeded)
	return nil
}

func (a *app) hashPassword(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("%w: hash-password needs exactly one PASSWORD", errUsage)
	}
	hash, err := application.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, hash)
	return nil
}
