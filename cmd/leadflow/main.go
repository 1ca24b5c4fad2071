package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/config"
	"github.com/baiirun/leadflow/internal/db"
	"github.com/baiirun/leadflow/internal/documents"
	"github.com/baiirun/leadflow/internal/logging"
	"github.com/baiirun/leadflow/internal/notify"
	"github.com/baiirun/leadflow/internal/pipeline"
	"github.com/baiirun/leadflow/internal/reminder"
	"github.com/baiirun/leadflow/internal/users"
)

var (
	flagJSON bool
	flagUser string
	flagDB   string
)

var rootCmd = &cobra.Command{
	Use:   "leadflow",
	Short: "Lead pipelines, document checklists and reminders",
	Long: `leadflow tracks leads through ordered processes and stages, resolves the
documents each stage requires, and alerts assignees when reminders come due.

Run 'leadflow init' once to create the config and the default pipeline.`,
	SilenceUsage: true,
}

// app holds the services a command works with.
type app struct {
	cfg    *config.Config
	db     *db.DB
	logger *logging.Logger
	clock  clock.Clock

	engine    *pipeline.Engine
	documents *documents.Service
	resolver  *documents.Resolver
	reminders *reminder.Service
	scheduler *reminder.Scheduler
	users     *users.Service
}

// openApp loads config, opens the database and wires every service.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.DSN = flagDB
	}
	if flagUser != "" {
		cfg.User = flagUser
	}

	logger, err := logging.New(cfg.Log.File)
	if err != nil {
		return nil, err
	}

	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	database, err := db.Open(cfg.Database.Driver, dsn)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := database.Init(); err != nil {
		_ = database.Close()
		_ = logger.Close()
		return nil, err
	}

	a, err := newApp(cfg, database, logger, clock.Real{})
	if err != nil {
		_ = database.Close()
		_ = logger.Close()
		return nil, err
	}
	return a, nil
}

func newApp(cfg *config.Config, database *db.DB, logger *logging.Logger, clk clock.Clock) (*app, error) {
	var requirements documents.RequirementSource = documents.NewStoreSource(database)
	if cfg.Documents.Catalog != "" {
		catalog, err := documents.LoadCatalog(cfg.Documents.Catalog)
		if err != nil {
			return nil, err
		}
		requirements = catalog
	}

	var dedup reminder.DedupStore
	var reminderOpts []reminder.ServiceOption
	switch cfg.Notifications.Dedup {
	case config.DedupMemory:
		mem := reminder.NewMemoryDedup(cfg.Notifications.DedupWindow)
		dedup = mem
		reminderOpts = append(reminderOpts, reminder.WithForgetter(mem))
	default:
		dedup = reminder.NewStoreDedup(database, cfg.Notifications.DedupWindow)
	}

	return &app{
		cfg:       cfg,
		db:        database,
		logger:    logger,
		clock:     clk,
		engine:    pipeline.New(database, pipeline.WithClock(clk), pipeline.WithLogger(logger)),
		documents: documents.NewService(database, clk),
		resolver:  documents.NewResolver(requirements, database, database),
		reminders: reminder.NewService(database, clk, reminderOpts...),
		scheduler: reminder.NewScheduler(dedup, reminder.WithClock(clk)),
		users:     users.NewService(database, cfg.Users.CacheTTL, clk),
	}, nil
}

func (a *app) Close() error {
	err := a.db.Close()
	_ = a.logger.Close()
	return err
}

// assigneeName resolves a user id for display, falling back to the id.
func (a *app) assigneeName(ctx context.Context, id string) string {
	name, err := a.users.DisplayName(ctx, id)
	if err != nil {
		a.logger.Printf("users: failed to resolve %s: %v", id, err)
		return id
	}
	return name
}

// currentUser is the user alerts and default assignments apply to.
func (a *app) currentUser() (string, error) {
	if a.cfg.User == "" {
		return "", fmt.Errorf("no user set: pass --user, set LEADFLOW_USER, or set user in %s", a.configPath())
	}
	return a.cfg.User, nil
}

func (a *app) configPath() string {
	if a.cfg.Path != "" {
		return a.cfg.Path
	}
	return "config.yaml"
}

// dispatcher builds the alert loop for userID.
func (a *app) dispatcher(userID string, sink notify.Sink, badges notify.BadgeSink) *notify.Dispatcher {
	return notify.New(userID, a.db, a.scheduler, sink,
		notify.WithClock(a.clock),
		notify.WithLogger(a.logger),
		notify.WithBadgeSink(badges),
		notify.WithIntervals(a.cfg.Notifications.ReminderInterval, a.cfg.Notifications.BadgeInterval),
	)
}

// withApp opens the app for the duration of fn.
func withApp(fn func(*app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	fmt.Println(string(b))
	return nil
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Acting user id (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Database DSN (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
