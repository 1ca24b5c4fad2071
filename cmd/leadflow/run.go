package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/baiirun/leadflow/internal/notify"
	"github.com/baiirun/leadflow/internal/server"
	"github.com/baiirun/leadflow/internal/tui"
)

var (
	flagAddr  string
	flagQuiet bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print reminder alerts and badge counts for the current user until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(func(a *app) error {
			user, err := a.currentUser()
			if err != nil {
				return err
			}
			terminal := notify.NewTerminalSink(os.Stdout)
			d := a.dispatcher(user, notify.MultiSink{terminal, notify.LogSink{Logger: a.logger}}, terminal)

			fmt.Printf("Watching reminders for %s (ctrl+c to stop)\n", user)
			return watch(ctx, d)
		})
	},
}

// watch runs d until ctx is cancelled.
func watch(ctx context.Context, d *notify.Dispatcher) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive reminder board",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			user, err := a.currentUser()
			if err != nil {
				return err
			}
			board := tui.New(a.reminders, a.resolver, user, a.clock).
				WithUsers(a.users).
				WithRefresh(a.cfg.Notifications.ReminderInterval)

			return tui.Run(cmd.Context(), board, func(sink notify.Sink, badges notify.BadgeSink) *notify.Dispatcher {
				return a.dispatcher(user, notify.MultiSink{sink, notify.LogSink{Logger: a.logger}}, badges)
			})
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(func(a *app) error {
			addr := a.cfg.Server.Addr
			if flagAddr != "" {
				addr = flagAddr
			}
			var access io.Writer = os.Stdout
			if flagQuiet {
				access = nil
			}
			s := server.New(server.Deps{
				Engine:    a.engine,
				Documents: a.documents,
				Resolver:  a.resolver,
				Reminders: a.reminders,
				Users:     a.users,
				Clock:     a.clock,
				AccessLog: access,
			})

			if _, err := a.engine.EnsureDefaultProcessExists(ctx); err != nil {
				return err
			}
			a.logger.Printf("serve: listening on %s", addr)
			fmt.Printf("Listening on %s\n", addr)
			return serve(ctx, s, addr)
		})
	},
}

// serve runs s until ctx is cancelled or the listener fails.
func serve(ctx context.Context, s *server.Server, addr string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Listen(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown()
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "Disable the access log")

	rootCmd.AddCommand(watchCmd, tuiCmd, serveCmd)
}
