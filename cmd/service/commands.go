package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotedeck/internal/adapters/codec"
	"github.com/jsamuelsen/quotedeck/internal/adapters/http"
	"github.com/jsamuelsen/quotedeck/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedeck/internal/app"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
)

// errQuarantined makes validate exit non-zero when any record failed.
var errQuarantined = errors.New("collection has quarantined records")

type rootOptions struct {
	profile   string
	configDir string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cmd := &cobra.Command{
		Use:           "quotedeck",
		Short:         "Daily quote selection with repeat avoidance",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.profile, "profile", profile, "configuration profile (configs/<profile>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "configs", "directory holding base.yaml and profile files")

	cmd.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newDrawCommand(opts),
		newValidateCommand(),
		newResetDeckCommand(opts),
	)

	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily post scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if !cfg.Server.Enabled && !cfg.Schedule.Enabled {
		return errors.New("nothing to run: server and schedule are both disabled")
	}

	svc, err := newService(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer svc.Close()

	logger := svc.logger

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("profile", opts.profile),
	)

	ctx = logging.WithCorrelationID(ctx, "startup")
	if report := svc.quotes.Sync(ctx); report != nil {
		logger.Info("initial sync complete",
			slog.Bool("remote_available", report.RemoteAvailable),
			slog.Int("collection_size", report.CollectionSize),
			slog.Int("quarantine_size", report.QuarantineSize),
		)
	}

	g, gctx := errgroup.WithContext(cmd.Context())

	if cfg.Server.Enabled {
		registry, regErr := svc.healthRegistry()
		if regErr != nil {
			return regErr
		}

		server := http.New(&cfg.Server, logger)
		http.SetupRouter(server.Engine(), http.RouterConfig{
			Logger:        logger,
			ServiceName:   cfg.App.Name,
			HealthHandler: handlers.NewHealthHandler(registry, handlers.NewBuildInfo(Version, Commit, BuildTime), svc.metrics.Handler()),
			QuoteHandler:  handlers.NewQuoteHandler(svc.quotes, svc.scheduler),
		})

		g.Go(func() error { return server.Run(gctx) })
	}

	if cfg.Schedule.Enabled {
		g.Go(func() error { return svc.scheduler.Run(gctx) })
	}

	err = g.Wait()

	logger.Info("shutdown complete")

	return err
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the local collection with the remote and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			return writeJSON(cmd.OutOrStdout(), svc.quotes.Sync(cmd.Context()))
		},
	}
}

func newDrawCommand(opts *rootOptions) *cobra.Command {
	var (
		key  string
		post bool
	)

	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw a quote and print it, or publish it with --post",
		Long: `Draw a random quote from the deck, or the quote named by --key.
A named draw is printed as a test post and leaves the deck and history
untouched; unknown keys give the test quote.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx := cmd.Context()

			if post {
				if key == "" {
					return svc.scheduler.PostQuote(ctx)
				}

				return svc.scheduler.PostTestQuote(ctx, key)
			}

			var sel *app.Selection
			if key == "" {
				sel, err = svc.quotes.GetRandomQuote(ctx)
			} else {
				sel, err = svc.quotes.GetQuoteByKey(ctx, key)
			}

			if err != nil {
				return err
			}

			message := app.DailyQuoteMessage
			if key != "" {
				message = app.TestQuoteMessage
			}

			msg := message(sel, time.Now())

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n\n%s\n", msg.Title, msg.Body, msg.Footer)

			return err
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "draw this quote instead of a random one")
	cmd.Flags().BoolVar(&post, "post", false, "publish through the configured publisher instead of printing")

	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a collection document and list quarantined records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			collection, quarantine, err := codec.Decode(text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d valid, %d quarantined\n", collection.Len(), quarantine.Len())

			for _, r := range quarantine.Records() {
				reasons := make([]string, len(r.Reasons))
				for i, v := range r.Reasons {
					reasons[i] = v.String()
				}

				fmt.Fprintf(out, "  [%s] %s\n", r.Key, strings.Join(reasons, ", "))
			}

			if quarantine.Len() > 0 {
				return errQuarantined
			}

			return nil
		},
	}
}

func newResetDeckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-deck",
		Short: "Start a fresh cycle over the whole collection and clear history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := openService(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			state, err := svc.quotes.ResetDeck(cmd.Context())
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), state)
		},
	}
}

// openService wires the application for a one-shot command. Logs go to
// stderr so stdout carries only the command's result.
func openService(cmd *cobra.Command, opts *rootOptions) (*service, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	return newService(cmd.Context(), cfg, cmd.ErrOrStderr())
}

func readDocument(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}

		return string(b), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
