// Package cmd defines and implements the CLI commands for the nominations executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/nomination-archive-crawler/internal/app"
	"github.com/JakeFAU/nomination-archive-crawler/internal/config"
	"github.com/JakeFAU/nomination-archive-crawler/internal/logging"
	"github.com/JakeFAU/nomination-archive-crawler/internal/pipeline"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Pipeline() *pipeline.Pipeline
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, configPath string, cmd *cobra.Command) (App, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.NewApp(ctx, cfg)
}

// session tracks the app built for one command invocation so it can be
// closed even when the command fails.
type session struct {
	app App
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
}

// newRootCmd creates and configures the root command.
func newRootCmd(s *session) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "nominations",
		Short: "Crawl the Nobel Prize nomination archive into a database and a CSV file.",
		Long: `nominations walks the public nomination archive in two stages. The
overview stage lists every nomination per prize and year and records a
summary; the detail stage fetches each pending nomination and stores its
nominees and nominators. The export stage writes everything to CSV.

Without a subcommand it runs all three stages, like the crawl command.
The database makes each stage resumable: re-running skips what is stored.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runCrawlCommand,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile, cmd)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			s.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json, or toml)")
	flags.Int("min-year", config.FirstPrizeYear, "first year to crawl")
	flags.Int("max-year", 1971, "last year to crawl")
	flags.String("database", "", "SQLite file or postgres:// DSN; empty keeps the database in memory")
	flags.String("output", "./out.csv", "CSV export path or gs://bucket/object")

	cmd.AddCommand(newCrawlCmd(), newOverviewCmd(), newDetailsCmd(), newExportCmd())
	return cmd
}

// execute runs the command tree with args and always releases the app.
func execute(ctx context.Context, args []string) error {
	s := &session{}
	defer s.close()

	root := newRootCmd(s)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err == nil {
		return
	}

	logger, lerr := logging.New(logging.Config{Development: true})
	if lerr != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Error("Command execution failed", zap.Error(err))
	_ = logger.Sync()
	os.Exit(1)
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
