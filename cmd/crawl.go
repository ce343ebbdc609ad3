package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs the overview,
// detail, and export stages in order.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run the overview, detail, and export stages",
		Long: `Lists every nomination for the configured prizes and years, fetches
the details of each nomination not yet fetched, and exports the database
to CSV. Any fetch, parse, storage, or export failure stops the run.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	report, err := appInstance.Pipeline().Run(cmd.Context())
	if err != nil {
		return err
	}

	appInstance.Logger().Info("Crawl command finished.",
		zap.String("run_id", report.RunID),
		zap.Int("overview_pages", report.Overview.Pages),
		zap.Int("summaries_inserted", report.Overview.Inserted),
		zap.Int("details_fetched", report.Detail.Nominations),
		zap.Int("people_inserted", report.Detail.People),
		zap.String("export_uri", report.ExportURI),
		zap.Int("export_rows", report.ExportRows),
	)
	return nil
}
