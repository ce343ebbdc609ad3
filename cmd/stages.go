package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOverviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "List nominations and record a summary for each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := appInstance.Pipeline().RunOverview(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("Overview command finished.",
				zap.Int("pages", stats.Pages),
				zap.Int("found", stats.Found),
				zap.Int("inserted", stats.Inserted),
				zap.Int("skipped_rows", stats.Skipped),
			)
			return nil
		},
	}
}

func newDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details",
		Short: "Fetch the details of every nomination not yet fetched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := appInstance.Pipeline().RunDetails(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("Details command finished.",
				zap.Int("nominations", stats.Nominations),
				zap.Int("people", stats.People),
				zap.Int("unknown_fields", stats.UnknownFields),
			)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every stored nomination to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			uri, rows, err := appInstance.Pipeline().Export(cmd.Context())
			if err != nil {
				return err
			}
			appInstance.Logger().Info("Export command finished.",
				zap.String("uri", uri),
				zap.Int("rows", rows),
			)
			return nil
		},
	}
}
