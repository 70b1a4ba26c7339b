package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs from the run store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 1 {
				return errors.New("--limit must be at least 1")
			}

			services, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = services.Close() }()

			runs, err := services.Runs.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), runs)
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 10, "number of runs to show")
	return cmd
}
