package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run the sync for an already merged pull request",
		Long: `Replay fetches a merged pull request from the source repository and syncs
its changes again. Every replay works on a fresh branch, so repeating it is safe.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			repoFlag, _ := cmd.Flags().GetString("repo")
			number, _ := cmd.Flags().GetInt("pr")

			owner, repo, err := splitRepo(repoFlag)
			if err != nil {
				return err
			}
			if number < 1 {
				return errors.New("--pr must be a positive pull request number")
			}

			services, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = services.Close() }()

			report, err := services.Run.Replay(cmd.Context(), owner, repo, number)
			if err != nil {
				return fmt.Errorf("replay %s#%d: %w", repoFlag, number, err)
			}

			if format == "json" {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}

			if failed := report.FailedJobs(); failed > 0 {
				return fmt.Errorf("%d of %d organizations failed", failed, len(report.Jobs))
			}
			return nil
		},
	}

	cmd.Flags().String("repo", "", "source repository as owner/name (required)")
	cmd.Flags().Int("pr", 0, "merged pull request number (required)")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("pr")

	return cmd
}

func splitRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("--repo %q: expected owner/name", s)
	}
	return owner, repo, nil
}

