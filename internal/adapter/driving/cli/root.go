// Package cli is the orgsyncctl command line: replay a merged pull request,
// verify organization credentials and inspect recorded runs.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/orgsync/internal/config"
	"github.com/ericfisherdev/orgsync/internal/wiring"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd builds the command tree. Configuration comes from the same
// environment variables the server reads.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "orgsyncctl",
		Version:      Version,
		Short:        "Operate the safe-settings organization sync",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("output", "o", "text", "output format: text or json")

	root.AddCommand(newReplayCmd(), newVerifyCmd(), newRunsCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func openServices(cmd *cobra.Command) (*wiring.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return wiring.Build(cfg, cfg.NewLogger(cmd.ErrOrStderr()))
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "text", "json":
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
