package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Mint and discard a token for every registered organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			services, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = services.Close() }()

			checks := services.Verify.VerifyAll(cmd.Context())

			if format == "json" {
				if err := printJSON(cmd.OutOrStdout(), checks); err != nil {
					return err
				}
			} else {
				printChecks(cmd.OutOrStdout(), checks)
			}

			var failed int
			for _, c := range checks {
				if !c.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d organizations cannot authenticate", failed, len(checks))
			}
			return nil
		},
	}
}
