package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/pkg/backoffice"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the backoffice version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": backoffice.Version,
					"module":  backoffice.ModulePath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backoffice v%s\nmodule: %s\n", backoffice.Version, backoffice.ModulePath)
			return nil
		},
	}
}
