package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newInitCmd creates the "init" command: it writes the default config on
// first run and creates the annotation tables in the configured database.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and annotation schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			if err := store.InitSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", resolveConfigDir())
			return nil
		},
	}
}
