package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	sel := &selectorFlags{}
	var (
		version int64
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a paper's annotation rows as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := sel.selector()
			if err != nil {
				return err
			}
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create snapshot file: %w", err)
				}
				defer f.Close()
				w = f
			}

			var pinned *int64
			if cmd.Flags().Changed("version") {
				pinned = &version
			}
			return store.ExportJSONL(cmd.Context(), w, selector, pinned)
		},
	}
	sel.register(cmd)
	cmd.Flags().Int64Var(&version, "version", 0, "pin to a revision (default: latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file, - for stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	sel := &selectorFlags{}
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSONL annotation snapshot into a paper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := sel.selector()
			if err != nil {
				return err
			}
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open snapshot file: %w", err)
				}
				defer f.Close()
				r = f
			}
			if err := store.ImportJSONL(cmd.Context(), r, selector); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported snapshot into %s\n", selector)
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file, - for stdin")
	return cmd
}
