package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkline-labs/marginalia/pkg/types"
)

// selectorFlags binds the --arxiv-id/--s2-id pair used by paper-scoped
// commands.
type selectorFlags struct {
	arxivID string
	s2ID    string
}

func (f *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.arxivID, "arxiv-id", "", "arXiv id of the paper")
	cmd.Flags().StringVar(&f.s2ID, "s2-id", "", "Semantic Scholar id of the paper")
}

func (f *selectorFlags) selector() (types.PaperSelector, error) {
	sel := types.PaperSelector{ArxivID: f.arxivID, S2ID: f.s2ID}
	if err := sel.Validate(); err != nil {
		return types.PaperSelector{}, err
	}
	return sel, nil
}

// newPaperCmd groups paper management subcommands.
func newPaperCmd() *cobra.Command {
	paper := &cobra.Command{
		Use:   "paper",
		Short: "Manage papers and their revision history",
	}
	paper.AddCommand(newPaperAddCmd())
	paper.AddCommand(newPaperBumpCmd())
	return paper
}

func newPaperAddCmd() *cobra.Command {
	var (
		s2ID    string
		arxivID string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a paper for annotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s2ID == "" {
				return fmt.Errorf("--s2-id is required")
			}
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			if err := store.EnsurePaper(cmd.Context(), s2ID, arxivID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paper %s registered\n", s2ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&s2ID, "s2-id", "", "Semantic Scholar id (required)")
	cmd.Flags().StringVar(&arxivID, "arxiv-id", "", "arXiv id")
	return cmd
}

func newPaperBumpCmd() *cobra.Command {
	sel := &selectorFlags{}
	cmd := &cobra.Command{
		Use:   "bump",
		Short: "Record a new annotation revision for a paper",
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

			version, err := store.BumpVersion(cmd.Context(), selector)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paper %s now at version %d\n", selector, version)
			return nil
		},
	}
	sel.register(cmd)
	return cmd
}
