package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkline-labs/marginalia/pkg/relstore"
	"github.com/inkline-labs/marginalia/pkg/types"
)

func newListCmd() *cobra.Command {
	sel := &selectorFlags{}
	var version int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the typed entities of a paper revision",
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

			var pinned *int64
			if cmd.Flags().Changed("version") {
				pinned = &version
			}
			entities, err := store.EntitiesForPaper(cmd.Context(), selector, pinned)
			if err != nil {
				return err
			}

			// Normalize into the same store shape UI clients cache, and
			// render in its insertion order.
			cache := relstore.FromSlice(entities, func(e types.Entity) string { return e.Meta().ID })
			ordered := make([]types.Entity, 0, len(cache.All))
			for _, id := range cache.All {
				ordered = append(ordered, cache.ByID[id])
			}
			return renderEntities(cmd.OutOrStdout(), ordered, flags.jsonMode)
		},
	}
	sel.register(cmd)
	cmd.Flags().Int64Var(&version, "version", 0, "pin to a revision (default: latest)")
	return cmd
}

func newCreateCmd() *cobra.Command {
	sel := &selectorFlags{}
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an entity from a JSON payload",
		Long: "Create reads an entity payload from the given file (or stdin with\n" +
			"-f -): {\"type\", \"source\", \"bounding_boxes\", \"attributes\",\n" +
			"\"relationships\"}. Only the fields known for the entity type are\n" +
			"persisted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := sel.selector()
			if err != nil {
				return err
			}
			var data types.EntityCreateData
			if err := decodeFile(cmd, file, &data); err != nil {
				return err
			}
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			entity, err := store.CreateEntity(cmd.Context(), selector, data)
			if err != nil {
				return err
			}
			return renderEntities(cmd.OutOrStdout(), []types.Entity{entity}, flags.jsonMode)
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file, - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPatchCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Apply a partial update to an entity",
		Long: "Patch reads a JSON payload with the entity \"id\" and \"type\" plus\n" +
			"any of \"source\", \"version\", \"bounding_boxes\", \"attributes\",\n" +
			"\"relationships\". Absent groups are left untouched.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.EntityPatch
			if err := decodeFile(cmd, file, &patch); err != nil {
				return err
			}
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			if err := store.UpdateEntity(cmd.Context(), patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "patched %s\n", patch.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file, - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity-id>",
		Short: "Delete an entity and its dependent rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			if err := store.DeleteEntity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

// decodeFile decodes JSON from a file path, or stdin when path is "-".
func decodeFile(cmd *cobra.Command, path string, v any) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open payload: %w", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
