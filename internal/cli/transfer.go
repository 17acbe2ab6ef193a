package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/internal/session"
	"github.com/mesh-intelligence/backoffice/internal/store"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a collection to a JSONL file",
		Long: `Export writes every record of the collection, one JSON object per line,
in the collection's default order. The file is replaced atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			coll, err := a.collection(ctx, name)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = name + ".jsonl"
			}
			n, err := coll.Export(ctx, path)
			if err != nil {
				return sysError(fmt.Errorf("export %s: %w", name, err))
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"collection": name, "path": path, "rows": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d %s to %s\n", n, name, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default: <collection>.jsonl)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <collection> <file>",
		Short: "Import records from a JSONL file",
		Long: `Import validates every line of the file and then upserts all records in
one transaction, keeping their ids. Nothing is written if any line fails.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, path := args[0], args[1]
			if err := a.authorize(ctx, session.AreaAdmin); err != nil {
				return err
			}
			if !types.IsRecordCollection(name) {
				return unknownCollection(name, types.RecordCollections)
			}
			records, err := store.ReadJSONL(path)
			if err != nil {
				return err
			}
			rows := make([]types.Row, 0, len(records))
			for _, rec := range records {
				row, err := a.decodeRecord(name, rec.Data)
				if err != nil {
					return fmt.Errorf("%s line %d: %w", path, rec.Line, err)
				}
				rows = append(rows, row)
			}
			coll, err := a.collection(ctx, name)
			if err != nil {
				return err
			}
			n, err := coll.Import(ctx, rows)
			if err != nil {
				return sysError(fmt.Errorf("import %s: %w", name, err))
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"collection": name, "rows": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s\n", n, name)
			return nil
		},
	}
}

// decodeRecord turns one exported JSON object into a validated row.
func (a *app) decodeRecord(name string, rec json.RawMessage) (types.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(rec))
	dec.UseNumber()
	var flat map[string]any
	if err := dec.Decode(&flat); err != nil {
		return types.Row{}, fmt.Errorf("%w: %v", types.ErrValidation, err)
	}
	id, _ := flat[types.FieldID].(string)
	delete(flat, types.FieldID)
	fields, err := a.catalog.FromFields(name, flat)
	if err != nil {
		return types.Row{}, err
	}
	return types.NewRow(id, fields), nil
}
