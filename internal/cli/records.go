package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/internal/clip"
	"github.com/mesh-intelligence/backoffice/internal/session"
	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

type listFlags struct {
	search   string
	types    []string
	sort     string
	desc     bool
	page     int
	pageSize int
}

func (a *app) listCmd() *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List one page of a collection",
		Long: `List searches, filters, sorts and pages a collection.

Search is case-insensitive and matches any search field. --type keeps rows
whose type field is one of the given values (repeat or comma-separate).

Collections: employees, students, inventory, stakeholders, documents

Example:
  backoffice list employees --search ada --sort start_date --desc
  backoffice list documents --type pdf,docx --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			view, err := a.openView(ctx, args[0])
			if err != nil {
				return err
			}
			defer view.Close()

			if cmd.Flags().Changed("page-size") {
				if _, err := view.SetPageSize(f.pageSize); err != nil {
					return err
				}
			}
			view.SetSearchText(f.search)
			view.SetTypeFilter(f.types)
			if f.sort != "" {
				if _, err := view.SetSort(f.sort, f.desc); err != nil {
					return fmt.Errorf("sort %s: %w", f.sort, err)
				}
			}
			snap := view.GoToPage(f.page - 1)
			return printSnapshot(cmd.OutOrStdout(), a.jsonMode, view.Columns(), snap)
		},
	}
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive search text")
	cmd.Flags().StringSliceVar(&f.types, "type", nil, "type values to keep")
	cmd.Flags().StringVar(&f.sort, "sort", "", "column to sort by")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (default: config page_size)")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> <json>",
		Short: "Add a record",
		Long: `Add validates the JSON object and inserts it. Pass - to read the JSON
from stdin.

Example:
  backoffice add employees '{"name":"Ada","number":"E-1","position":"Engineer","arrangement":"remote","start_date":"2024-01-15"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			data, err := a.readInput(args[1])
			if err != nil {
				return err
			}
			fields, err := a.catalog.Decode(args[0], data)
			if err != nil {
				return err
			}
			view, err := a.openView(ctx, args[0])
			if err != nil {
				return err
			}
			defer view.Close()

			row, _, err := view.Create(ctx, fields)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printRow(cmd.OutOrStdout(), true, view.Columns(), row)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s/%s\n", args[0], row.ID)
			return nil
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> <json>",
		Short: "Update fields of a record",
		Long: `Update merges the JSON object into the stored record, validates the
result and saves it. Pass - to read the JSON from stdin.

Example:
  backoffice update inventory 0190b1c2-... '{"status":"Active","quantity":4}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, id := args[0], args[1]
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			data, err := a.readInput(args[2])
			if err != nil {
				return err
			}
			view, err := a.openView(ctx, name)
			if err != nil {
				return err
			}
			defer view.Close()

			res, err := view.DispatchRowAction(ctx, grid.ActionEdit, types.Row{ID: id})
			if err != nil {
				return fmt.Errorf("%s/%s: %w", name, id, types.ErrNotFound)
			}
			fields, err := a.catalog.Merge(name, res.Row, data)
			if err != nil {
				return err
			}
			row, _, err := view.Update(ctx, id, fields)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printRow(cmd.OutOrStdout(), true, view.Columns(), row)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s/%s\n", name, id)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>...",
		Short: "Delete records",
		Long: `Delete removes the given records. Ids that no longer exist are treated
as already deleted. Several ids are deleted as one selection.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, ids := args[0], args[1:]
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			view, err := a.openView(ctx, name)
			if err != nil {
				return err
			}
			defer view.Close()

			if len(ids) == 1 {
				if _, err := view.DispatchRowAction(ctx, grid.ActionDelete, types.Row{ID: ids[0]}); err != nil {
					return err
				}
			} else {
				for _, id := range ids {
					view.ToggleRowSelection(id)
				}
				if _, err := view.DeleteSelected(ctx); err != nil {
					return err
				}
			}

			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"collection": name, "deleted": ids})
			}
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", name, id)
			}
			return nil
		},
	}
}

func (a *app) copyCmd() *cobra.Command {
	var toStdout bool
	cmd := &cobra.Command{
		Use:   "copy <collection> <id>",
		Short: "Copy a record's key field to the clipboard",
		Long: `Copy writes the collection's copy field (employee number, model number,
email, document URL) to the system clipboard. With --stdout, or when no
clipboard is available, the value is printed instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, id := args[0], args[1]
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			printed := toStdout || !clip.Available()
			if printed {
				a.clipboard = clip.NewWriter(cmd.OutOrStdout())
			}
			view, err := a.openView(ctx, name)
			if err != nil {
				return err
			}
			defer view.Close()

			row, ok := view.Row(id)
			if !ok {
				return fmt.Errorf("%s/%s: %w", name, id, types.ErrNotFound)
			}
			res, err := view.DispatchRowAction(ctx, grid.ActionCopy, row)
			if err != nil {
				return err
			}
			if !printed {
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %q\n", res.Copied)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the value instead of copying it")
	return cmd
}

func (a *app) reorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <collection> <from-id> <to-id>",
		Short: "Move a record to another record's position",
		Long: `Reorder moves <from-id> to the position <to-id> occupies in the manual
order and saves it. Moving down places it after <to-id>, moving up before.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, from, to := args[0], args[1], args[2]
			if err := a.authorize(ctx, session.AreaAdmin); err != nil {
				return err
			}
			if !types.IsRecordCollection(name) {
				return unknownCollection(name, types.RecordCollections)
			}
			view, err := a.openView(ctx, name)
			if err != nil {
				return err
			}
			defer view.Close()

			for _, id := range []string{from, to} {
				if _, ok := view.Row(id); !ok {
					return fmt.Errorf("%s/%s: %w", name, id, types.ErrNotFound)
				}
			}
			if _, moved := view.Reorder(from, to); !moved {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to move")
				return nil
			}
			if err := view.PersistOrder(ctx); err != nil {
				return err
			}

			rows := view.Rows()
			ids := make([]string, len(rows))
			pos := 0
			for i, r := range rows {
				ids[i] = r.ID
				if r.ID == from {
					pos = i + 1
				}
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"collection": name, "order": ids})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s/%s to position %d\n", name, from, pos)
			return nil
		},
	}
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [collection]",
		Short: "Count records per collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			counts := map[string]int{}
			if len(args) == 1 {
				if _, err := a.catalog.Entry(args[0]); err != nil {
					return unknownCollection(args[0], types.StandardCollections)
				}
				rs, err := a.recordStore(ctx, args[0])
				if err != nil {
					return err
				}
				n, err := rs.Count(ctx)
				if err != nil {
					return sysError(err)
				}
				counts[args[0]] = n
				return printCounts(cmd.OutOrStdout(), a.jsonMode, counts)
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			counts, err = st.Counts(ctx)
			if err != nil {
				return sysError(err)
			}
			docs, err := a.documents()
			if err != nil {
				return err
			}
			n, err := docs.Count(ctx)
			if err != nil {
				return sysError(err)
			}
			counts[types.DocumentsCollection] = n
			return printCounts(cmd.OutOrStdout(), a.jsonMode, counts)
		},
	}
}

// readInput returns arg, or stdin when arg is "-".
func (a *app) readInput(arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("no input on stdin")
	}
	return data, nil
}
