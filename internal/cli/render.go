package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/backoffice/internal/store"
	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// listOutput is the JSON shape of a listed page.
type listOutput struct {
	Rows      []json.RawMessage `json:"rows"`
	Page      int               `json:"page"`
	PageCount int               `json:"page_count"`
	PageSize  int               `json:"page_size"`
	Filtered  int               `json:"filtered"`
	Total     int               `json:"total"`
	Selected  []string          `json:"selected,omitempty"`
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func rowJSON(r types.Row) (json.RawMessage, error) {
	return store.MarshalRow(r)
}

func printRow(w io.Writer, jsonMode bool, cols []grid.Column, r types.Row) error {
	if jsonMode {
		raw, err := rowJSON(r)
		if err != nil {
			return err
		}
		return printJSON(w, raw)
	}
	fmt.Fprintf(w, "%s: %s\n", types.FieldID, r.ID)
	for _, c := range cols {
		fmt.Fprintf(w, "%s: %s\n", c.Title(), c.Text(r))
	}
	return nil
}

// printSnapshot renders the current page of a view.
func printSnapshot(w io.Writer, jsonMode bool, cols []grid.Column, snap grid.Snapshot) error {
	if jsonMode {
		out := listOutput{
			Rows:      make([]json.RawMessage, 0, len(snap.Rows)),
			Page:      snap.State.PageIndex + 1,
			PageCount: snap.PageCount,
			PageSize:  snap.State.PageSize,
			Filtered:  snap.Filtered,
			Total:     snap.Total,
			Selected:  snap.State.Selected,
		}
		for _, r := range snap.Rows {
			raw, err := rowJSON(r)
			if err != nil {
				return err
			}
			out.Rows = append(out.Rows, raw)
		}
		return printJSON(w, out)
	}

	headers := []string{"ID"}
	for _, c := range cols {
		headers = append(headers, c.Title())
	}
	rows := make([][]string, len(snap.Rows))
	for i, r := range snap.Rows {
		cells := []string{r.ID}
		for _, c := range cols {
			cells = append(cells, c.Text(r))
		}
		rows[i] = cells
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, footer(snap))
	return nil
}

func footer(snap grid.Snapshot) string {
	parts := []string{fmt.Sprintf("page %d/%d", snap.State.PageIndex+1, max(snap.PageCount, 1))}
	if snap.Filtered != snap.Total {
		parts = append(parts, fmt.Sprintf("%d of %d rows", snap.Filtered, snap.Total))
	} else {
		parts = append(parts, fmt.Sprintf("%d rows", snap.Total))
	}
	if s := snap.State.Sort; s != nil {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		parts = append(parts, "sorted by "+s.Column+" "+dir)
	}
	if len(snap.State.TypeFilter) > 0 {
		parts = append(parts, "type "+strings.Join(snap.State.TypeFilter, ","))
	}
	return strings.Join(parts, " · ")
}

// printCounts renders collection counts in name order.
func printCounts(w io.Writer, jsonMode bool, counts map[string]int) error {
	if jsonMode {
		return printJSON(w, counts)
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, fmt.Sprint(counts[name])}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Collection", "Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
	return nil
}
