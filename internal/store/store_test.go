package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func collection(t *testing.T, s *Store, name string) *Collection {
	t.Helper()
	c, err := s.Collection(name)
	require.NoError(t, err)
	return c
}

func employee(name, start string) map[string]any {
	return types.Employee{
		Name:        name,
		Number:      "07" + strings.Repeat("1", 8),
		Position:    "Engineer",
		Arrangement: types.ArrangementRemote,
		StartDate:   start,
	}.Fields()
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: dir}, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, DBFile))
	assert.NoError(t, err)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{"empty backend", types.Config{}, types.ErrBackendEmpty},
		{"unknown backend", types.Config{Backend: "mysql"}, types.ErrBackendUnknown},
		{"postgres without dsn", types.Config{Backend: types.BackendPostgres}, types.ErrDSNEmpty},
		{"bad schema name", types.Config{Backend: types.BackendPostgres, DSN: "postgres://localhost/x", Schema: "bad-name;"}, ErrInvalidSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.config, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}
	ctx := context.Background()

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	c := collection(t, s, types.EmployeesCollection)
	_, err = c.Insert(ctx, employee("Ann", "2024-01-01"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	n, err := collection(t, s, types.EmployeesCollection).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Collection(types.EmployeesCollection)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCollectionLookup(t *testing.T) {
	s := openTestStore(t)
	for _, name := range types.RecordCollections {
		c := collection(t, s, name)
		assert.Equal(t, name, c.Name())
		assert.NotEmpty(t, c.Fields())
	}
	_, err := s.Collection(types.DocumentsCollection)
	assert.ErrorIs(t, err, types.ErrCollectionName)
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.EmployeesCollection)

	row, err := c.Insert(ctx, employee("Ann", "2024-01-01"))
	require.NoError(t, err)
	assert.Len(t, row.ID, 36)
	assert.Equal(t, "Ann", row.String("name"))
	assert.Equal(t, types.StatusPending, row.String("status"))
	assert.NotEmpty(t, row.String("created_at"))

	got, err := c.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row, got)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = c.Get(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestInsertRejectsUnknownField(t *testing.T) {
	c := collection(t, openTestStore(t), types.EmployeesCollection)
	_, err := c.Insert(context.Background(), map[string]any{"name": "Ann", "salary": 10})
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

func TestIntegerColumns(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.InventoryCollection)

	tests := []struct {
		name    string
		qty     any
		want    int64
		wantErr error
	}{
		{"int", 3, 3, nil},
		{"json float", float64(12), 12, nil},
		{"json number", json.Number("7"), 7, nil},
		{"numeric string", " 5 ", 5, nil},
		{"fraction", 1.5, 0, types.ErrValidation},
		{"text", "many", 0, types.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := c.Insert(ctx, map[string]any{"item_name": "Laptop", "quantity": tt.qty})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, row.Get("quantity"))
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.EmployeesCollection)
	row, err := c.Insert(ctx, employee("Ann", "2024-01-01"))
	require.NoError(t, err)

	updated, err := c.Update(ctx, row.ID, map[string]any{"status": types.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, updated.String("status"))
	assert.Equal(t, "Ann", updated.String("name"))
	assert.Equal(t, row.String("created_at"), updated.String("created_at"))

	_, err = c.Update(ctx, "missing", map[string]any{"status": types.StatusActive})
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = c.Update(ctx, "", nil)
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.EmployeesCollection)
	row, err := c.Insert(ctx, employee("Ann", "2024-01-01"))
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, row.ID))
	err = c.Delete(ctx, row.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, ""), types.ErrInvalidID)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.InventoryCollection)
	var ids []string
	for _, name := range []string{"Laptop", "Monitor", "Mouse"} {
		row, err := c.Insert(ctx, map[string]any{"item_name": name})
		require.NoError(t, err)
		ids = append(ids, row.ID)
	}

	require.NoError(t, c.DeleteMany(ctx, []string{ids[0], ids[2], "missing"}))
	require.NoError(t, c.DeleteMany(ctx, nil))

	rows, err := c.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.EmployeesCollection)
	for _, e := range []struct{ name, start string }{
		{"Ann", "2023-05-01"},
		{"Ben", "2024-02-01"},
		{"Cat", "2022-09-01"},
	} {
		_, err := c.Insert(ctx, employee(e.name, e.start))
		require.NoError(t, err)
	}

	names := func(rows []types.Row) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.String("name")
		}
		return out
	}

	rows, err := c.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ben", "Ann", "Cat"}, names(rows))

	rows, err = c.List(ctx, &types.Order{Field: "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Ben", "Cat"}, names(rows))

	_, err = c.List(ctx, &types.Order{Field: "name; DROP TABLE employees"})
	assert.ErrorIs(t, err, types.ErrUnknownField)
}

func TestSetPositionsOverridesDefaultOrder(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.StakeholdersCollection)
	var ids []string
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		row, err := c.Insert(ctx, types.Stakeholder{Name: name, Category: types.CategorySETA}.Fields())
		require.NoError(t, err)
		ids = append(ids, row.ID)
	}

	require.NoError(t, c.SetPositions(ctx, []string{ids[2], ids[0], ids[1], "missing"}))

	rows, err := c.List(ctx, nil)
	require.NoError(t, err)
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.ID
	}
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, got)
}

func TestInsertAfterManualOrderListsLast(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.StakeholdersCollection)
	insert := func(name string) string {
		row, err := c.Insert(ctx, types.Stakeholder{Name: name, Category: types.CategorySETA}.Fields())
		require.NoError(t, err)
		return row.ID
	}
	listIDs := func() []string {
		rows, err := c.List(ctx, nil)
		require.NoError(t, err)
		got := make([]string, len(rows))
		for i, r := range rows {
			got[i] = r.ID
		}
		return got
	}

	bravo := insert("Bravo")
	charlie := insert("Charlie")
	alpha := insert("Alpha")
	assert.Equal(t, []string{alpha, bravo, charlie}, listIDs(), "no manual order keeps the default")

	require.NoError(t, c.SetPositions(ctx, []string{charlie, bravo, alpha}))
	aaron := insert("Aaron")
	assert.Equal(t, []string{charlie, bravo, alpha, aaron}, listIDs())

	zed := insert("Zed")
	assert.Equal(t, []string{charlie, bravo, alpha, aaron, zed}, listIDs())
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := collection(t, s, types.StudentsCollection).Insert(ctx, employee("Sam", "2024-03-01"))
	require.NoError(t, err)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		types.EmployeesCollection:    0,
		types.StudentsCollection:     1,
		types.InventoryCollection:    0,
		types.StakeholdersCollection: 0,
	}, counts)
}

func TestImportUpserts(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.StakeholdersCollection)
	existing, err := c.Insert(ctx, map[string]any{"name": "Old", "category": "ul"})
	require.NoError(t, err)

	n, err := c.Import(ctx, []types.Row{
		types.NewRow(existing.ID, map[string]any{"name": "Renamed"}),
		types.NewRow("fixed-id", map[string]any{"name": "New", "category": "zcc"}),
		types.NewRow("", map[string]any{"name": "Anon", "category": "seta"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := c.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.String("name"))
	assert.Equal(t, "ul", got.String("category"))

	got, err = c.Get(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "zcc", got.String("category"))

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	c := collection(t, openTestStore(t), types.StakeholdersCollection)

	_, err := c.Import(ctx, []types.Row{
		types.NewRow("a", map[string]any{"name": "Fine"}),
		types.NewRow("b", map[string]any{"bogus": "x"}),
	})
	assert.ErrorIs(t, err, types.ErrUnknownField)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	c := collection(t, s, types.InventoryCollection)
	_, err := c.Insert(ctx, types.InventoryItem{ItemName: "Laptop", Quantity: 4, Status: types.InventoryActive}.Fields())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "inventory.jsonl")
	n, err := c.Export(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Line)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(records[0].Data, &flat))
	assert.Equal(t, "Laptop", flat["item_name"])
	assert.Equal(t, float64(4), flat["quantity"])
	assert.NotEmpty(t, flat["id"])
}

func TestReadJSONL(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine []int
		wantErr  string
	}{
		{"blank lines keep numbering", "{\"name\":\"a\"}\n\n  \n{\"name\":\"b\"}\n", []int{1, 4}, ""},
		{"no trailing newline", "{\"name\":\"a\"}", []int{1}, ""},
		{"truncated middle line", "{\"name\":\"a\"}\n{\"name\":\"b\",\n{\"name\":\"c\"}\n", nil, "line 2"},
		{"not json after blank", "\n{\"name\":\"a\"}\n\nnot json\n", nil, "line 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			records, err := ReadJSONL(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrValidation)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, records)
				return
			}
			require.NoError(t, err)
			lines := make([]int, len(records))
			for i, r := range records {
				lines[i] = r.Line
			}
			assert.Equal(t, tt.wantLine, lines)
		})
	}

	_, err := ReadJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteJSONLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, WriteJSONL(path, []json.RawMessage{json.RawMessage(`{"a":1}`)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(data))
}

func TestCreateDDLIsPortable(t *testing.T) {
	ddl := tables[types.InventoryCollection].createDDL()
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS inventory")
	assert.Contains(t, ddl, "quantity BIGINT NOT NULL DEFAULT 0")
	assert.Contains(t, ddl, "sort_order BIGINT NOT NULL DEFAULT 0")
	assert.NotContains(t, ddl, "AUTOINCREMENT")
}
