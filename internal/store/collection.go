package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// timeLayout is fixed width so that timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Collection is the record store of one collection table. It implements
// types.RecordStore, types.Positioner and types.BulkDeleter.
type Collection struct {
	store *Store
	table table
}

var (
	_ types.RecordStore = (*Collection)(nil)
	_ types.Positioner  = (*Collection)(nil)
	_ types.BulkDeleter = (*Collection)(nil)
)

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.table.name
}

// Fields returns the user-visible field names in schema order.
func (c *Collection) Fields() []string {
	out := make([]string, len(c.table.columns))
	for i, col := range c.table.columns {
		out[i] = col.name
	}
	return out
}

// List returns every row. A nil order sorts by manual position first and
// then by the collection's default order.
func (c *Collection) List(ctx context.Context, order *types.Order) ([]types.Row, error) {
	db, err := c.store.handle()
	if err != nil {
		return nil, err
	}
	orderBy, err := c.orderClause(order)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", c.table.selectList(), c.table.name, orderBy)
	rows, err := db.QueryxContext(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", c.table.name)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		m := make(map[string]interface{})
		if err := rows.MapScan(m); err != nil {
			return nil, errors.Wrapf(err, "scan %s", c.table.name)
		}
		out = append(out, c.toRow(m))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "list %s", c.table.name)
	}
	return out, nil
}

func (c *Collection) orderClause(order *types.Order) (string, error) {
	if order == nil {
		d := c.table.defaultOrder
		return fmt.Sprintf("%s ASC, %s %s, %s ASC", colSortOrder, d.Field, direction(d.Descending), colID), nil
	}
	if !c.table.orderable(order.Field) {
		return "", fmt.Errorf("order %s by %q: %w", c.table.name, order.Field, types.ErrUnknownField)
	}
	return fmt.Sprintf("%s %s, %s ASC", order.Field, direction(order.Descending), colID), nil
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// Get returns the row with id.
func (c *Collection) Get(ctx context.Context, id string) (types.Row, error) {
	if id == "" {
		return types.Row{}, types.ErrInvalidID
	}
	db, err := c.store.handle()
	if err != nil {
		return types.Row{}, err
	}
	return c.get(ctx, db, id)
}

func (c *Collection) get(ctx context.Context, q sqlx.ExtContext, id string) (types.Row, error) {
	query := q.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", c.table.selectList(), c.table.name, colID))
	m := make(map[string]interface{})
	if err := q.QueryRowxContext(ctx, query, id).MapScan(m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Row{}, errors.Wrapf(types.ErrNotFound, "get %s/%s", c.table.name, id)
		}
		return types.Row{}, errors.Wrapf(err, "get %s/%s", c.table.name, id)
	}
	return c.toRow(m), nil
}

// Insert creates a row with a new UUID v7 id.
func (c *Collection) Insert(ctx context.Context, fields map[string]any) (types.Row, error) {
	db, err := c.store.handle()
	if err != nil {
		return types.Row{}, err
	}
	id := generateUUID()
	if err := c.insert(ctx, db, id, fields); err != nil {
		return types.Row{}, err
	}
	c.store.log.Debugf("inserted %s/%s", c.table.name, id)
	return c.get(ctx, db, id)
}

func (c *Collection) insert(ctx context.Context, ext sqlx.ExtContext, id string, fields map[string]any) error {
	names, values, err := c.columnValues(fields)
	if err != nil {
		return err
	}
	pos, err := c.nextPosition(ctx, ext)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(timeLayout)
	names = append([]string{colID}, append(names, colSortOrder, colCreatedAt, colUpdatedAt)...)
	values = append([]any{id}, append(values, pos, now, now)...)

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.table.name, strings.Join(names, ", "), placeholders(len(names)))
	if _, err := ext.ExecContext(ctx, ext.Rebind(q), values...); err != nil {
		return errors.Wrapf(err, "insert %s", c.table.name)
	}
	return nil
}

// nextPosition is 0 while the table has no manual order, otherwise one past
// the highest position so new rows list last.
func (c *Collection) nextPosition(ctx context.Context, ext sqlx.ExtContext) (int64, error) {
	var top int64
	q := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", colSortOrder, c.table.name)
	if err := ext.QueryRowxContext(ctx, q).Scan(&top); err != nil {
		return 0, errors.Wrapf(err, "position %s", c.table.name)
	}
	if top == 0 {
		return 0, nil
	}
	return top + 1, nil
}

// Update sets the given fields and returns the stored row.
func (c *Collection) Update(ctx context.Context, id string, fields map[string]any) (types.Row, error) {
	if id == "" {
		return types.Row{}, types.ErrInvalidID
	}
	db, err := c.store.handle()
	if err != nil {
		return types.Row{}, err
	}
	if err := c.update(ctx, db, id, fields); err != nil {
		return types.Row{}, err
	}
	return c.get(ctx, db, id)
}

func (c *Collection) update(ctx context.Context, ext sqlx.ExtContext, id string, fields map[string]any) error {
	names, values, err := c.columnValues(fields)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(names)+1)
	for _, n := range names {
		sets = append(sets, n+" = ?")
	}
	sets = append(sets, colUpdatedAt+" = ?")
	values = append(values, time.Now().UTC().Format(timeLayout), id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", c.table.name, strings.Join(sets, ", "), colID)
	res, err := ext.ExecContext(ctx, ext.Rebind(q), values...)
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", c.table.name, id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(types.ErrNotFound, "update %s/%s", c.table.name, id)
	}
	return nil
}

// Delete removes the row with id.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	db, err := c.store.handle()
	if err != nil {
		return err
	}
	q := db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.table.name, colID))
	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrapf(err, "delete %s/%s", c.table.name, id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(types.ErrNotFound, "delete %s/%s", c.table.name, id)
	}
	c.store.log.Debugf("deleted %s/%s", c.table.name, id)
	return nil
}

// DeleteMany removes every row whose id is in ids. Missing ids are ignored.
func (c *Collection) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := c.store.handle()
	if err != nil {
		return err
	}
	q, args, err := sqlx.In(fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", c.table.name, colID), ids)
	if err != nil {
		return errors.Wrapf(err, "delete %s", c.table.name)
	}
	if _, err := db.ExecContext(ctx, db.Rebind(q), args...); err != nil {
		return errors.Wrapf(err, "delete %s", c.table.name)
	}
	c.store.log.Debugf("deleted %d rows from %s", len(ids), c.table.name)
	return nil
}

// Count returns the number of rows.
func (c *Collection) Count(ctx context.Context) (int, error) {
	db, err := c.store.handle()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table.name)); err != nil {
		return 0, errors.Wrapf(err, "count %s", c.table.name)
	}
	return n, nil
}

// SetPositions stores ids as the manual order, first id first. Positions
// start at 1; 0 means the row has no manual position. Unknown ids are
// ignored.
func (c *Collection) SetPositions(ctx context.Context, ids []string) error {
	db, err := c.store.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	q := tx.Rebind(fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", c.table.name, colSortOrder, colID))
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, q, i+1, id); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "position %s/%s", c.table.name, id)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// Import upserts rows in one transaction, keeping their ids. Rows without
// an id get a new one. It returns the number of rows written.
func (c *Collection) Import(ctx context.Context, rows []types.Row) (int, error) {
	db, err := c.store.handle()
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = generateUUID()
		}
		err := c.update(ctx, tx, id, r.Fields)
		if errors.Is(err, types.ErrNotFound) {
			err = c.insert(ctx, tx, id, r.Fields)
		}
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	c.store.log.Infof("imported %d rows into %s", len(rows), c.table.name)
	return len(rows), nil
}

// columnValues validates field names and coerces values to column types.
// Names are returned sorted.
func (c *Collection) columnValues(fields map[string]any) ([]string, []any, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if _, ok := c.table.column(name); !ok {
			return nil, nil, fmt.Errorf("%s field %q: %w", c.table.name, name, types.ErrUnknownField)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]any, len(names))
	for i, name := range names {
		col, _ := c.table.column(name)
		if !col.integer {
			values[i] = types.FormatValue(fields[name])
			continue
		}
		n, ok := toInt64(fields[name])
		if !ok {
			return nil, nil, types.NewValidationError(types.FieldError{Field: name, Message: "must be a whole number"})
		}
		values[i] = n
	}
	return names, values, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case fmt.Stringer:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func (c *Collection) toRow(m map[string]interface{}) types.Row {
	id := types.FormatValue(m[colID])
	delete(m, colID)
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
			continue
		}
		if col, ok := c.table.column(k); ok && col.integer {
			if n, ok := toInt64(v); ok {
				m[k] = n
			}
		}
	}
	return types.Row{ID: id, Fields: m}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
