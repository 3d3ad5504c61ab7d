package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// table describes how an entity type maps onto its SQL table. The first
// column is always id.
type table[T any] struct {
	kind    string
	name    string
	columns []string
	id      func(*T) string
	created func(*T) string
	// fileID is nil for entities that never own an attachment.
	fileID func(*T) string
	args   func(*T) []any
	scan   func(rowScanner) (T, error)
}

func (t *table[T]) selectSQL() string {
	return fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, id DESC`, strings.Join(t.columns, ", "), t.name)
}

func (t *table[T]) insertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, t.name, strings.Join(t.columns, ", "), marks)
}

func (t *table[T]) updateSQL() string {
	sets := make([]string, 0, len(t.columns)-1)
	for _, c := range t.columns[1:] {
		sets = append(sets, c+" = ?")
	}
	return fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, t.name, strings.Join(sets, ", "))
}

func (t *table[T]) attachment(rec *T) string {
	if t.fileID == nil {
		return ""
	}
	return t.fileID(rec)
}

// collection is the in-memory view of one table, kept newest first. It is
// only mutated after the matching SQL transaction has committed.
type collection[T any] struct {
	t     *table[T]
	items []T
}

func loadCollection[T any](ctx context.Context, db *sql.DB, t *table[T]) (*collection[T], error) {
	rows, err := db.QueryContext(ctx, t.selectSQL())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	c := &collection[T]{t: t}
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.kind, err)
		}
		c.items = append(c.items, rec)
	}
	return c, rows.Err()
}

// before reports whether a sorts ahead of b: newer first, then higher id.
func (c *collection[T]) before(a, b *T) bool {
	ca, cb := c.t.created(a), c.t.created(b)
	if ca != cb {
		return ca > cb
	}
	return c.t.id(a) > c.t.id(b)
}

func (c *collection[T]) index(id string) int {
	return slices.IndexFunc(c.items, func(rec T) bool { return c.t.id(&rec) == id })
}

func (c *collection[T]) get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *collection[T]) insert(rec T) {
	i, _ := slices.BinarySearchFunc(c.items, rec, func(item, target T) int {
		switch {
		case c.before(&item, &target):
			return -1
		case c.before(&target, &item):
			return 1
		}
		return 0
	})
	c.items = slices.Insert(c.items, i, rec)
}

func (c *collection[T]) remove(id string) {
	if i := c.index(id); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

func (c *collection[T]) reset(items []T) {
	c.items = slices.Clone(items)
	slices.SortStableFunc(c.items, func(a, b T) int {
		switch {
		case c.before(&a, &b):
			return -1
		case c.before(&b, &a):
			return 1
		}
		return 0
	})
}

func (c *collection[T]) list() []T {
	return slices.Clone(c.items)
}

// filter returns the cached records whose ids are in ids, in list order.
func (c *collection[T]) filter(ids map[string]bool) []T {
	var out []T
	for _, rec := range c.items {
		if ids[c.t.id(&rec)] {
			out = append(out, rec)
		}
	}
	return out
}

// insertRecord writes rec inside one transaction and then adds it to the
// cache. The caller holds the store lock.
func insertRecord[T any](ctx context.Context, s *Store, c *collection[T], rec *T) error {
	t := c.t
	if _, exists := c.get(t.id(rec)); exists {
		return invalid("id", "%s %q already exists", t.kind, t.id(rec))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkAttachment(ctx, tx, t.attachment(rec), t.id(rec)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, t.insertSQL(), t.args(rec)...); err != nil {
		return fmt.Errorf("insert %s: %w", t.kind, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.insert(*rec)
	return nil
}

// updateRecord replaces the stored record with the same id. An attachment the
// old record owned and the new one no longer references is deleted in the
// same transaction.
func updateRecord[T any](ctx context.Context, s *Store, c *collection[T], rec *T) error {
	t := c.t
	id := t.id(rec)
	old, ok := c.get(id)
	if !ok {
		return notFound(t.kind, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	newFile := t.attachment(rec)
	if err := checkAttachment(ctx, tx, newFile, id); err != nil {
		return err
	}
	args := append(t.args(rec)[1:], id)
	if _, err := tx.ExecContext(ctx, t.updateSQL(), args...); err != nil {
		return fmt.Errorf("update %s: %w", t.kind, err)
	}
	if oldFile := t.attachment(&old); oldFile != "" && oldFile != newFile {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, oldFile); err != nil {
			return fmt.Errorf("delete replaced attachment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.remove(id)
	c.insert(*rec)
	return nil
}

// deleteRecord removes the record and the attachment it owns. It reports
// whether a record was removed; an absent id is not an error.
func deleteRecord[T any](ctx context.Context, s *Store, c *collection[T], id string) (bool, error) {
	t := c.t
	old, ok := c.get(id)
	if !ok {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), id); err != nil {
		return false, fmt.Errorf("delete %s: %w", t.kind, err)
	}
	if fileID := t.attachment(&old); fileID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
			return false, fmt.Errorf("delete attachment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	c.remove(id)
	return true, nil
}

// checkAttachment verifies fileID names a stored blob that no record other
// than ownerID references.
func checkAttachment(ctx context.Context, tx *sql.Tx, fileID, ownerID string) error {
	if fileID == "" {
		return nil
	}
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE id = ?`, fileID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup attachment: %w", err)
	}
	if exists == 0 {
		return invalid("fileId", "attachment %q does not exist", fileID)
	}

	var owners int
	err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM resources WHERE file_id = ? AND id != ?)
		      + (SELECT COUNT(*) FROM speeches WHERE file_id = ? AND id != ?)`,
		fileID, ownerID, fileID, ownerID,
	).Scan(&owners)
	if err != nil {
		return fmt.Errorf("lookup attachment owners: %w", err)
	}
	if owners > 0 {
		return invalid("fileId", "attachment %q belongs to another record", fileID)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
