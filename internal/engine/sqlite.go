package engine

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/convexauth/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (documents + index_entries with partial unique index)
const currentSchemaVersion = 1

// defaultPageSize is used when PageOptions.NumItems is not set.
const defaultPageSize = 100

// softPageBytes is the document-value byte budget past which a page gets a
// SplitRecommended status even though it fit under MaxPageSize.
const softPageBytes = 1 << 20

// Store is the SQLite-backed Engine implementation.
// Uses WAL mode for concurrent read access; writes are serialized by the
// single-connection pool, which is what gives each Update closure
// serializable-per-call semantics.
type Store struct {
	db     *sql.DB
	schema *schema.Schema
	clock  func() time.Time
	newID  func() string
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithClock sets a custom clock for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIDGenerator sets a custom document id generator for deterministic tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically; idempotent.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement (index entries cascade on document delete)
func Open(path string, sch *schema.Schema, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		schema: sch,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txHandle{store: s, tx: tx, ctx: ctx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Update runs fn inside a read-write transaction. Any error from fn rolls
// back every write issued inside the closure.
func (s *Store) Update(ctx context.Context, fn func(Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&txHandle{store: s, tx: tx, ctx: ctx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// txHandle implements Reader and Writer over one transaction.
type txHandle struct {
	store *Store
	tx    *sql.Tx
	ctx   context.Context
}

const docColumns = "d.id, d.table_id, d.creation_time, d.value"

func (h *txHandle) Get(table, id string) (*Document, error) {
	row := h.tx.QueryRowContext(h.ctx, `
		SELECT `+docColumns+`
		FROM documents d
		WHERE d.id = ? AND d.table_id = ?
	`, id, table)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	return doc, nil
}

func (h *txHandle) IndexUnique(table, field string, value any) (*Document, error) {
	docs, err := h.indexScanKind(table, field, CmpEq, value, 2)
	if err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
		return &docs[0], nil
	default:
		return nil, fmt.Errorf("index %s.%s: multiple documents for unique probe", table, field)
	}
}

func (h *txHandle) IndexFirst(table, field string, value any) (*Document, error) {
	docs, err := h.indexScanKind(table, field, CmpEq, value, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (h *txHandle) IndexScan(table, field string, cmp Comparator, value any, limit int) ([]Document, error) {
	return h.indexScanKind(table, field, cmp, value, limit)
}

func (h *txHandle) IndexCount(table, field string, value any) (int, error) {
	kind, vtext, vnum, err := encodeIndexValue(value)
	if err != nil {
		return 0, fmt.Errorf("index %s.%s: %w", table, field, err)
	}
	col, err := boundColumn(kind)
	if err != nil {
		return 0, fmt.Errorf("index %s.%s: %w", table, field, err)
	}

	var bound any = vnum
	if col == "vtext" {
		bound = vtext
	}

	var n int
	err = h.tx.QueryRowContext(h.ctx, `
		SELECT COUNT(*)
		FROM index_entries e
		WHERE e.table_id = ? AND e.field = ? AND e.vkind = ? AND e.`+col+` = ?
	`, table, field, kind, bound).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("index count %s.%s: %w", table, field, err)
	}
	return n, nil
}

func (h *txHandle) CompoundFirst(table, indexName string, values []any) (*Document, error) {
	key, err := encodeCompoundKey(values)
	if err != nil {
		return nil, fmt.Errorf("compound %s.%s: %w", table, indexName, err)
	}

	rows, err := h.tx.QueryContext(h.ctx, `
		SELECT `+docColumns+`
		FROM index_entries e
		JOIN documents d ON d.id = e.doc_id
		WHERE e.table_id = ? AND e.field = ? AND e.vkind = ? AND e.vtext = ?
		ORDER BY d.creation_time ASC, d.id ASC
		LIMIT 1
	`, table, indexName, kindCompound, key)
	if err != nil {
		return nil, fmt.Errorf("compound lookup %s.%s: %w", table, indexName, err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (h *txHandle) Count(table string) (int, error) {
	var n int
	err := h.tx.QueryRowContext(h.ctx,
		`SELECT COUNT(*) FROM documents WHERE table_id = ?`, table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (h *txHandle) indexScanKind(table, field string, cmp Comparator, value any, limit int) ([]Document, error) {
	kind, vtext, vnum, err := encodeIndexValue(value)
	if err != nil {
		return nil, fmt.Errorf("index %s.%s: %w", table, field, err)
	}
	col, err := boundColumn(kind)
	if err != nil {
		return nil, fmt.Errorf("index %s.%s: %w", table, field, err)
	}
	op, err := sqlComparator(cmp)
	if err != nil {
		return nil, fmt.Errorf("index %s.%s: %w", table, field, err)
	}
	if kind == kindNull && cmp != CmpEq {
		return nil, fmt.Errorf("index %s.%s: null probes support equality only", table, field)
	}

	var bound any = vnum
	if col == "vtext" {
		bound = vtext
	}

	query := `
		SELECT ` + docColumns + `
		FROM index_entries e
		JOIN documents d ON d.id = e.doc_id
		WHERE e.table_id = ? AND e.field = ? AND e.vkind = ? AND e.` + col + ` ` + op + ` ?
		ORDER BY e.` + col + ` ASC, d.creation_time ASC, d.id ASC`
	args := []any{table, field, kind, bound}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.tx.QueryContext(h.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index scan %s.%s: %w", table, field, err)
	}
	defer rows.Close()

	return collectDocuments(rows)
}

func (h *txHandle) Paginate(table string, ref *IndexRef, opts PageOptions) (*PageResult, error) {
	cur, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, err
	}

	eff := opts.NumItems
	if eff <= 0 {
		eff = defaultPageSize
	}
	var status PageStatus
	if eff > MaxPageSize {
		eff = MaxPageSize
		status = SplitRequired
	}

	query := `SELECT ` + docColumns + ` FROM documents d`
	var args []any
	if ref != nil {
		kind, vtext, vnum, err := encodeIndexValue(ref.Value)
		if err != nil {
			return nil, fmt.Errorf("paginate %s by %s: %w", table, ref.Field, err)
		}
		col, err := boundColumn(kind)
		if err != nil {
			return nil, fmt.Errorf("paginate %s by %s: %w", table, ref.Field, err)
		}
		cmp := ref.Cmp
		if cmp == "" {
			cmp = CmpEq
		}
		op, err := sqlComparator(cmp)
		if err != nil {
			return nil, fmt.Errorf("paginate %s by %s: %w", table, ref.Field, err)
		}
		var bound any = vnum
		if col == "vtext" {
			bound = vtext
		}
		query += `
			JOIN index_entries e ON e.doc_id = d.id AND e.table_id = ? AND e.field = ?
				AND e.vkind = ? AND e.` + col + ` ` + op + ` ?`
		args = append(args, table, ref.Field, kind, bound)
	}

	query += ` WHERE d.table_id = ?`
	args = append(args, table)
	if opts.Cursor != "" {
		query += ` AND (d.creation_time > ? OR (d.creation_time = ? AND d.id > ?))`
		args = append(args, cur.CreationTime, cur.CreationTime, cur.ID)
	}
	query += ` ORDER BY d.creation_time ASC, d.id ASC LIMIT ?`
	args = append(args, eff+1)

	rows, err := h.tx.QueryContext(h.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("paginate %s: %w", table, err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}

	result := &PageResult{IsDone: len(docs) <= eff}
	if len(docs) > eff {
		docs = docs[:eff]
	}
	result.Page = docs

	result.ContinueCursor = opts.Cursor
	if len(docs) > 0 {
		last := docs[len(docs)-1]
		result.ContinueCursor = encodeCursor(cursor{CreationTime: last.CreationTime, ID: last.ID})
	}

	if status == "" && !result.IsDone && pageBytes(docs) > softPageBytes {
		status = SplitRecommended
	}

	// A split cursor points at the middle of the returned page. Continuing
	// from it revisits the back half, which divides the page without ever
	// dropping documents past it.
	if status != "" && len(docs) > 1 && !result.IsDone {
		mid := docs[(len(docs)-1)/2]
		result.PageStatus = status
		result.SplitCursor = encodeCursor(cursor{CreationTime: mid.CreationTime, ID: mid.ID})
	}

	return result, nil
}

func (h *txHandle) Insert(table string, fields map[string]any) (string, error) {
	id := h.store.newID()
	ct := h.store.clock().UnixMilli()

	value, err := encodeFields(fields)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}

	_, err = h.tx.ExecContext(h.ctx, `
		INSERT INTO documents (id, table_id, creation_time, value)
		VALUES (?, ?, ?, ?)
	`, id, table, ct, value)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}

	if err := h.writeIndexEntries(table, id, fields, nil); err != nil {
		return "", err
	}
	return id, nil
}

func (h *txHandle) Patch(table, id string, fields map[string]any) error {
	doc, err := h.Get(table, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("patch %s/%s: document not found", table, id)
	}

	merged := make(map[string]any, len(doc.Fields)+len(fields))
	for k, v := range doc.Fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	value, err := encodeFields(merged)
	if err != nil {
		return fmt.Errorf("patch %s/%s: %w", table, id, err)
	}
	if _, err := h.tx.ExecContext(h.ctx,
		`UPDATE documents SET value = ? WHERE id = ?`, value, id); err != nil {
		return fmt.Errorf("patch %s/%s: %w", table, id, err)
	}

	return h.writeIndexEntries(table, id, merged, fields)
}

func (h *txHandle) Remove(table, id string) error {
	// Index entries cascade via the foreign key.
	if _, err := h.tx.ExecContext(h.ctx,
		`DELETE FROM documents WHERE id = ? AND table_id = ?`, id, table); err != nil {
		return fmt.Errorf("remove %s/%s: %w", table, id, err)
	}
	return nil
}

// writeIndexEntries refreshes index entries for a document. touched limits
// the refresh to index entries affected by a patch; nil refreshes everything
// (the insert path).
func (h *txHandle) writeIndexEntries(table, id string, fields map[string]any, touched map[string]any) error {
	sch := h.store.schema

	for _, f := range sch.FieldsOf(table) {
		if !f.Indexed {
			continue
		}
		if touched != nil {
			if _, ok := touched[f.Name]; !ok {
				continue
			}
			if _, err := h.tx.ExecContext(h.ctx,
				`DELETE FROM index_entries WHERE doc_id = ? AND field = ?`, id, f.Name); err != nil {
				return fmt.Errorf("refresh index %s.%s: %w", table, f.Name, err)
			}
		}

		value, ok := fields[f.Name]
		if !ok {
			continue // optional field absent, no entry
		}
		if err := h.insertEntry(table, f.Name, id, value, f.Unique); err != nil {
			return err
		}
	}

	for _, c := range sch.CompoundOf(table) {
		if touched != nil && !compoundTouched(c, touched) {
			continue
		}
		if touched != nil {
			if _, err := h.tx.ExecContext(h.ctx,
				`DELETE FROM index_entries WHERE doc_id = ? AND field = ?`, id, c.Name); err != nil {
				return fmt.Errorf("refresh index %s.%s: %w", table, c.Name, err)
			}
		}

		values := make([]any, 0, len(c.Fields))
		complete := true
		for _, fname := range c.Fields {
			v, ok := fields[fname]
			if !ok {
				complete = false
				break
			}
			values = append(values, v)
		}
		if !complete {
			continue
		}
		key, err := encodeCompoundKey(values)
		if err != nil {
			return fmt.Errorf("index %s.%s: %w", table, c.Name, err)
		}
		if _, err := h.tx.ExecContext(h.ctx, `
			INSERT INTO index_entries (table_id, field, vkind, vtext, vnum, doc_id, uniq)
			VALUES (?, ?, ?, ?, 0, ?, 0)
		`, table, c.Name, kindCompound, key, id); err != nil {
			return fmt.Errorf("index %s.%s: %w", table, c.Name, err)
		}
	}

	return nil
}

func (h *txHandle) insertEntry(table, field, id string, value any, unique bool) error {
	kind, vtext, vnum, err := encodeIndexValue(value)
	if err != nil {
		return fmt.Errorf("index %s.%s: %w", table, field, err)
	}

	uniq := 0
	if unique {
		uniq = 1
	}
	_, err = h.tx.ExecContext(h.ctx, `
		INSERT INTO index_entries (table_id, field, vkind, vtext, vnum, doc_id, uniq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, table, field, kind, vtext, vnum, id, uniq)
	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Table: table, Field: field}
		}
		return fmt.Errorf("index %s.%s: %w", table, field, err)
	}
	return nil
}

func compoundTouched(c schema.CompoundIndex, touched map[string]any) bool {
	for _, f := range c.Fields {
		if _, ok := touched[f]; ok {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func pageBytes(docs []Document) int {
	total := 0
	for i := range docs {
		for k, v := range docs[i].Fields {
			total += len(k)
			if s, ok := v.(string); ok {
				total += len(s)
			} else {
				total += 8
			}
		}
	}
	return total
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*Document, error) {
	var doc Document
	var value string
	if err := row.Scan(&doc.ID, &doc.Table, &doc.CreationTime, &value); err != nil {
		return nil, err
	}
	fields, err := decodeFields(value)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	doc.Fields = fields
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func encodeFields(fields map[string]any) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}
