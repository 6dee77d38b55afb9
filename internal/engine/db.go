// Package engine is the facade tying the page file, buffer pool, record
// manager, and B+-tree index together into named, persistently-catalogued
// tables and indexes under one data directory.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arlobytes/pagedb/internal/bufferpool"
	"github.com/arlobytes/pagedb/internal/btree"
	"github.com/arlobytes/pagedb/internal/record"
	"github.com/arlobytes/pagedb/internal/recordmgr"
)

var (
	ErrDatabaseClosed = errors.New("engine: database is closed")
	ErrTableNotFound  = errors.New("engine: table not found")
	ErrTableExists    = errors.New("engine: table already exists")
	ErrIndexNotFound  = errors.New("engine: index not found")
	ErrIndexExists    = errors.New("engine: index already exists")
)

// DatabaseOperation is the facade's public contract: create/open tables and
// indexes, and release everything on Close.
type DatabaseOperation interface {
	CreateTable(name string, schema record.Schema) (*recordmgr.Table, error)
	OpenTable(name string) (*recordmgr.Table, error)
	CreateIndex(name string, keyKind record.KeyKind, fanOut int) (*btree.Tree, error)
	OpenIndex(name string, keyKind record.KeyKind, fanOut int) (*btree.Tree, error)
	Close() error
}

// TableMeta is the catalog record persisted alongside a table's page file
// so OpenTable can recover its schema and replacement strategy without
// guessing.
type TableMeta struct {
	Name      string             `json:"name"`
	Schema    record.Schema      `json:"schema"`
	Strategy  bufferpool.Strategy `json:"strategy"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

var _ DatabaseOperation = (*Database)(nil)

// Database is an open handle to a data directory. It tracks opened tables
// and indexes only to close them together; each one owns its own buffer
// pool and page file.
type Database struct {
	DataDir         string
	PoolCapacity    int
	DefaultStrategy bufferpool.Strategy

	tables  map[string]*recordmgr.Table
	indexes map[string]*btree.Tree
	closed  bool
	log     *slog.Logger
}

// NewDatabase creates a database handle without touching the filesystem;
// the directory is created lazily by the first CreateTable/CreateIndex.
func NewDatabase(dataDir string) *Database {
	return &Database{
		DataDir:         dataDir,
		PoolCapacity:    bufferpool.DefaultCapacity,
		DefaultStrategy: bufferpool.FIFO,
		tables:          make(map[string]*recordmgr.Table),
		indexes:         make(map[string]*btree.Tree),
		log:             slog.Default().With("component", "engine", "dataDir", dataDir),
	}
}

func (db *Database) tablePath(name string) string { return filepath.Join(db.DataDir, name+".tbl") }
func (db *Database) indexPath(name string) string { return filepath.Join(db.DataDir, name+".idx") }
func (db *Database) metaPath(name string) string  { return filepath.Join(db.DataDir, name+".meta.json") }

func (db *Database) writeMeta(meta TableMeta) error {
	if err := os.MkdirAll(db.DataDir, 0o755); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(db.metaPath(meta.Name), data, 0o644)
}

func (db *Database) readMeta(name string) (TableMeta, error) {
	data, err := os.ReadFile(db.metaPath(name))
	if err != nil {
		return TableMeta{}, fmt.Errorf("%w: %v", ErrTableNotFound, err)
	}
	var meta TableMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return TableMeta{}, err
	}
	return meta, nil
}

// CreateTable creates a new table with the given schema, persisting a
// catalog entry so a later OpenTable can recover the schema.
func (db *Database) CreateTable(name string, schema record.Schema) (*recordmgr.Table, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if _, exists := db.tables[name]; exists {
		return nil, ErrTableExists
	}
	if err := os.MkdirAll(db.DataDir, 0o755); err != nil {
		return nil, err
	}

	tbl, err := recordmgr.CreateTable(db.tablePath(name), schema, db.PoolCapacity, db.DefaultStrategy)
	if err != nil {
		return nil, err
	}
	if err := db.writeMeta(TableMeta{
		Name:      name,
		Schema:    schema,
		Strategy:  db.DefaultStrategy,
		CreatedAt: time.Now(),
	}); err != nil {
		tbl.Close()
		return nil, err
	}

	db.tables[name] = tbl
	return tbl, nil
}

// OpenTable reopens a table previously created by CreateTable.
func (db *Database) OpenTable(name string) (*recordmgr.Table, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if tbl, ok := db.tables[name]; ok {
		return tbl, nil
	}

	meta, err := db.readMeta(name)
	if err != nil {
		return nil, err
	}
	tbl, err := recordmgr.OpenTable(db.tablePath(name), db.PoolCapacity, meta.Strategy)
	if err != nil {
		return nil, err
	}

	db.tables[name] = tbl
	return tbl, nil
}

// CreateIndex creates a new, empty B+-tree index keyed by keyKind with
// fan-out fanOut.
func (db *Database) CreateIndex(name string, keyKind record.KeyKind, fanOut int) (*btree.Tree, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if _, exists := db.indexes[name]; exists {
		return nil, ErrIndexExists
	}
	if err := os.MkdirAll(db.DataDir, 0o755); err != nil {
		return nil, err
	}

	tree, err := btree.CreateBtree(db.indexPath(name), keyKind, fanOut)
	if err != nil {
		return nil, err
	}
	db.indexes[name] = tree
	return tree, nil
}

// OpenIndex reopens an index's backing page file. Per the tree's Non-goal
// of persisting contents across close/open, the returned tree is always
// empty — callers that need a durable index rebuild it from a table scan.
func (db *Database) OpenIndex(name string, keyKind record.KeyKind, fanOut int) (*btree.Tree, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if tree, ok := db.indexes[name]; ok {
		return tree, nil
	}

	tree, err := btree.OpenBtree(db.indexPath(name), keyKind, fanOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexNotFound, err)
	}
	db.indexes[name] = tree
	return tree, nil
}

// Close flushes and closes every table and index opened through this
// handle.
func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true

	var firstErr error
	for name, tbl := range db.tables {
		if err := tbl.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close table %q: %w", name, err)
		}
	}
	for name, idx := range db.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %q: %w", name, err)
		}
	}
	return firstErr
}

// UpdateTableSchema rewrites the catalog entry's schema. It does not
// migrate existing rows; callers that need a real ALTER TABLE must do so
// themselves by scanning and reinserting.
func (db *Database) UpdateTableSchema(name string, newSchema record.Schema) error {
	meta, err := db.readMeta(name)
	if err != nil {
		return err
	}
	meta.Schema = newSchema
	return db.writeMeta(meta)
}
