// Package sqlite provides a SQLite-backed account substrate.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/internal/core/storage/sqlite/migrations"
)

var _ storage.Substrate = (*Store)(nil)

// Store persists accounts in one SQLite table. The pool is capped at a single
// connection, so BeginTx serializes transactions the same way the memory
// substrate does.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite substrate and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrClosed
	}
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		if strings.Contains(err.Error(), "database is closed") {
			return nil, storage.ErrClosed
		}
		return nil, fmt.Errorf("begin sqlite tx: %w", err)
	}
	return &tx{ctx: ctx, sqlTx: sqlTx}, nil
}

type tx struct {
	ctx   context.Context
	sqlTx *sql.Tx
	done  bool
}

func (t *tx) Read(addr models.Address) (storage.Account, error) {
	if t.done {
		return storage.Account{}, storage.ErrTxDone
	}
	var (
		owner    []byte
		capacity int64
		data     []byte
	)
	err := t.sqlTx.QueryRowContext(t.ctx,
		`SELECT owner, capacity, data FROM accounts WHERE address = ?`, addr[:],
	).Scan(&owner, &capacity, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Account{}, storage.ErrAccountNotFound
	}
	if err != nil {
		return storage.Account{}, fmt.Errorf("read account: %w", err)
	}
	a := storage.Account{Capacity: uint64(capacity), Data: data}
	copy(a.Owner[:], owner)
	if a.Data == nil {
		a.Data = []byte{}
	}
	return a, nil
}

func (t *tx) Exists(addr models.Address) (bool, error) {
	if t.done {
		return false, storage.ErrTxDone
	}
	var found int
	err := t.sqlTx.QueryRowContext(t.ctx, `SELECT 1 FROM accounts WHERE address = ?`, addr[:]).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return true, nil
}

func (t *tx) Allocate(addr models.Address, owner models.Address, capacity uint64) error {
	if t.done {
		return storage.ErrTxDone
	}
	_, err := t.sqlTx.ExecContext(t.ctx,
		`INSERT INTO accounts (address, owner, capacity, data, updated_at) VALUES (?, ?, ?, ?, ?)`,
		addr[:], owner[:], int64(capacity), []byte{}, time.Now().UTC().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return storage.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("allocate account: %w", err)
	}
	return nil
}

func (t *tx) Write(addr models.Address, data []byte) error {
	a, err := t.Read(addr)
	if err != nil {
		return err
	}
	if uint64(len(data)) > a.Capacity {
		return errs.ErrCapacityExceeded.With("capacity", a.Capacity).With("size", len(data))
	}
	if data == nil {
		data = []byte{}
	}
	if _, err := t.sqlTx.ExecContext(t.ctx,
		`UPDATE accounts SET data = ?, updated_at = ? WHERE address = ?`,
		data, time.Now().UTC().UnixMilli(), addr[:],
	); err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

func (t *tx) Resize(addr models.Address, capacity uint64) error {
	a, err := t.Read(addr)
	if err != nil {
		return err
	}
	if capacity < a.Capacity {
		return storage.ErrShrink
	}
	if _, err := t.sqlTx.ExecContext(t.ctx,
		`UPDATE accounts SET capacity = ?, updated_at = ? WHERE address = ?`,
		int64(capacity), time.Now().UTC().UnixMilli(), addr[:],
	); err != nil {
		return fmt.Errorf("resize account: %w", err)
	}
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	return t.sqlTx.Commit()
}

func (t *tx) Rollback() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	return t.sqlTx.Rollback()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
