// Package mysql implements the store contract on MySQL via
// database/sql.  The exclusive section lock maps to SELECT ... FOR
// UPDATE inside a serializable transaction: the row lock is taken when
// the transaction reads the section and released when it commits or
// rolls back.  When MySQL aborts one of two colliding transactions it
// reports a deadlock or lock wait timeout, which is mapped to
// store.ErrTxConflict so the caller can retry the whole operation.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/seatwise/course-enrollment/internal/model"
	"github.com/seatwise/course-enrollment/internal/store"
)

// Store provides data access to the courses, sections, enrollments
// and waitlist_entries tables.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New returns a Store bound to the provided database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to run
// auxiliary queries such as health pings on the same pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// MySQL error numbers that the driver surfaces for aborted or
// conflicting statements.
const (
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
	erDupEntry        = 1062
)

// mapErr converts driver-level errors into store sentinels.  Deadlock
// and lock wait timeout both mean the transaction was thrown away for
// concurrency reasons and may be retried from the top.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case erLockDeadlock, erLockWaitTimeout:
			return fmt.Errorf("%w: %v", store.ErrTxConflict, err)
		case erDupEntry:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		}
	}
	return err
}

// InSectionTx opens a serializable transaction, locks the section row
// with SELECT ... FOR UPDATE, runs fn against it and commits.  Any
// error from fn rolls the transaction back and is returned to the
// caller after sentinel mapping.
func (s *Store) InSectionTx(ctx context.Context, sectionID uint64, fn func(store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	sec, err := lockSection(ctx, tx, sectionID)
	if err != nil {
		return mapErr(err)
	}
	if err := fn(&sectionTx{tx: tx, sec: sec}); err != nil {
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapErr(err)
	}
	committed = true
	return nil
}

// lockSection reads the section row under an exclusive lock.  A
// second transaction selecting the same row FOR UPDATE blocks here
// until the first one finishes.
func lockSection(ctx context.Context, tx *sql.Tx, id uint64) (*model.Section, error) {
	const q = `SELECT id, course_id, semester, capacity, enrolled, version, schedule, room, created_at, updated_at
	           FROM sections WHERE id = ? FOR UPDATE`
	var sec model.Section
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&sec.ID,
		&sec.CourseID,
		&sec.Semester,
		&sec.Capacity,
		&sec.Enrolled,
		&sec.Version,
		&sec.Schedule,
		&sec.Room,
		&sec.CreatedAt,
		&sec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sec, nil
}
