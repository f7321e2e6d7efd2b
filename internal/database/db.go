package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
)

type DB struct {
	*sql.DB
}

func New(db *sql.DB) *DB {
	return &DB{db}
}

func (db *DB) ExecSafe(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", Classify(err))
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", Classify(err))
	}

	return result, nil
}

func (db *DB) QuerySafe(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", Classify(err))
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", Classify(err))
	}

	return rows, nil
}

type TxFn func(*sql.Tx) error

// WithTransaction runs fn inside a single transaction, committing on a nil
// return and rolling back on any error or panic. Row locks acquired inside fn
// are held until commit or rollback, so concurrent settlements against the
// same rows serialize here.
func (db *DB) WithTransaction(ctx context.Context, fn TxFn) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return Classify(err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return Classify(err)
	}

	if err := tx.Commit(); err != nil {
		return Classify(err)
	}
	return nil
}

// Postgres condition codes that indicate the transaction lost a race and can
// be retried as a whole.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// Classify maps driver-level failures onto the store's error kinds:
// serialization failures and deadlocks become retryable conflicts, transport
// failures become unavailability. Errors that already carry a kind, and
// anything else, pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected:
			return apperrors.NewTransactionConflictError(err)
		}
		if strings.HasPrefix(string(pqErr.Code), "08") { // connection exception class
			return apperrors.NewStoreUnavailableError(err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return apperrors.NewStoreUnavailableError(err)
	}

	return err
}
