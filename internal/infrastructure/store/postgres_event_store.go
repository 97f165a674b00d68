package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// Postgres error codes the store reacts to.
const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgLockNotAvailable     = "55P03"
)

// PostgresOptions tunes transaction behaviour.
type PostgresOptions struct {
	// LockTimeout bounds every row lock wait inside a transaction.
	LockTimeout time.Duration
	// TxRetries is how many extra attempts a transaction gets after a
	// deadlock or serialization failure.
	TxRetries int
}

// PostgresStore implements Store on PostgreSQL using row-level locks.
type PostgresStore struct {
	db   *sql.DB
	opts PostgresOptions
}

func NewPostgresStore(db *sql.DB, opts PostgresOptions) *PostgresStore {
	return &PostgresStore{db: db, opts: opts}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// WithinTx runs fn in a READ COMMITTED transaction and retries it when
// PostgreSQL aborts it for a deadlock or serialization failure.
func (s *PostgresStore) WithinTx(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 0; attempt <= s.opts.TxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrSerialization) || ctx.Err() != nil {
			return err
		}
		log.Printf("[Store] Transaction aborted (attempt %d/%d): %v", attempt+1, s.opts.TxRetries+1, err)
	}
	return err
}

func (s *PostgresStore) runTx(ctx context.Context, fn TxFunc) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("[Store] Rollback failed: %v", rbErr)
			}
		}
	}()

	if s.opts.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.opts.LockTimeout.Milliseconds())
		if _, err = sqlTx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err = fn(ctx, &postgresTx{tx: sqlTx}); err != nil {
		return translateError(err)
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", translateError(err))
	}
	return nil
}

// translateError maps driver errors onto the store's sentinel errors so
// callers never need to know about PostgreSQL error codes.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pgDeadlockDetected, pgSerializationFailure:
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	case pgLockNotAvailable:
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return err
}

// FetchPending returns unsent outbox events, oldest first.
func (s *PostgresStore) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, created_at
		 FROM outbox
		 WHERE sent_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Data, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) MarkSent(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET sent_at = NOW() WHERE id = $1`, eventID)
	return err
}
