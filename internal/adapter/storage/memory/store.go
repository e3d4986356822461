// Package memory is an in-process storage driver used for local runs and
// end-to-end tests. Transactions are serialized: only one may be open at a
// time, and rollback replays an undo journal. Reads outside a transaction
// may observe a concurrent transaction's uncommitted writes.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rubi-trail/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrForeignTx is returned when a repository receives a tx it did not create.
	ErrForeignTx = errors.New("memory: transaction not created by this store")
	// ErrNegativeBalance mirrors the balance >= 0 CHECK constraint.
	ErrNegativeBalance = errors.New("memory: balance would become negative")

	errUnsupported = errors.New("memory: raw SQL is not supported")
)

type scanKey struct {
	accountID    uuid.UUID
	locationCode string
}

// Store holds all tables in maps guarded by mu. sem admits one transaction at a time.
type Store struct {
	sem chan struct{}

	mu         sync.RWMutex
	accounts   map[uuid.UUID]domain.Account
	byExternal map[string]uuid.UUID
	scans      map[scanKey]domain.ScanRecord
	rewards    map[int64]domain.Reward
	vouchers   map[string]domain.Voucher
}

// NewStore creates an empty store seeded with the given rewards.
func NewStore(rewards ...domain.Reward) *Store {
	s := &Store{
		sem:        make(chan struct{}, 1),
		accounts:   make(map[uuid.UUID]domain.Account),
		byExternal: make(map[string]uuid.UUID),
		scans:      make(map[scanKey]domain.ScanRecord),
		rewards:    make(map[int64]domain.Reward),
		vouchers:   make(map[string]domain.Voucher),
	}
	for _, r := range rewards {
		s.rewards[r.ID] = r
	}
	return s
}

// DefaultRewards is the partner catalog also seeded by the SQL migrations.
func DefaultRewards() []domain.Reward {
	return []domain.Reward{
		{ID: 1, Title: "Restaurant : Tavaduri", Description: "20% CASHBACK (MAX 40 LARI)", Price: 20, Partner: "Tavaduri"},
		{ID: 2, Title: "Cafe : Art House", Description: "15% CASHBACK (MAX 30 LARI)", Price: 15, Partner: "Art House"},
		{ID: 3, Title: "Museum : Modern Art", Description: "FREE ENTRY + 10% CASHBACK", Price: 10, Partner: "Museum of Modern Art"},
	}
}

// Begin implements ports.DBTransactor. It blocks while another transaction is open.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.sem <- struct{}{}:
		return &memTx{store: s}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("begin transaction: %w", ctx.Err())
	}
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

// txFrom unwraps a transaction created by this store.
func (s *Store) txFrom(tx pgx.Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return nil, ErrForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

// memTx implements pgx.Tx over the store. Writes register undo functions
// that Rollback applies in reverse order.
type memTx struct {
	store *Store
	undo  []func()
	done  bool
}

func (t *memTx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) release() {
	t.done = true
	t.undo = nil
	<-t.store.sem
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("memory: nested transactions are not supported")
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}

func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }

func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}

func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errUnsupported
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errUnsupported
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{err: errUnsupported}
}

func (t *memTx) Conn() *pgx.Conn { return nil }

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }
