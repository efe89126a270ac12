// Package memory implements the repository ports in process memory. It backs
// the "memory" storage driver and the service tests.
//
// Transactions are serialised: Begin takes a single store-wide slot that is
// held until Commit or Rollback, so a transaction observes no concurrent
// transactional writes. Writes made inside a transaction record an undo entry
// and are reverted on Rollback.
package memory

import (
	"context"
	"errors"
	"sync"

	"qr-loyalty-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errNestedTx = errors.New("memory: nested transactions are not supported")

// Store holds every table. Repositories created from the same Store share it.
type Store struct {
	txSlot chan struct{}

	mu          sync.RWMutex
	accounts    map[uuid.UUID]*domain.Account
	customers   map[uuid.UUID]*domain.CustomerProfile // keyed by account id
	merchants   map[uuid.UUID]*domain.Merchant
	categories  map[uuid.UUID]*domain.Category
	promotions  map[uuid.UUID]*domain.Promotion
	redemptions map[uuid.UUID]*domain.Redemption
	ratings     map[uuid.UUID]*domain.Rating
	audit       []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		txSlot:      make(chan struct{}, 1),
		accounts:    make(map[uuid.UUID]*domain.Account),
		customers:   make(map[uuid.UUID]*domain.CustomerProfile),
		merchants:   make(map[uuid.UUID]*domain.Merchant),
		categories:  make(map[uuid.UUID]*domain.Category),
		promotions:  make(map[uuid.UUID]*domain.Promotion),
		redemptions: make(map[uuid.UUID]*domain.Redemption),
		ratings:     make(map[uuid.UUID]*domain.Rating),
	}
}

// Transactor implements ports.DBTransactor over a Store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a new Transactor.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin waits for the transaction slot or until ctx is done.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case t.store.txSlot <- struct{}{}:
		return &Tx{store: t.store}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Tx is the pgx.Tx handed out by Transactor. Only Commit and Rollback have
// effect; the SQL methods exist to satisfy the interface.
type Tx struct {
	store *Store
	undo  []func()
	done  bool
}

// Commit keeps every write and releases the transaction slot.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	<-t.store.txSlot
	return nil
}

// Rollback reverts every write in reverse order and releases the slot.
// Calling it after Commit is a no-op that returns pgx.ErrTxClosed.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	<-t.store.txSlot
	return nil
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errNestedTx }
func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.ErrUnsupported
}
func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.ErrUnsupported
}
func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), errors.ErrUnsupported
}
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.ErrUnsupported
}
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *Tx) Conn() *pgx.Conn                                               { return nil }

// track records the current value of m[key] so a rollback of tx can restore
// it. It must be called with s.mu held, before the write. A nil or foreign tx
// records nothing.
func track[V any](tx pgx.Tx, m map[uuid.UUID]*V, key uuid.UUID) {
	t, ok := tx.(*Tx)
	if !ok || t == nil || t.done {
		return
	}
	prev, existed := m[key]
	var saved V
	if existed {
		saved = *prev
	}
	t.undo = append(t.undo, func() {
		if existed {
			restored := saved
			m[key] = &restored
		} else {
			delete(m, key)
		}
	})
}

// page returns the [start, end) bounds of a 1-based page over n rows.
func page(n, pageNum, pageSize int) (int, int) {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (pageNum - 1) * pageSize
	if start > n {
		start = n
	}
	end := start + pageSize
	if end > n {
		end = n
	}
	return start, end
}
