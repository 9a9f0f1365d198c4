package kv

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Txn buffers writes on top of a base Store. Reads see the buffered writes;
// nothing reaches the base until Commit.
type Txn struct {
	base   Store
	writes map[string]Write
	order  []string
}

func newTxn(base Store) *Txn {
	return &Txn{base: base, writes: make(map[string]Write)}
}

func (t *Txn) Get(ctx context.Context, key string) ([]byte, error) {
	if w, ok := t.writes[key]; ok {
		if w.Delete {
			return nil, nil
		}
		return append([]byte(nil), w.Value...), nil
	}
	return t.base.Get(ctx, key)
}

func (t *Txn) Scan(ctx context.Context, prefix string, fn func(string, []byte) error) error {
	merged := make(map[string][]byte)
	if err := t.base.Scan(ctx, prefix, func(k string, v []byte) error {
		merged[k] = v
		return nil
	}); err != nil {
		return err
	}
	for k, w := range t.writes {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if w.Delete {
			delete(merged, k)
			continue
		}
		merged[k] = w.Value
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, append([]byte(nil), merged[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Apply buffers the writes; the last write to a key wins.
func (t *Txn) Apply(_ context.Context, writes []Write) error {
	for _, w := range writes {
		if _, ok := t.writes[w.Key]; !ok {
			t.order = append(t.order, w.Key)
		}
		w.Value = append([]byte(nil), w.Value...)
		t.writes[w.Key] = w
	}
	return nil
}

// Commit applies every buffered write to the base store as one batch.
func (t *Txn) Commit(ctx context.Context) error {
	if len(t.order) == 0 {
		return nil
	}
	batch := make([]Write, 0, len(t.order))
	for _, k := range t.order {
		batch = append(batch, t.writes[k])
	}
	return t.base.Apply(ctx, batch)
}

type txnKey struct{}

// Use returns the transaction bound to store in ctx, or store itself.
func Use(ctx context.Context, store Store) Store {
	if txn, ok := ctx.Value(txnKey{}).(*Txn); ok && txn.base == store {
		return txn
	}
	return store
}

// Transactor implements ledger.Transactor over a Store using per-patient lock
// stripes and overlay transactions.
type Transactor struct {
	store Store
	locks ledger.KeyedMutex
}

// NewTransactor wraps store.
func NewTransactor(store Store) *Transactor {
	return &Transactor{store: store}
}

// WithinPatient runs fn in an overlay transaction while holding the patient's
// lock. A nested call on a context that already carries a transaction for the
// same store joins it.
func (t *Transactor) WithinPatient(ctx context.Context, patient ledger.Principal, fn func(ctx context.Context) error) error {
	if existing, ok := ctx.Value(txnKey{}).(*Txn); ok && existing.base == t.store {
		return fn(ctx)
	}

	unlock := t.locks.Lock(string(patient))
	defer unlock()

	txn := newTxn(t.store)
	ctx = context.WithValue(ctx, txnKey{}, txn)
	ctx, hooks := ledger.WithCommitHooks(ctx)

	if err := fn(ctx); err != nil {
		return err
	}
	if err := txn.Commit(ctx); err != nil {
		return fmt.Errorf("commit patient %s: %w", patient, err)
	}
	hooks.Run()
	return nil
}
