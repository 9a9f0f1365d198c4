package ledger

import (
	"context"
	"hash/fnv"
	"sync"
)

// Transactor runs fn atomically with respect to one patient's state. Operations
// on the same patient are linearized; different patients may proceed in
// parallel. If fn returns an error every write made through ctx is discarded.
type Transactor interface {
	WithinPatient(ctx context.Context, patient Principal, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// CommitHooks collects callbacks that must only run once a transaction commits.
type CommitHooks struct {
	fns []func()
}

// WithCommitHooks attaches a fresh hook list to ctx. Transactor implementations
// call Run after a successful commit and drop the list otherwise.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	h := &CommitHooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// Run invokes the collected callbacks in registration order.
func (h *CommitHooks) Run() {
	for _, fn := range h.fns {
		fn()
	}
	h.fns = nil
}

// AfterCommit defers fn until the enclosing transaction commits. Outside a
// transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if h, ok := ctx.Value(hooksKey{}).(*CommitHooks); ok && h != nil {
		h.fns = append(h.fns, fn)
		return
	}
	fn()
}

const lockStripes = 256

// KeyedMutex serializes work per key using a fixed set of lock stripes, so
// memory stays bounded regardless of how many patients exist.
type KeyedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (m *KeyedMutex) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &m.stripes[h.Sum32()%lockStripes]
}

// Lock acquires the stripe for key and returns its unlock function.
func (m *KeyedMutex) Lock(key string) func() {
	mu := m.stripe(key)
	mu.Lock()
	return mu.Unlock
}
