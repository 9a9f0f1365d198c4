package blobstore

import (
	"context"
	"fmt"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

const blobPrefix = "blob"

// KVStore keeps blobs in an ordered key/value store, normally a LevelDB file
// next to (or separate from) the ledger.
type KVStore struct {
	kv kv.Store
}

func NewKVStore(store kv.Store) *KVStore {
	return &KVStore{kv: store}
}

func (s *KVStore) Put(ctx context.Context, data []byte) (ledger.ContentRef, error) {
	if err := checkPut(data); err != nil {
		return "", err
	}
	ref := RefFor(data)
	key := kv.Key(blobPrefix, string(ref))
	existing, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("lookup blob %s: %w", ref, err)
	}
	if existing != nil {
		return ref, nil
	}
	if err := kv.Put(ctx, s.kv, key, data); err != nil {
		return "", fmt.Errorf("store blob %s: %w", ref, err)
	}
	return ref, nil
}

func (s *KVStore) Get(ctx context.Context, ref ledger.ContentRef) ([]byte, error) {
	if err := checkGet(ref); err != nil {
		return nil, err
	}
	data, err := s.kv.Get(ctx, kv.Key(blobPrefix, string(ref)))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	if data == nil {
		return nil, ErrBlobNotFound
	}
	return verify(ref, data)
}
