// Package blobstore is the content-addressed store behind ContentRef values.
// Record payloads and shared-data bundles are opaque bytes; a blob's reference
// is derived from its digest, so storing the same bytes twice yields the same
// reference and a reference can never point at different content.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrFileTooLarge = errors.New("blob exceeds maximum allowed size")
	ErrEmptyBlob    = errors.New("blob is empty")
)

// MaxBlobSize is the maximum allowed blob size in bytes (100 MB).
const MaxBlobSize = 100 * 1024 * 1024

// Store persists immutable blobs keyed by their content reference.
type Store interface {
	Put(ctx context.Context, data []byte) (ledger.ContentRef, error)
	Get(ctx context.Context, ref ledger.ContentRef) ([]byte, error)
}

// CID prefix for a version 1, raw-codec, sha2-256 multihash.
var cidPrefix = []byte{0x01, 0x55, 0x12, 0x20}

var lowerBase32 = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// RefFor computes the content reference of data: a base32 CIDv1 over the
// SHA-256 digest, the same form IPFS gateways accept for raw blocks.
func RefFor(data []byte) ledger.ContentRef {
	sum := sha256.Sum256(data)
	raw := make([]byte, 0, len(cidPrefix)+len(sum))
	raw = append(raw, cidPrefix...)
	raw = append(raw, sum[:]...)
	return ledger.ContentRef("b" + lowerBase32.EncodeToString(raw))
}

// IsContentAddressed reports whether ref has the shape RefFor produces.
func IsContentAddressed(ref ledger.ContentRef) bool {
	s := string(ref)
	if !strings.HasPrefix(s, "b") {
		return false
	}
	raw, err := lowerBase32.DecodeString(s[1:])
	if err != nil || len(raw) != len(cidPrefix)+sha256.Size {
		return false
	}
	for i, b := range cidPrefix {
		if raw[i] != b {
			return false
		}
	}
	return true
}

func checkPut(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyBlob
	}
	if len(data) > MaxBlobSize {
		return ErrFileTooLarge
	}
	return nil
}

func checkGet(ref ledger.ContentRef) error {
	if !IsContentAddressed(ref) {
		return fmt.Errorf("%w: %q", ErrBlobNotFound, ref)
	}
	return nil
}

// verify guards against a backend returning bytes that do not hash to ref.
func verify(ref ledger.ContentRef, data []byte) ([]byte, error) {
	if RefFor(data) != ref {
		return nil, fmt.Errorf("blob %s failed digest check", ref)
	}
	return data, nil
}

// ReadAll reads at most MaxBlobSize bytes from r.
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if len(data) > MaxBlobSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// MemoryStore is a thread-safe, in-memory Store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[ledger.ContentRef][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[ledger.ContentRef][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, data []byte) (ledger.ContentRef, error) {
	if err := checkPut(data); err != nil {
		return "", err
	}
	ref := RefFor(data)
	s.mu.Lock()
	if _, ok := s.blobs[ref]; !ok {
		s.blobs[ref] = append([]byte(nil), data...)
	}
	s.mu.Unlock()
	return ref, nil
}

func (s *MemoryStore) Get(_ context.Context, ref ledger.ContentRef) ([]byte, error) {
	if err := checkGet(ref); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.blobs[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of distinct blobs held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
