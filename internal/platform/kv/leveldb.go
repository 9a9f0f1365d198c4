package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore persists the registry in an embedded LevelDB database.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a LevelDB database at path.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

// Close releases the database files.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func (s *LevelDBStore) Get(_ context.Context, key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %s: %w", key, err)
	}
	return v, nil
}

func (s *LevelDBStore) Scan(_ context.Context, prefix string, fn func(string, []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		value := append([]byte(nil), iter.Value()...)
		if err := fn(string(iter.Key()), value); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *LevelDBStore) Apply(_ context.Context, writes []Write) error {
	batch := new(leveldb.Batch)
	for _, w := range writes {
		if w.Delete {
			batch.Delete([]byte(w.Key))
			continue
		}
		batch.Put([]byte(w.Key), w.Value)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldb write batch: %w", err)
	}
	return nil
}
