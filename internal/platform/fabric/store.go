// Package fabric runs the registry on Hyperledger Fabric world state. The
// chaincode stub becomes a kv.Store, the transaction timestamp becomes the
// clock and audit events leave through the transaction's chaincode event.
package fabric

import (
	"context"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
)

// StubStore adapts a chaincode stub to kv.Store. World state has no
// read-your-writes within a transaction; kv.Txn supplies that on top.
type StubStore struct {
	stub shim.ChaincodeStubInterface
}

func NewStubStore(stub shim.ChaincodeStubInterface) *StubStore {
	return &StubStore{stub: stub}
}

func (s *StubStore) Get(_ context.Context, key string) ([]byte, error) {
	value, err := s.stub.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	if len(value) == 0 {
		return nil, nil
	}
	return value, nil
}

func (s *StubStore) Scan(_ context.Context, prefix string, fn func(string, []byte) error) error {
	iter, err := s.stub.GetStateByRange(prefix, rangeEnd(prefix))
	if err != nil {
		return fmt.Errorf("range %s: %w", prefix, err)
	}
	defer iter.Close()

	for iter.HasNext() {
		item, err := iter.Next()
		if err != nil {
			return err
		}
		if err := fn(item.Key, item.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *StubStore) Apply(_ context.Context, writes []kv.Write) error {
	for _, w := range writes {
		var err error
		if w.Delete {
			err = s.stub.DelState(w.Key)
		} else {
			err = s.stub.PutState(w.Key, w.Value)
		}
		if err != nil {
			return fmt.Errorf("write state %s: %w", w.Key, err)
		}
	}
	return nil
}

// rangeEnd is the smallest key greater than every key starting with prefix.
// Keys are path-escaped ASCII, so bumping the last byte never overflows.
func rangeEnd(prefix string) string {
	if prefix == "" {
		return ""
	}
	b := []byte(prefix)
	b[len(b)-1]++
	return string(b)
}
