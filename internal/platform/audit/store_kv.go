package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// kvStore keeps events under audit/<patient>/<seq> with a per-patient counter,
// so ids are deterministic across chaincode endorsers.
type kvStore struct {
	kv kv.Store
}

func NewKVStore(store kv.Store) Store {
	return &kvStore{kv: store}
}

func seqKey(patient ledger.Principal) string {
	return kv.Key("auditseq", string(patient))
}

func eventKey(patient ledger.Principal, seq int64) string {
	return kv.Key("audit", string(patient), fmt.Sprintf("%020d", seq))
}

func (s *kvStore) Append(ctx context.Context, ev *Event) error {
	store := kv.Use(ctx, s.kv)

	raw, err := store.Get(ctx, seqKey(ev.Patient))
	if err != nil {
		return fmt.Errorf("read audit sequence: %w", err)
	}
	var last int64
	if raw != nil {
		last, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt audit sequence for %s: %w", ev.Patient, err)
		}
	}

	ev.Seq = last + 1
	ev.ID = fmt.Sprintf("%s-%d", ev.Patient, ev.Seq)
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return store.Apply(ctx, []kv.Write{
		{Key: eventKey(ev.Patient, ev.Seq), Value: data},
		{Key: seqKey(ev.Patient), Value: []byte(strconv.FormatInt(ev.Seq, 10))},
	})
}

func (s *kvStore) ListByPatient(ctx context.Context, patient ledger.Principal, limit, offset int) ([]*Event, int, error) {
	var all []*Event
	err := kv.Use(ctx, s.kv).Scan(ctx, kv.Prefix("audit", string(patient)), func(_ string, value []byte) error {
		var ev Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("decode audit event: %w", err)
		}
		all = append(all, &ev)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page(all, limit, offset), len(all), nil
}

func page(items []*Event, limit, offset int) []*Event {
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
