package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Key layout:
//
//	rec/<patient>/<id>               current entry
//	recidx/<patient>/<position>      id, in first-add order
//	recn/<patient>                   number of ids
//	recver/<patient>/<id>/<version>  history row
type recordRepoKV struct{ store kv.Store }

func NewRecordRepoKV(store kv.Store) RecordRepository {
	return &recordRepoKV{store: store}
}

func entryKey(p ledger.Principal, id ledger.RecordID) string {
	return kv.Key("rec", string(p), id.String())
}

func (r *recordRepoKV) Get(ctx context.Context, patient ledger.Principal, id ledger.RecordID) (*RecordEntry, error) {
	data, err := kv.Use(ctx, r.store).Get(ctx, entryKey(patient, id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, notFound(patient, id)
	}
	var e RecordEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &e, nil
}

func (r *recordRepoKV) put(ctx context.Context, e *RecordEntry, extra ...kv.Write) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kv.Use(ctx, r.store).Apply(ctx, append([]kv.Write{{Key: entryKey(e.Patient, e.RecordID), Value: data}}, extra...))
}

func (r *recordRepoKV) Create(ctx context.Context, e *RecordEntry) error {
	store := kv.Use(ctx, r.store)
	countKey := kv.Key("recn", string(e.Patient))
	raw, err := store.Get(ctx, countKey)
	if err != nil {
		return err
	}
	var n int64
	if raw != nil {
		if n, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return fmt.Errorf("corrupt record count for %s: %w", e.Patient, err)
		}
	}
	return r.put(ctx, e,
		kv.Write{Key: kv.Key("recidx", string(e.Patient), fmt.Sprintf("%020d", n)), Value: []byte(e.RecordID.String())},
		kv.Write{Key: countKey, Value: []byte(strconv.FormatInt(n+1, 10))},
	)
}

func (r *recordRepoKV) Update(ctx context.Context, e *RecordEntry) error {
	return r.put(ctx, e)
}

func (r *recordRepoKV) AppendVersion(ctx context.Context, patient ledger.Principal, v *RecordVersion) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := kv.Key("recver", string(patient), v.RecordID.String(), fmt.Sprintf("%010d", v.Version))
	return kv.Put(ctx, kv.Use(ctx, r.store), key, data)
}

func (r *recordRepoKV) ListIDs(ctx context.Context, patient ledger.Principal) ([]ledger.RecordID, error) {
	var ids []ledger.RecordID
	err := kv.Use(ctx, r.store).Scan(ctx, kv.Prefix("recidx", string(patient)), func(_ string, value []byte) error {
		id, err := ledger.ParseRecordID(string(value))
		if err != nil {
			return fmt.Errorf("corrupt record index: %w", err)
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func (r *recordRepoKV) ListVersions(ctx context.Context, patient ledger.Principal, id ledger.RecordID) ([]*RecordVersion, error) {
	var versions []*RecordVersion
	err := kv.Use(ctx, r.store).Scan(ctx, kv.Prefix("recver", string(patient), id.String()), func(_ string, value []byte) error {
		var v RecordVersion
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decode record version: %w", err)
		}
		versions = append(versions, &v)
		return nil
	})
	return versions, err
}
