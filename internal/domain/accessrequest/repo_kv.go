package accessrequest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Key layout:
//
//	req/<id>                       request
//	reqidx/<patient>/<position>    request id, oldest first
//	reqn/<patient>                 number of requests
//	approved/<patient>/<doctor>    current approval
type repoKV struct{ store kv.Store }

func NewRepoKV(store kv.Store) Repository {
	return &repoKV{store: store}
}

func (r *repoKV) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := kv.Use(ctx, r.store).Get(ctx, key)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *repoKV) CreateRequest(ctx context.Context, req *AccessRequest) error {
	store := kv.Use(ctx, r.store)
	countKey := kv.Key("reqn", string(req.Patient))
	raw, err := store.Get(ctx, countKey)
	if err != nil {
		return err
	}
	var n int64
	if raw != nil {
		if n, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return fmt.Errorf("corrupt request count for %s: %w", req.Patient, err)
		}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return store.Apply(ctx, []kv.Write{
		{Key: kv.Key("req", req.ID), Value: data},
		{Key: kv.Key("reqidx", string(req.Patient), fmt.Sprintf("%020d", n)), Value: []byte(req.ID)},
		{Key: countKey, Value: []byte(strconv.FormatInt(n+1, 10))},
	})
}

func (r *repoKV) GetRequest(ctx context.Context, id string) (*AccessRequest, error) {
	var req AccessRequest
	ok, err := r.getJSON(ctx, kv.Key("req", id), &req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: access request %s", ledger.ErrNotFound, id)
	}
	return &req, nil
}

func (r *repoKV) MarkApproved(ctx context.Context, req *AccessRequest, at time.Time) error {
	updated := *req
	updated.Approved = true
	updated.ApprovedAt = &at
	data, err := json.Marshal(&updated)
	if err != nil {
		return err
	}
	return kv.Put(ctx, kv.Use(ctx, r.store), kv.Key("req", req.ID), data)
}

func (r *repoKV) ListRequests(ctx context.Context, patient ledger.Principal) ([]*AccessRequest, error) {
	var ids []string
	err := kv.Use(ctx, r.store).Scan(ctx, kv.Prefix("reqidx", string(patient)), func(_ string, value []byte) error {
		ids = append(ids, string(value))
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*AccessRequest, 0, len(ids))
	for _, id := range ids {
		req, err := r.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *repoKV) PutApproved(ctx context.Context, a *ApprovedAccess) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return kv.Put(ctx, kv.Use(ctx, r.store), kv.Key("approved", string(a.Patient), string(a.Doctor)), data)
}

func (r *repoKV) GetApproved(ctx context.Context, doctor, patient ledger.Principal) (*ApprovedAccess, error) {
	var a ApprovedAccess
	ok, err := r.getJSON(ctx, kv.Key("approved", string(patient), string(doctor)), &a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoAccess(doctor, patient)
	}
	return &a, nil
}

// errNoAccess is shared by the absent and expired cases so they read the same.
func errNoAccess(doctor, patient ledger.Principal) error {
	return fmt.Errorf("%w: no approved access for %s on %s", ledger.ErrNotFound, doctor, patient)
}
