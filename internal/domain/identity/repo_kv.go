package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type accountRepoKV struct{ store kv.Store }

func NewAccountRepoKV(store kv.Store) AccountRepository {
	return &accountRepoKV{store: store}
}

func accountKey(p ledger.Principal) string {
	return kv.Key("acct", string(p))
}

func (r *accountRepoKV) Create(ctx context.Context, a *PatientAccount) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return kv.Put(ctx, kv.Use(ctx, r.store), accountKey(a.Principal), data)
}

func (r *accountRepoKV) Get(ctx context.Context, principal ledger.Principal) (*PatientAccount, error) {
	data, err := kv.Use(ctx, r.store).Get(ctx, accountKey(principal))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: patient %s is not registered", ledger.ErrNotFound, principal)
	}
	var a PatientAccount
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", principal, err)
	}
	return &a, nil
}
