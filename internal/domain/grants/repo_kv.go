package grants

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type grantRepoKV struct{ store kv.Store }

// NewGrantRepoKV stores grants under grant/<patient>/<provider>.
func NewGrantRepoKV(store kv.Store) GrantRepository {
	return &grantRepoKV{store: store}
}

func grantKey(patient, provider ledger.Principal) string {
	return kv.Key("grant", string(patient), string(provider))
}

func (r *grantRepoKV) Get(ctx context.Context, patient, provider ledger.Principal) (*DirectGrant, error) {
	data, err := kv.Use(ctx, r.store).Get(ctx, grantKey(patient, provider))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: no grant for %s on %s", ledger.ErrNotFound, provider, patient)
	}
	var g DirectGrant
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode grant: %w", err)
	}
	return &g, nil
}

func (r *grantRepoKV) Put(ctx context.Context, g *DirectGrant) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return kv.Put(ctx, kv.Use(ctx, r.store), grantKey(g.Patient, g.Provider), data)
}

func (r *grantRepoKV) Delete(ctx context.Context, patient, provider ledger.Principal) error {
	return kv.Use(ctx, r.store).Apply(ctx, []kv.Write{{Key: grantKey(patient, provider), Delete: true}})
}

func (r *grantRepoKV) List(ctx context.Context, patient ledger.Principal) ([]*DirectGrant, error) {
	var out []*DirectGrant
	err := kv.Use(ctx, r.store).Scan(ctx, kv.Prefix("grant", string(patient)), func(_ string, value []byte) error {
		var g DirectGrant
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("decode grant: %w", err)
		}
		out = append(out, &g)
		return nil
	})
	return out, err
}
