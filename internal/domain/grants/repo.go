package grants

import (
	"context"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// GrantRepository persists direct grants. Get wraps ledger.ErrNotFound.
type GrantRepository interface {
	Get(ctx context.Context, patient, provider ledger.Principal) (*DirectGrant, error)
	Put(ctx context.Context, g *DirectGrant) error
	Delete(ctx context.Context, patient, provider ledger.Principal) error
	List(ctx context.Context, patient ledger.Principal) ([]*DirectGrant, error)
}
