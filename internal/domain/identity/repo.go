package identity

import (
	"context"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// AccountRepository persists patient accounts. Get wraps ledger.ErrNotFound
// when the principal has never registered.
type AccountRepository interface {
	Create(ctx context.Context, a *PatientAccount) error
	Get(ctx context.Context, principal ledger.Principal) (*PatientAccount, error)
}
