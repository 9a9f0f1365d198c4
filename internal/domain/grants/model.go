package grants

import (
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// DirectGrant is a standing read/write capability of a provider over a
// patient's records. Its absence means no access.
type DirectGrant struct {
	Patient   ledger.Principal `json:"patient"`
	Provider  ledger.Principal `json:"provider"`
	GrantedAt time.Time        `json:"granted_at"`
}
