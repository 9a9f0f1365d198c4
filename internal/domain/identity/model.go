package identity

import (
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// PatientAccount is created on first registration and never deleted.
type PatientAccount struct {
	Principal    ledger.Principal `json:"principal"`
	RegisteredAt time.Time        `json:"registered_at"`
}

// AccountSummary is what a patient sees about their own account.
type AccountSummary struct {
	PatientAccount
	RecordCount   int `json:"record_count"`
	ProviderCount int `json:"provider_count"`
}
