package records

import (
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// RecordEntry is the current state of one named record. The (Patient,
// RecordID) key never changes; Version starts at 1 and only increases.
type RecordEntry struct {
	Patient    ledger.Principal  `json:"patient"`
	RecordID   ledger.RecordID   `json:"record_id"`
	ContentRef ledger.ContentRef `json:"content_ref"`
	Provider   ledger.Principal  `json:"provider"`
	Version    int               `json:"version"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// RecordVersion is one append-only history row.
type RecordVersion struct {
	RecordID   ledger.RecordID   `json:"record_id"`
	Version    int               `json:"version"`
	ContentRef ledger.ContentRef `json:"content_ref"`
	Provider   ledger.Principal  `json:"provider"`
	RecordedAt time.Time         `json:"recorded_at"`
}

func (e *RecordEntry) versionRow() *RecordVersion {
	return &RecordVersion{
		RecordID:   e.RecordID,
		Version:    e.Version,
		ContentRef: e.ContentRef,
		Provider:   e.Provider,
		RecordedAt: e.UpdatedAt,
	}
}
