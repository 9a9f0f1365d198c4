package accessrequest

import (
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// AccessRequest is a doctor's ask for time-bound access to some records.
// Approved flips once and the request is never changed afterwards.
type AccessRequest struct {
	ID              string            `json:"id"`
	Doctor          ledger.Principal  `json:"doctor"`
	Patient         ledger.Principal  `json:"patient"`
	RecordIDs       []ledger.RecordID `json:"record_ids"`
	Reason          string            `json:"reason"`
	DurationSeconds int64             `json:"duration_seconds"`
	CreatedAt       time.Time         `json:"created_at"`
	Approved        bool              `json:"approved"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
}

// ApprovedAccess is the capability an approval materializes. There is at most
// one per (doctor, patient); a newer approval replaces it.
type ApprovedAccess struct {
	Doctor        ledger.Principal  `json:"doctor"`
	Patient       ledger.Principal  `json:"patient"`
	RequestID     string            `json:"request_id"`
	RecordIDs     []ledger.RecordID `json:"authorized_record_ids"`
	ExpiresAt     time.Time         `json:"expires_at"`
	SharedDataRef ledger.ContentRef `json:"shared_data_ref"`
	GrantedAt     time.Time         `json:"granted_at"`
}

// LiveAt reports whether the access is still valid at now.
func (a *ApprovedAccess) LiveAt(now time.Time) bool {
	return now.Before(a.ExpiresAt)
}

// ApproveOptions lets the patient narrow the record set or shorten the
// duration. A nil RecordIDs keeps the requested set.
type ApproveOptions struct {
	RecordIDs       []ledger.RecordID `json:"record_ids,omitempty"`
	DurationSeconds *int64            `json:"duration_seconds,omitempty"`
}
