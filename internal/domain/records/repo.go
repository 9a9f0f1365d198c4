package records

import (
	"context"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// RecordRepository stores entries, their insertion order and their history.
// Get wraps ledger.ErrNotFound for an unknown key.
type RecordRepository interface {
	Get(ctx context.Context, patient ledger.Principal, id ledger.RecordID) (*RecordEntry, error)
	Create(ctx context.Context, e *RecordEntry) error
	Update(ctx context.Context, e *RecordEntry) error
	AppendVersion(ctx context.Context, patient ledger.Principal, v *RecordVersion) error
	// ListIDs returns the patient's record ids in first-add order.
	ListIDs(ctx context.Context, patient ledger.Principal) ([]ledger.RecordID, error)
	ListVersions(ctx context.Context, patient ledger.Principal, id ledger.RecordID) ([]*RecordVersion, error)
}

func notFound(patient ledger.Principal, id ledger.RecordID) error {
	return &recordNotFound{patient: patient, id: id}
}

type recordNotFound struct {
	patient ledger.Principal
	id      ledger.RecordID
}

func (e *recordNotFound) Error() string {
	return "not found: record " + e.id.String() + " of " + string(e.patient)
}

func (e *recordNotFound) Unwrap() error { return ledger.ErrNotFound }
