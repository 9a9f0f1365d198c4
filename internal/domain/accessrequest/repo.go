package accessrequest

import (
	"context"
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Repository stores requests and approvals. Getters wrap ledger.ErrNotFound.
type Repository interface {
	CreateRequest(ctx context.Context, r *AccessRequest) error
	GetRequest(ctx context.Context, id string) (*AccessRequest, error)
	MarkApproved(ctx context.Context, r *AccessRequest, at time.Time) error
	// ListRequests returns the patient's requests oldest first.
	ListRequests(ctx context.Context, patient ledger.Principal) ([]*AccessRequest, error)

	// PutApproved replaces any existing access for the same doctor and patient.
	PutApproved(ctx context.Context, a *ApprovedAccess) error
	GetApproved(ctx context.Context, doctor, patient ledger.Principal) (*ApprovedAccess, error)
}
