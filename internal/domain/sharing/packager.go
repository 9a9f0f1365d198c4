package sharing

import (
	"context"
	"errors"
	"fmt"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Packager stores bundles in the blob store and reads them back.
type Packager struct {
	blobs blobstore.Store
	clock ledger.Clock
}

func NewPackager(blobs blobstore.Store, clock ledger.Clock) *Packager {
	return &Packager{blobs: blobs, clock: clock}
}

// CreateDoctorSharedData builds the bundle and returns its content reference.
func (p *Packager) CreateDoctorSharedData(ctx context.Context, records []SharedRecord, doctor ledger.Principal, authorized []ledger.RecordID) (ledger.ContentRef, error) {
	data, err := Encode(Build(records, doctor, authorized, p.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("encode shared data: %w", err)
	}
	ref, err := p.blobs.Put(ctx, data)
	if err != nil {
		return "", fmt.Errorf("store shared data: %w", err)
	}
	return ref, nil
}

// DecryptDoctorSharedData fetches and validates the bundle at ref. A bundle
// addressed to another doctor is Unauthorized.
func (p *Packager) DecryptDoctorSharedData(ctx context.Context, ref ledger.ContentRef, doctor ledger.Principal) (*Bundle, error) {
	data, err := p.blobs.Get(ctx, ref)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, fmt.Errorf("%w: shared data %s", ledger.ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch shared data: %w", err)
	}
	bundle, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if bundle.Doctor != doctor {
		return nil, fmt.Errorf("%w: shared data is addressed to another doctor", ledger.ErrUnauthorized)
	}
	return bundle, nil
}
