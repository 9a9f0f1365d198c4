package registry

import (
	"context"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/grants"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/records"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/sharing"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// RecordSource adapts the record ledger to the access workflow, which never
// imports the records package directly.
type RecordSource struct {
	svc *records.Service
}

func NewRecordSource(svc *records.Service) *RecordSource {
	return &RecordSource{svc: svc}
}

func (a *RecordSource) MissingIDs(ctx context.Context, patient ledger.Principal, ids []ledger.RecordID) ([]ledger.RecordID, error) {
	return a.svc.MissingIDs(ctx, patient, ids)
}

func (a *RecordSource) SharedRecords(ctx context.Context, patient ledger.Principal, ids []ledger.RecordID) ([]sharing.SharedRecord, error) {
	entries, err := a.svc.Snapshot(ctx, patient, ids)
	if err != nil {
		return nil, err
	}
	out := make([]sharing.SharedRecord, len(entries))
	for i, e := range entries {
		out[i] = sharing.SharedRecord{
			RecordID:   e.RecordID,
			ContentRef: e.ContentRef,
			Provider:   e.Provider,
			Version:    e.Version,
			UpdatedAt:  e.UpdatedAt,
		}
	}
	return out, nil
}

type accountStats struct {
	records *records.Service
	grants  *grants.Service
}

func (s *accountStats) CountRecords(ctx context.Context, patient ledger.Principal) (int, error) {
	return s.records.CountRecords(ctx, patient)
}

func (s *accountStats) CountProviders(ctx context.Context, patient ledger.Principal) (int, error) {
	return s.grants.CountProviders(ctx, patient)
}
