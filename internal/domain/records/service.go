package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Registration reports whether a patient has an account.
type Registration interface {
	RequireRegistered(ctx context.Context, patient ledger.Principal) error
}

// DirectAccess answers whether a provider holds a standing grant.
type DirectAccess interface {
	HasAccess(ctx context.Context, patient, provider ledger.Principal) (bool, error)
}

// ScopedAccess returns the record ids a doctor may read under a live approval.
// It returns an error wrapping ledger.ErrNotFound when there is none.
type ScopedAccess interface {
	LiveRecordIDs(ctx context.Context, doctor, patient ledger.Principal) ([]ledger.RecordID, error)
}

type Service struct {
	repo     RecordRepository
	tx       ledger.Transactor
	audit    audit.Recorder
	clock    ledger.Clock
	accounts Registration
	direct   DirectAccess
	scoped   ScopedAccess
}

func NewService(repo RecordRepository, tx ledger.Transactor, rec audit.Recorder, clock ledger.Clock,
	accounts Registration, direct DirectAccess) *Service {
	return &Service{repo: repo, tx: tx, audit: rec, clock: clock, accounts: accounts, direct: direct}
}

// SetScopedAccess plugs in the approval lookup once the access workflow exists.
func (s *Service) SetScopedAccess(scoped ScopedAccess) { s.scoped = scoped }

// AddRecord creates the entry at version 1 or bumps an existing one. Only the
// patient and directly granted providers may write.
func (s *Service) AddRecord(ctx context.Context, caller, patient ledger.Principal, id ledger.RecordID, ref ledger.ContentRef) (int, error) {
	if id.IsZero() {
		return 0, fmt.Errorf("%w: record id is required", ledger.ErrInvalidArgument)
	}
	if err := ref.Validate(); err != nil {
		return 0, err
	}
	if err := s.accounts.RequireRegistered(ctx, patient); err != nil {
		return 0, err
	}

	var version int
	err := s.tx.WithinPatient(ctx, patient, func(ctx context.Context) error {
		ok, err := s.isPatientOrGranted(ctx, caller, patient)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s may not write records of %s", ledger.ErrUnauthorized, caller, patient)
		}

		now := s.clock.Now()
		entry, err := s.repo.Get(ctx, patient, id)
		op := audit.OpUpdateRecord
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			op = audit.OpAddRecord
			entry = &RecordEntry{Patient: patient, RecordID: id, ContentRef: ref, Provider: caller, Version: 1, UpdatedAt: now}
			if err := s.repo.Create(ctx, entry); err != nil {
				return fmt.Errorf("create record: %w", err)
			}
		case err != nil:
			return err
		default:
			entry.ContentRef = ref
			entry.Provider = caller
			entry.Version++
			entry.UpdatedAt = now
			if err := s.repo.Update(ctx, entry); err != nil {
				return fmt.Errorf("update record: %w", err)
			}
		}
		if err := s.repo.AppendVersion(ctx, patient, entry.versionRow()); err != nil {
			return fmt.Errorf("append record version: %w", err)
		}
		version = entry.Version

		return s.audit.Record(ctx, audit.Event{
			Operation:  op,
			Caller:     caller,
			Patient:    patient,
			RecordID:   id.String(),
			Detail:     fmt.Sprintf("version %d", entry.Version),
			OccurredAt: now,
		})
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *Service) GetRecord(ctx context.Context, caller, patient ledger.Principal, id ledger.RecordID) (*RecordEntry, error) {
	if err := s.authorizeRecord(ctx, caller, patient, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, patient, id)
}

// GetRecordHistory returns every version of the record, oldest first.
func (s *Service) GetRecordHistory(ctx context.Context, caller, patient ledger.Principal, id ledger.RecordID) ([]*RecordVersion, error) {
	if err := s.authorizeRecord(ctx, caller, patient, id); err != nil {
		return nil, err
	}
	versions, err := s.repo.ListVersions(ctx, patient, id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, notFound(patient, id)
	}
	return versions, nil
}

// GetRecordIDs lists every record id of the patient in first-add order. A
// doctor with any live approval sees the full list, not just the approved ids.
func (s *Service) GetRecordIDs(ctx context.Context, caller, patient ledger.Principal) ([]ledger.RecordID, error) {
	ok, err := s.isPatientOrGranted(ctx, caller, patient)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.liveScope(ctx, caller, patient); err != nil {
			return nil, err
		}
	}
	ids, err := s.repo.ListIDs(ctx, patient)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []ledger.RecordID{}
	}
	return ids, nil
}

// Snapshot reads the current entries for ids without any authorization.
// Unknown ids are skipped.
func (s *Service) Snapshot(ctx context.Context, patient ledger.Principal, ids []ledger.RecordID) ([]*RecordEntry, error) {
	entries := make([]*RecordEntry, 0, len(ids))
	for _, id := range ids {
		e, err := s.repo.Get(ctx, patient, id)
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MissingIDs returns the ids in ids that are not records of patient.
func (s *Service) MissingIDs(ctx context.Context, patient ledger.Principal, ids []ledger.RecordID) ([]ledger.RecordID, error) {
	var missing []ledger.RecordID
	for _, id := range ids {
		_, err := s.repo.Get(ctx, patient, id)
		if errors.Is(err, ledger.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (s *Service) CountRecords(ctx context.Context, patient ledger.Principal) (int, error) {
	ids, err := s.repo.ListIDs(ctx, patient)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Service) isPatientOrGranted(ctx context.Context, caller, patient ledger.Principal) (bool, error) {
	if caller == patient {
		return true, nil
	}
	return s.direct.HasAccess(ctx, patient, caller)
}

// liveScope maps a missing or expired approval to Unauthorized.
func (s *Service) liveScope(ctx context.Context, caller, patient ledger.Principal) ([]ledger.RecordID, error) {
	denied := fmt.Errorf("%w: %s has no access to records of %s", ledger.ErrUnauthorized, caller, patient)
	if s.scoped == nil {
		return nil, denied
	}
	ids, err := s.scoped.LiveRecordIDs(ctx, caller, patient)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, denied
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Service) authorizeRecord(ctx context.Context, caller, patient ledger.Principal, id ledger.RecordID) error {
	ok, err := s.isPatientOrGranted(ctx, caller, patient)
	if err != nil || ok {
		return err
	}
	ids, err := s.liveScope(ctx, caller, patient)
	if err != nil {
		return err
	}
	if !ledger.ContainsRecordID(ids, id) {
		return fmt.Errorf("%w: record %s is outside the approved scope", ledger.ErrUnauthorized, id)
	}
	return nil
}
