package grants

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

type Service struct {
	repo     GrantRepository
	tx       ledger.Transactor
	audit    audit.Recorder
	clock    ledger.Clock
	accounts Registration
}

func NewService(repo GrantRepository, tx ledger.Transactor, rec audit.Recorder, clock ledger.Clock, accounts Registration) *Service {
	return &Service{repo: repo, tx: tx, audit: rec, clock: clock, accounts: accounts}
}

// GrantAccess gives provider a standing grant on the caller's records. The
// caller is always the patient. Granting twice is a no-op.
func (s *Service) GrantAccess(ctx context.Context, patient, provider ledger.Principal) error {
	if err := s.checkProvider(patient, provider); err != nil {
		return err
	}
	if err := s.accounts.RequireRegistered(ctx, patient); err != nil {
		return err
	}
	return s.tx.WithinPatient(ctx, patient, func(ctx context.Context) error {
		_, err := s.repo.Get(ctx, patient, provider)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		now := s.clock.Now()
		if err := s.repo.Put(ctx, &DirectGrant{Patient: patient, Provider: provider, GrantedAt: now}); err != nil {
			return fmt.Errorf("store grant: %w", err)
		}
		return s.audit.Record(ctx, audit.Event{
			Operation:  audit.OpGrantAccess,
			Caller:     patient,
			Patient:    patient,
			Detail:     "provider " + string(provider),
			OccurredAt: now,
		})
	})
}

// RevokeAccess removes the grant. Revoking an absent grant is a no-op.
func (s *Service) RevokeAccess(ctx context.Context, patient, provider ledger.Principal) error {
	if err := s.checkProvider(patient, provider); err != nil {
		return err
	}
	if err := s.accounts.RequireRegistered(ctx, patient); err != nil {
		return err
	}
	return s.tx.WithinPatient(ctx, patient, func(ctx context.Context) error {
		_, err := s.repo.Get(ctx, patient, provider)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, patient, provider); err != nil {
			return fmt.Errorf("delete grant: %w", err)
		}
		return s.audit.Record(ctx, audit.Event{
			Operation:  audit.OpRevokeAccess,
			Caller:     patient,
			Patient:    patient,
			Detail:     "provider " + string(provider),
			OccurredAt: s.clock.Now(),
		})
	})
}

func (s *Service) HasAccess(ctx context.Context, patient, provider ledger.Principal) (bool, error) {
	_, err := s.repo.Get(ctx, patient, provider)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListProviders is restricted to the patient.
func (s *Service) ListProviders(ctx context.Context, caller, patient ledger.Principal) ([]*DirectGrant, error) {
	if caller != patient {
		return nil, fmt.Errorf("%w: only the patient may list grants", ledger.ErrUnauthorized)
	}
	list, err := s.repo.List(ctx, patient)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*DirectGrant{}
	}
	return list, nil
}

func (s *Service) CountProviders(ctx context.Context, patient ledger.Principal) (int, error) {
	list, err := s.repo.List(ctx, patient)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (s *Service) checkProvider(patient, provider ledger.Principal) error {
	if err := provider.Validate(); err != nil {
		return err
	}
	if provider == patient {
		return fmt.Errorf("%w: a patient cannot grant access to itself", ledger.ErrInvalidArgument)
	}
	return nil
}
