package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// AccountStats supplies the counts shown in an account summary.
type AccountStats interface {
	CountRecords(ctx context.Context, patient ledger.Principal) (int, error)
	CountProviders(ctx context.Context, patient ledger.Principal) (int, error)
}

type Service struct {
	repo  AccountRepository
	tx    ledger.Transactor
	audit audit.Recorder
	clock ledger.Clock
	stats AccountStats
}

func NewService(repo AccountRepository, tx ledger.Transactor, rec audit.Recorder, clock ledger.Clock) *Service {
	return &Service{repo: repo, tx: tx, audit: rec, clock: clock}
}

func (s *Service) SetStats(stats AccountStats) { s.stats = stats }

// RegisterPatient creates the account if absent. Registering again returns the
// existing account and records nothing.
func (s *Service) RegisterPatient(ctx context.Context, principal ledger.Principal) (*PatientAccount, error) {
	if err := principal.Validate(); err != nil {
		return nil, err
	}

	var account *PatientAccount
	err := s.tx.WithinPatient(ctx, principal, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, principal)
		if err == nil {
			account = existing
			return nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		now := s.clock.Now()
		account = &PatientAccount{Principal: principal, RegisteredAt: now}
		if err := s.repo.Create(ctx, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		return s.audit.Record(ctx, audit.Event{
			Operation:  audit.OpRegisterPatient,
			Caller:     principal,
			Patient:    principal,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) IsRegistered(ctx context.Context, principal ledger.Principal) (bool, error) {
	if principal.Validate() != nil {
		return false, nil
	}
	_, err := s.repo.Get(ctx, principal)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RequireRegistered returns a NotFound error unless patient has an account.
func (s *Service) RequireRegistered(ctx context.Context, patient ledger.Principal) error {
	ok, err := s.IsRegistered(ctx, patient)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: patient %s is not registered", ledger.ErrNotFound, patient)
	}
	return nil
}

// GetAccount is restricted to the patient.
func (s *Service) GetAccount(ctx context.Context, caller, patient ledger.Principal) (*AccountSummary, error) {
	if caller != patient {
		return nil, fmt.Errorf("%w: only the patient may read the account", ledger.ErrUnauthorized)
	}
	account, err := s.repo.Get(ctx, patient)
	if err != nil {
		return nil, err
	}
	summary := &AccountSummary{PatientAccount: *account}
	if s.stats != nil {
		if summary.RecordCount, err = s.stats.CountRecords(ctx, patient); err != nil {
			return nil, err
		}
		if summary.ProviderCount, err = s.stats.CountProviders(ctx, patient); err != nil {
			return nil, err
		}
	}
	return summary, nil
}
