package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Trail appends events to the store within the caller's transaction and
// publishes them after commit. Publisher failures are logged, never returned:
// the operation has already taken effect.
type Trail struct {
	store      Store
	publishers []Publisher
	logger     zerolog.Logger
}

func NewTrail(store Store, logger zerolog.Logger, publishers ...Publisher) *Trail {
	return &Trail{store: store, publishers: publishers, logger: logger}
}

func (t *Trail) Record(ctx context.Context, ev Event) error {
	if err := t.store.Append(ctx, &ev); err != nil {
		return fmt.Errorf("append audit event %s: %w", ev.Operation, err)
	}
	if len(t.publishers) == 0 {
		return nil
	}
	pubCtx := context.WithoutCancel(ctx)
	ledger.AfterCommit(ctx, func() {
		for _, p := range t.publishers {
			if err := p.Publish(pubCtx, ev); err != nil {
				t.logger.Error().Err(err).
					Str("event_id", ev.ID).
					Str("operation", string(ev.Operation)).
					Msg("failed to publish audit event")
			}
		}
	})
	return nil
}

func (t *Trail) ListByPatient(ctx context.Context, patient ledger.Principal, limit, offset int) ([]*Event, int, error) {
	return t.store.ListByPatient(ctx, patient, limit, offset)
}
