// Package audit keeps the append-only trail of state-changing registry
// operations. Events are appended inside the operation's transaction and
// fanned out to publishers only once it commits.
package audit

import (
	"context"
	"time"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type Operation string

const (
	OpRegisterPatient Operation = "register_patient"
	OpAddRecord       Operation = "add_record"
	OpUpdateRecord    Operation = "update_record"
	OpGrantAccess     Operation = "grant_access"
	OpRevokeAccess    Operation = "revoke_access"
	OpRequestAccess   Operation = "request_access"
	OpApproveAccess   Operation = "approve_access"
)

// Event is one audit entry. Seq is assigned per patient starting at 1.
type Event struct {
	ID         string           `json:"id"`
	Seq        int64            `json:"seq"`
	Operation  Operation        `json:"operation"`
	Caller     ledger.Principal `json:"caller"`
	Patient    ledger.Principal `json:"patient"`
	RecordID   string           `json:"record_id,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Store appends and lists events. Append must join the transaction carried by
// ctx, if any.
type Store interface {
	Append(ctx context.Context, ev *Event) error
	ListByPatient(ctx context.Context, patient ledger.Principal, limit, offset int) ([]*Event, int, error)
}

// Publisher receives committed events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Recorder is what domain services depend on; *Trail implements it.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
