package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// AuditEventName is the chaincode event carrying a registry audit event.
const AuditEventName = "medichain.audit"

// PrincipalAttribute lets an enrolled identity carry its registry principal
// as a certificate attribute instead of using the raw client id.
const PrincipalAttribute = "medichain.principal"

// TxClock reads the transaction timestamp, which every endorser agrees on.
func TxClock(stub shim.ChaincodeStubInterface) ledger.Clock {
	return func() time.Time {
		ts, err := stub.GetTxTimestamp()
		if err != nil || ts == nil {
			// Only possible outside a proposal; keep endorsers deterministic.
			return time.Unix(0, 0).UTC()
		}
		return ts.AsTime()
	}
}

// TxIDGenerator names access requests after the transaction that filed them.
func TxIDGenerator(stub shim.ChaincodeStubInterface) func(context.Context) string {
	return func(context.Context) string {
		return stub.GetTxID()
	}
}

// Caller resolves the registry principal of the submitting identity.
func Caller(id cid.ClientIdentity) (ledger.Principal, error) {
	if value, found, err := id.GetAttributeValue(PrincipalAttribute); err == nil && found && value != "" {
		p := ledger.Principal(value)
		return p, p.Validate()
	}
	raw, err := id.GetID()
	if err != nil {
		return "", fmt.Errorf("read client identity: %w", err)
	}
	p := ledger.Principal(raw)
	return p, p.Validate()
}

// EventPublisher sets the audit event as the transaction's chaincode event.
// Fabric keeps one event per transaction; registry operations emit at most one.
type EventPublisher struct {
	stub shim.ChaincodeStubInterface
}

func NewEventPublisher(stub shim.ChaincodeStubInterface) *EventPublisher {
	return &EventPublisher{stub: stub}
}

func (p *EventPublisher) Publish(_ context.Context, ev audit.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.stub.SetEvent(AuditEventName, payload)
}
