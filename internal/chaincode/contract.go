// Package chaincode exposes the registry as a Fabric smart contract. Every
// transaction builds the services over the stub's world state, so all
// registry invariants hold on-chain exactly as they do behind the HTTP API.
package chaincode

import (
	"context"
	"encoding/json"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/accessrequest"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/fabric"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/registry"
)

// RegistryContract is the on-chain registry. Results carrying timestamps are
// returned as JSON strings.
type RegistryContract struct {
	contractapi.Contract
}

func New() *RegistryContract {
	c := &RegistryContract{}
	c.Name = "medichain"
	return c
}

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "chaincode").Logger()

// session is the registry bound to one transaction.
type session struct {
	reg    *registry.Registry
	caller ledger.Principal
}

func open(ctx contractapi.TransactionContextInterface) (*session, error) {
	caller, err := fabric.Caller(ctx.GetClientIdentity())
	if err != nil {
		return nil, err
	}
	stub := ctx.GetStub()
	store := fabric.NewStubStore(stub)
	reg := registry.New(registry.KVSubstrate(store), blobstore.NewKVStore(store), registry.Options{
		Clock:        fabric.TxClock(stub),
		NewRequestID: accessrequest.IDGenerator(fabric.TxIDGenerator(stub)),
		Publishers:   []audit.Publisher{fabric.NewEventPublisher(stub)},
		Logger:       logger.With().Str("tx_id", stub.GetTxID()).Logger(),
	})
	return &session{reg: reg, caller: caller}, nil
}

func toJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	return string(data), err
}

func resolveAll(raw []string) ([]ledger.RecordID, error) {
	ids := make([]ledger.RecordID, 0, len(raw))
	for _, s := range raw {
		id, err := ledger.ResolveRecordID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RegisterPatient registers the submitting identity.
func (rc *RegistryContract) RegisterPatient(ctx contractapi.TransactionContextInterface) (string, error) {
	s, err := open(ctx)
	if err != nil {
		return "", err
	}
	account, err := s.reg.Identity.RegisterPatient(context.Background(), s.caller)
	if err != nil {
		return "", err
	}
	return toJSON(account)
}

func (rc *RegistryContract) IsRegistered(ctx contractapi.TransactionContextInterface, patient string) (bool, error) {
	s, err := open(ctx)
	if err != nil {
		return false, err
	}
	return s.reg.Identity.IsRegistered(context.Background(), ledger.Principal(patient))
}

// AddRecord creates or bumps a record. record is a hex id or a record name.
func (rc *RegistryContract) AddRecord(ctx contractapi.TransactionContextInterface, patient, record, contentRef string) (int, error) {
	s, err := open(ctx)
	if err != nil {
		return 0, err
	}
	id, err := ledger.ResolveRecordID(record)
	if err != nil {
		return 0, err
	}
	return s.reg.Records.AddRecord(context.Background(), s.caller, ledger.Principal(patient), id, ledger.ContentRef(contentRef))
}

func (rc *RegistryContract) GetRecord(ctx contractapi.TransactionContextInterface, patient, record string) (string, error) {
	s, err := open(ctx)
	if err != nil {
		return "", err
	}
	id, err := ledger.ResolveRecordID(record)
	if err != nil {
		return "", err
	}
	entry, err := s.reg.Records.GetRecord(context.Background(), s.caller, ledger.Principal(patient), id)
	if err != nil {
		return "", err
	}
	return toJSON(entry)
}

func (rc *RegistryContract) GetRecordIDs(ctx contractapi.TransactionContextInterface, patient string) ([]string, error) {
	s, err := open(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.reg.Records.GetRecordIDs(context.Background(), s.caller, ledger.Principal(patient))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out, nil
}

// GrantAccess grants provider access to the submitter's records.
func (rc *RegistryContract) GrantAccess(ctx contractapi.TransactionContextInterface, provider string) error {
	s, err := open(ctx)
	if err != nil {
		return err
	}
	return s.reg.Grants.GrantAccess(context.Background(), s.caller, ledger.Principal(provider))
}

func (rc *RegistryContract) RevokeAccess(ctx contractapi.TransactionContextInterface, provider string) error {
	s, err := open(ctx)
	if err != nil {
		return err
	}
	return s.reg.Grants.RevokeAccess(context.Background(), s.caller, ledger.Principal(provider))
}

func (rc *RegistryContract) HasAccess(ctx contractapi.TransactionContextInterface, patient, provider string) (bool, error) {
	s, err := open(ctx)
	if err != nil {
		return false, err
	}
	return s.reg.Grants.HasAccess(context.Background(), ledger.Principal(patient), ledger.Principal(provider))
}

// RequestAccess files a request as the submitting doctor. The request id is
// the transaction id.
func (rc *RegistryContract) RequestAccess(ctx contractapi.TransactionContextInterface, patient string, records []string, reason string, durationSeconds int64) (string, error) {
	s, err := open(ctx)
	if err != nil {
		return "", err
	}
	ids, err := resolveAll(records)
	if err != nil {
		return "", err
	}
	return s.reg.Access.RequestAccess(context.Background(), s.caller, ledger.Principal(patient), ids, reason, durationSeconds)
}

// ApproveAccess approves as the submitting patient. An empty records list
// keeps the requested set; durationSeconds of 0 keeps the requested duration.
func (rc *RegistryContract) ApproveAccess(ctx contractapi.TransactionContextInterface, requestID string, records []string, durationSeconds int64) (string, error) {
	s, err := open(ctx)
	if err != nil {
		return "", err
	}
	var opts accessrequest.ApproveOptions
	if len(records) > 0 {
		if opts.RecordIDs, err = resolveAll(records); err != nil {
			return "", err
		}
	}
	if durationSeconds != 0 {
		opts.DurationSeconds = &durationSeconds
	}
	access, err := s.reg.Access.ApproveAccess(context.Background(), s.caller, requestID, opts)
	if err != nil {
		return "", err
	}
	return toJSON(access)
}

// GetApprovedAccess returns the submitting doctor's live access on patient.
func (rc *RegistryContract) GetApprovedAccess(ctx contractapi.TransactionContextInterface, patient string) (string, error) {
	s, err := open(ctx)
	if err != nil {
		return "", err
	}
	access, err := s.reg.Access.GetApprovedAccess(context.Background(), s.caller, ledger.Principal(patient))
	if err != nil {
		return "", err
	}
	return toJSON(access)
}

// GetEvaluateTransactions marks the read-only functions for query evaluation.
func (rc *RegistryContract) GetEvaluateTransactions() []string {
	return []string{"IsRegistered", "GetRecord", "GetRecordIDs", "HasAccess", "GetApprovedAccess"}
}
