package chaincode

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/accessrequest"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/fabric"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

var testStart = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type identity struct{ principal string }

func (i identity) GetID() (string, error)    { return "x509::" + i.principal, nil }
func (i identity) GetMSPID() (string, error) { return "Org1MSP", nil }
func (i identity) GetAttributeValue(name string) (string, bool, error) {
	if name == fabric.PrincipalAttribute {
		return i.principal, true, nil
	}
	return "", false, nil
}
func (i identity) AssertAttributeValue(string, string) error      { return nil }
func (i identity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

type txContext struct {
	stub *shimtest.MockStub
	id   identity
}

func (c *txContext) GetStub() shim.ChaincodeStubInterface  { return c.stub }
func (c *txContext) GetClientIdentity() cid.ClientIdentity { return c.id }

type ledgerHarness struct {
	t    *testing.T
	stub *shimtest.MockStub
	cc   *RegistryContract
	n    int
	now  time.Time
}

func newHarness(t *testing.T) *ledgerHarness {
	return &ledgerHarness{t: t, stub: shimtest.NewMockStub("medichain", nil), cc: New(), now: testStart}
}

// as runs fn as one transaction submitted by principal.
func (h *ledgerHarness) as(principal string, fn func(ctx *txContext) error) error {
	h.n++
	txID := "tx" + string(rune('a'+h.n))
	h.stub.MockTransactionStart(txID)
	h.stub.TxTimestamp = timestamppb.New(h.now)
	defer h.stub.MockTransactionEnd(txID)
	return fn(&txContext{stub: h.stub, id: identity{principal: principal}})
}

func (h *ledgerHarness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatal(err)
	}
}

func TestContract_GrantAndVersions(t *testing.T) {
	h := newHarness(t)

	h.must(h.as("0xP1", func(ctx *txContext) error {
		_, err := h.cc.RegisterPatient(ctx)
		return err
	}))
	err := h.as("0xV1", func(ctx *txContext) error {
		_, err := h.cc.AddRecord(ctx, "0xP1", "xray", "QmXray1")
		return err
	})
	if !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized before grant, got %v", err)
	}
	h.must(h.as("0xP1", func(ctx *txContext) error { return h.cc.GrantAccess(ctx, "0xV1") }))

	for want, ref := range []string{"QmXray1", "QmXray2"} {
		h.must(h.as("0xV1", func(ctx *txContext) error {
			v, err := h.cc.AddRecord(ctx, "0xP1", "xray", ref)
			if err == nil && v != want+1 {
				t.Errorf("expected version %d, got %d", want+1, v)
			}
			return err
		}))
	}

	h.must(h.as("0xV1", func(ctx *txContext) error {
		ids, err := h.cc.GetRecordIDs(ctx, "0xP1")
		if err == nil && (len(ids) != 1 || ids[0] != ledger.RecordIDFromName("xray").String()) {
			t.Errorf("unexpected ids %v", ids)
		}
		return err
	}))
	h.must(h.as("0xX", func(ctx *txContext) error {
		ok, err := h.cc.HasAccess(ctx, "0xP1", "0xV1")
		if err == nil && !ok {
			t.Error("expected access")
		}
		return err
	}))
	h.must(h.as("0xP1", func(ctx *txContext) error { return h.cc.RevokeAccess(ctx, "0xV1") }))
	h.must(h.as("0xX", func(ctx *txContext) error {
		ok, err := h.cc.HasAccess(ctx, "0xP1", "0xV1")
		if err == nil && ok {
			t.Error("expected access revoked")
		}
		return err
	}))
}

func TestContract_ScopedAccess(t *testing.T) {
	h := newHarness(t)
	h.must(h.as("0xP1", func(ctx *txContext) error {
		if _, err := h.cc.RegisterPatient(ctx); err != nil {
			return err
		}
		_, err := h.cc.AddRecord(ctx, "0xP1", "A", "QmA")
		return err
	}))
	// drain the events of the setup transactions
	for len(h.stub.ChaincodeEventsChannel) > 0 {
		<-h.stub.ChaincodeEventsChannel
	}

	var requestID string
	h.must(h.as("0xD1", func(ctx *txContext) error {
		id, err := h.cc.RequestAccess(ctx, "0xP1", []string{"A"}, "checkup", 604800)
		requestID = id
		if err == nil && id != ctx.stub.GetTxID() {
			t.Errorf("expected the tx id as request id, got %q", id)
		}
		return err
	}))

	h.must(h.as("0xP1", func(ctx *txContext) error {
		_, err := h.cc.ApproveAccess(ctx, requestID, nil, 0)
		return err
	}))
	err := h.as("0xP1", func(ctx *txContext) error {
		_, err := h.cc.ApproveAccess(ctx, requestID, nil, 0)
		return err
	})
	if !errors.Is(err, ledger.ErrAlreadyApproved) {
		t.Fatalf("expected AlreadyApproved, got %v", err)
	}

	h.must(h.as("0xD1", func(ctx *txContext) error {
		raw, err := h.cc.GetApprovedAccess(ctx, "0xP1")
		if err != nil {
			return err
		}
		var access accessrequest.ApprovedAccess
		if err := json.Unmarshal([]byte(raw), &access); err != nil {
			return err
		}
		if len(access.RecordIDs) != 1 || access.RecordIDs[0] != ledger.RecordIDFromName("A") {
			t.Errorf("expected authorized [A], got %v", access.RecordIDs)
		}
		if want := testStart.Add(604800 * time.Second); !access.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %s, got %s", want, access.ExpiresAt)
		}
		return nil
	}))

	events := 0
	for len(h.stub.ChaincodeEventsChannel) > 0 {
		ev := <-h.stub.ChaincodeEventsChannel
		if ev.EventName != fabric.AuditEventName {
			t.Errorf("unexpected event %q", ev.EventName)
		}
		events++
	}
	if events != 2 {
		t.Errorf("expected request and approval events, got %d", events)
	}

	h.now = testStart.Add(604800 * time.Second)
	err = h.as("0xD1", func(ctx *txContext) error {
		_, err := h.cc.GetApprovedAccess(ctx, "0xP1")
		return err
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected NotFound after expiry, got %v", err)
	}
}

func TestContract_RejectsOverflowingDuration(t *testing.T) {
	h := newHarness(t)
	h.must(h.as("0xP1", func(ctx *txContext) error {
		if _, err := h.cc.RegisterPatient(ctx); err != nil {
			return err
		}
		_, err := h.cc.AddRecord(ctx, "0xP1", "A", "QmA")
		return err
	}))

	err := h.as("0xD1", func(ctx *txContext) error {
		_, err := h.cc.RequestAccess(ctx, "0xP1", []string{"A"}, "long", 10_000_000_000)
		return err
	})
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	var requestID string
	h.must(h.as("0xD1", func(ctx *txContext) error {
		id, err := h.cc.RequestAccess(ctx, "0xP1", []string{"A"}, "", 3600)
		requestID = id
		return err
	}))
	err = h.as("0xP1", func(ctx *txContext) error {
		_, err := h.cc.ApproveAccess(ctx, requestID, nil, 10_000_000_000)
		return err
	})
	if !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Errorf("expected InvalidArgument for an overflowing shortening, got %v", err)
	}
}

func TestContract_EvaluateTransactions(t *testing.T) {
	got := New().GetEvaluateTransactions()
	if len(got) != 5 {
		t.Errorf("unexpected evaluate list %v", got)
	}
}
