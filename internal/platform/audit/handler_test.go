package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/auth"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

func TestHandler_ListByPatient(t *testing.T) {
	trail := NewTrail(NewKVStore(kv.NewMemoryStore()), zerolog.Nop())
	for i := 0; i < 3; i++ {
		if err := trail.Record(context.Background(), Event{Operation: OpGrantAccess, Caller: "0xP1", Patient: "0xP1", OccurredAt: testTime}); err != nil {
			t.Fatal(err)
		}
	}
	h := NewHandler(trail)
	e := echo.New()

	call := func(caller ledger.Principal, target string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), caller))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("patient")
		c.SetParamValues("0xP1")
		return rec, h.ListByPatient(c)
	}

	rec, err := call("0xP1", "/?limit=2")
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	var page struct {
		Data  []Event `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Data) != 2 || page.Data[0].Seq != 1 {
		t.Errorf("unexpected page %+v", page)
	}

	var he *echo.HTTPError
	if _, err := call("0xV1", "/"); !errors.As(err, &he) || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another caller, got %v", err)
	}
}
