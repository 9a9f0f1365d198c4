package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/auth"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

var testStart = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type testServer struct {
	t   *testing.T
	e   *echo.Echo
	reg *Registry
	now time.Time
}

func newTestServer(t *testing.T) *testServer {
	s := &testServer{t: t, now: testStart}
	store := kv.NewMemoryStore()
	s.reg = New(KVSubstrate(store), blobstore.NewKVStore(store), Options{
		Clock:  func() time.Time { return s.now },
		Logger: zerolog.Nop(),
	})
	s.e = echo.New()
	api := s.e.Group("/api/v1", auth.DevAuthMiddleware(nil))
	s.reg.RegisterRoutes(api)
	return s
}

func (s *testServer) do(method, path string, caller ledger.Principal, body string, out interface{}) int {
	s.t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != "" {
		req.Header.Set(auth.PrincipalHeader, string(caller))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func (s *testServer) expect(want int, method, path string, caller ledger.Principal, body string, out interface{}) {
	s.t.Helper()
	if got := s.do(method, path, caller, body, out); got != want {
		s.t.Fatalf("%s %s as %s: expected %d, got %d", method, path, caller, want, got)
	}
}

func TestGrantedProviderWritesVersions(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.StatusCreated, http.MethodPost, "/patients/register", "0xP1", "", nil)

	add := `{"record_name":"xray","content_ref":"QmXray1"}`
	s.expect(http.StatusForbidden, http.MethodPost, "/patients/0xP1/records", "0xV1", add, nil)
	s.expect(http.StatusOK, http.MethodPut, "/patients/0xP1/grants/0xV1", "0xP1", "", nil)

	var added struct {
		Version int `json:"version"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/patients/0xP1/records", "0xV1", add, &added)
	if added.Version != 1 {
		t.Errorf("expected version 1, got %d", added.Version)
	}
	s.expect(http.StatusOK, http.MethodPost, "/patients/0xP1/records", "0xV1", `{"record_name":"xray","content_ref":"QmXray2"}`, &added)
	if added.Version != 2 {
		t.Errorf("expected version 2, got %d", added.Version)
	}

	var entry struct {
		ContentRef string `json:"content_ref"`
		Provider   string `json:"provider"`
		Version    int    `json:"version"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/records/xray", "0xP1", "", &entry)
	if entry.ContentRef != "QmXray2" || entry.Provider != "0xV1" || entry.Version != 2 {
		t.Errorf("unexpected entry %+v", entry)
	}

	var history struct {
		Versions []json.RawMessage `json:"versions"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/records/xray/history", "0xV1", "", &history)
	if len(history.Versions) != 2 {
		t.Errorf("expected 2 versions, got %d", len(history.Versions))
	}

	s.expect(http.StatusNoContent, http.MethodDelete, "/patients/0xP1/grants/0xV1", "0xP1", "", nil)
	s.expect(http.StatusForbidden, http.MethodPost, "/patients/0xP1/records", "0xV1", add, nil)

	var summary struct {
		RecordCount   int `json:"record_count"`
		ProviderCount int `json:"provider_count"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1", "0xP1", "", &summary)
	if summary.RecordCount != 1 || summary.ProviderCount != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}

	var trail struct {
		Total int `json:"total"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/audit", "0xP1", "", &trail)
	// register, grant, add, update, revoke
	if trail.Total != 5 {
		t.Errorf("expected 5 audit events, got %d", trail.Total)
	}
}

func TestScopedAccessLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.StatusCreated, http.MethodPost, "/patients/register", "0xP1", "", nil)

	var blob struct {
		ContentRef string `json:"content_ref"`
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blobs", strings.NewReader("lab results"))
	req.Header.Set(auth.PrincipalHeader, "0xP1")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("blob upload: expected 201, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &blob); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"A", "B"} {
		s.expect(http.StatusCreated, http.MethodPost, "/patients/0xP1/records", "0xP1",
			`{"record_name":"`+name+`","content_ref":"`+blob.ContentRef+`"}`, nil)
	}

	var created struct {
		ID string `json:"id"`
	}
	s.expect(http.StatusBadRequest, http.MethodPost, "/patients/0xP1/access-requests", "0xD1",
		`{"record_ids":["missing"],"reason":"checkup","duration_seconds":604800}`, nil)
	s.expect(http.StatusCreated, http.MethodPost, "/patients/0xP1/access-requests", "0xD1",
		`{"record_ids":["A"],"reason":"checkup","duration_seconds":604800}`, &created)

	s.expect(http.StatusForbidden, http.MethodPost, "/access-requests/"+created.ID+"/approve", "0xD1", "", nil)
	s.expect(http.StatusOK, http.MethodPost, "/access-requests/"+created.ID+"/approve", "0xP1", "", nil)
	s.expect(http.StatusConflict, http.MethodPost, "/access-requests/"+created.ID+"/approve", "0xP1", "", nil)

	var access struct {
		RecordIDs []string  `json:"authorized_record_ids"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/approved-access", "0xD1", "", &access)
	if len(access.RecordIDs) != 1 || access.RecordIDs[0] != ledger.RecordIDFromName("A").String() {
		t.Errorf("expected authorized [A], got %v", access.RecordIDs)
	}
	if want := testStart.Add(604800 * time.Second); !access.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, access.ExpiresAt)
	}

	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/records/A", "0xD1", "", nil)
	s.expect(http.StatusForbidden, http.MethodGet, "/patients/0xP1/records/B", "0xD1", "", nil)
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/records", "0xD1", "", nil)
	s.expect(http.StatusForbidden, http.MethodPost, "/patients/0xP1/records", "0xD1",
		`{"record_name":"A","content_ref":"QmOverwrite"}`, nil)

	var bundle struct {
		Type string                     `json:"type"`
		Data map[string]json.RawMessage `json:"data"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/shared-data", "0xD1", "", &bundle)
	if bundle.Type != "doctor-shared-data" || len(bundle.Data) != 1 {
		t.Errorf("unexpected bundle %+v", bundle)
	}

	s.now = testStart.Add(604799 * time.Second)
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/approved-access", "0xD1", "", nil)
	s.now = testStart.Add(604800 * time.Second)
	s.expect(http.StatusNotFound, http.MethodGet, "/patients/0xP1/approved-access", "0xD1", "", nil)
	s.expect(http.StatusForbidden, http.MethodGet, "/patients/0xP1/records/A", "0xD1", "", nil)
	s.expect(http.StatusNotFound, http.MethodGet, "/patients/0xP1/shared-data", "0xD1", "", nil)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.StatusUnauthorized, http.MethodPost, "/patients/register", "", "", nil)
	s.expect(http.StatusOK, http.MethodGet, "/patients/0xP1/registered", "0xX", "", nil)
}
