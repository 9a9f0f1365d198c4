// Package client is a small HTTP client for the registry API, used by the
// medichain CLI and operational scripts.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/accessrequest"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/records"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/sharing"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Options configures a Client. Exactly one of Principal and Token is normally
// set: Principal for development servers, Token for JWT-protected ones.
type Options struct {
	BaseURL   string
	Principal ledger.Principal
	Token     string
	Timeout   time.Duration
	Retries   int
}

type Client struct {
	http *resty.Client
}

// APIError is a non-2xx response. It unwraps to the matching ledger sentinel
// so callers can use errors.Is across the wire.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("medichain api: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusForbidden:
		return ledger.ErrUnauthorized
	case http.StatusNotFound:
		return ledger.ErrNotFound
	case http.StatusBadRequest:
		return ledger.ErrInvalidArgument
	case http.StatusConflict:
		return ledger.ErrAlreadyApproved
	case http.StatusUnprocessableEntity:
		return ledger.ErrCorruptBundle
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(opts.BaseURL+"/api/v1").
		SetTimeout(timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json").
		SetError(&errorBody{})
	if opts.Principal != "" {
		c.SetHeader("X-Principal", string(opts.Principal))
	}
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}
	return &Client{http: c}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	msg := resp.Status()
	if eb, ok := resp.Error().(*errorBody); ok {
		switch {
		case eb.Message != "":
			msg = eb.Message
		case eb.Error != "":
			msg = eb.Error
		}
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

func patientPath(patient ledger.Principal, rest ...string) string {
	p := "/patients/" + url.PathEscape(string(patient))
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// RegisterPatient registers the calling principal.
func (c *Client) RegisterPatient(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/patients/register", nil, nil)
}

func (c *Client) IsRegistered(ctx context.Context, patient ledger.Principal) (bool, error) {
	var out struct {
		Registered bool `json:"registered"`
	}
	if err := c.do(ctx, http.MethodGet, patientPath(patient, "registered"), nil, &out); err != nil {
		return false, err
	}
	return out.Registered, nil
}

// AddRecord adds or updates a record. record is a 0x-prefixed record id or a
// human-readable name the server fingerprints; ledger.NamePrefix forces a name.
func (c *Client) AddRecord(ctx context.Context, patient ledger.Principal, record string, ref ledger.ContentRef) (int, error) {
	body := map[string]string{"content_ref": string(ref)}
	if name, ok := strings.CutPrefix(record, ledger.NamePrefix); ok {
		body["record_name"] = name
	} else if _, err := ledger.ParseRecordID(record); err == nil {
		body["record_id"] = record
	} else {
		body["record_name"] = record
	}
	var out struct {
		Version int `json:"version"`
	}
	if err := c.do(ctx, http.MethodPost, patientPath(patient, "records"), body, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

func (c *Client) GetRecord(ctx context.Context, patient ledger.Principal, record string) (*records.RecordEntry, error) {
	var out records.RecordEntry
	if err := c.do(ctx, http.MethodGet, patientPath(patient, "records", record), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRecordHistory(ctx context.Context, patient ledger.Principal, record string) ([]records.RecordVersion, error) {
	var out struct {
		Versions []records.RecordVersion `json:"versions"`
	}
	if err := c.do(ctx, http.MethodGet, patientPath(patient, "records", record, "history"), nil, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

func (c *Client) GetRecordIDs(ctx context.Context, patient ledger.Principal) ([]ledger.RecordID, error) {
	var out struct {
		RecordIDs []ledger.RecordID `json:"record_ids"`
	}
	if err := c.do(ctx, http.MethodGet, patientPath(patient, "records"), nil, &out); err != nil {
		return nil, err
	}
	return out.RecordIDs, nil
}

func (c *Client) GrantAccess(ctx context.Context, patient, provider ledger.Principal) error {
	return c.do(ctx, http.MethodPut, patientPath(patient, "grants", string(provider)), nil, nil)
}

func (c *Client) RevokeAccess(ctx context.Context, patient, provider ledger.Principal) error {
	return c.do(ctx, http.MethodDelete, patientPath(patient, "grants", string(provider)), nil, nil)
}

func (c *Client) HasAccess(ctx context.Context, patient, provider ledger.Principal) (bool, error) {
	var out struct {
		Access bool `json:"access"`
	}
	if err := c.do(ctx, http.MethodGet, patientPath(patient, "grants", string(provider)), nil, &out); err != nil {
		return false, err
	}
	return out.Access, nil
}

// RequestAccess files a scoped access request and returns its id.
func (c *Client) RequestAccess(ctx context.Context, patient ledger.Principal, recordIDs []string, reason string, duration time.Duration) (string, error) {
	body := map[string]interface{}{
		"record_ids":       recordIDs,
		"reason":           reason,
		"duration_seconds": int64(duration / time.Second),
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, patientPath(patient, "access-requests"), body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) GetRequest(ctx context.Context, id string) (*accessrequest.AccessRequest, error) {
	var out accessrequest.AccessRequest
	if err := c.do(ctx, http.MethodGet, "/access-requests/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveAccess approves request id. A nil recordIDs keeps the requested
// scope and a zero duration keeps the requested duration.
func (c *Client) ApproveAccess(ctx context.Context, id string, recordIDs []string, duration time.Duration) (*accessrequest.ApprovedAccess, error) {
	body := map[string]interface{}{}
	if recordIDs != nil {
		body["record_ids"] = recordIDs
	}
	if duration > 0 {
		body["duration_seconds"] = int64(duration / time.Second)
	}
	var out accessrequest.ApprovedAccess
	if err := c.do(ctx, http.MethodPost, "/access-requests/"+url.PathEscape(id)+"/approve", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetApprovedAccess returns the caller's live approval for patient. A patient
// caller inspects a doctor's approval by passing doctor.
func (c *Client) GetApprovedAccess(ctx context.Context, patient, doctor ledger.Principal) (*accessrequest.ApprovedAccess, error) {
	path := patientPath(patient, "approved-access")
	if doctor != "" {
		path += "?doctor=" + url.QueryEscape(string(doctor))
	}
	var out accessrequest.ApprovedAccess
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OpenSharedData(ctx context.Context, patient ledger.Principal) (*sharing.Bundle, error) {
	var out sharing.Bundle
	if err := c.do(ctx, http.MethodGet, patientPath(patient, "shared-data"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadBlob stores data and returns its content reference.
func (c *Client) UploadBlob(ctx context.Context, data []byte) (ledger.ContentRef, error) {
	var out struct {
		ContentRef ledger.ContentRef `json:"content_ref"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		SetResult(&out).
		Post("/blobs")
	if err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return "", err
	}
	return out.ContentRef, nil
}

func (c *Client) DownloadBlob(ctx context.Context, ref ledger.ContentRef) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/octet-stream").
		Get("/blobs/" + url.PathEscape(string(ref)))
	if err != nil {
		return nil, fmt.Errorf("download blob: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// AuditEvents lists a patient's audit events, newest last.
func (c *Client) AuditEvents(ctx context.Context, patient ledger.Principal, limit, offset int) ([]audit.Event, error) {
	path := patientPath(patient, "audit") + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var out struct {
		Data []audit.Event `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// IsNotFound reports whether err is a 404 from the registry.
func IsNotFound(err error) bool {
	return errors.Is(err, ledger.ErrNotFound)
}
