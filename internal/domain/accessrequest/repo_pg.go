package accessrequest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func idStrings(ids []ledger.RecordID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseIDs(raw []string) ([]ledger.RecordID, error) {
	out := make([]ledger.RecordID, len(raw))
	for i, s := range raw {
		id, err := ledger.ParseRecordID(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

const requestColumns = `id, doctor, patient, record_ids, reason, duration_seconds, created_at, approved, approved_at`

func (r *repoPG) scanRequest(row pgx.Row) (*AccessRequest, error) {
	var req AccessRequest
	var doctor, patient string
	var ids []string
	err := row.Scan(&req.ID, &doctor, &patient, &ids, &req.Reason, &req.DurationSeconds,
		&req.CreatedAt, &req.Approved, &req.ApprovedAt)
	if err != nil {
		return nil, err
	}
	req.Doctor = ledger.Principal(doctor)
	req.Patient = ledger.Principal(patient)
	if req.RecordIDs, err = parseIDs(ids); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repoPG) CreateRequest(ctx context.Context, req *AccessRequest) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO access_request (id, doctor, patient, record_ids, reason, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, string(req.Doctor), string(req.Patient), idStrings(req.RecordIDs), req.Reason,
		req.DurationSeconds, req.CreatedAt)
	return err
}

func (r *repoPG) GetRequest(ctx context.Context, id string) (*AccessRequest, error) {
	req, err := r.scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestColumns+` FROM access_request WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: access request %s", ledger.ErrNotFound, id)
	}
	return req, err
}

func (r *repoPG) MarkApproved(ctx context.Context, req *AccessRequest, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE access_request SET approved = TRUE, approved_at = $2 WHERE id = $1`, req.ID, at)
	return err
}

func (r *repoPG) ListRequests(ctx context.Context, patient ledger.Principal) ([]*AccessRequest, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+requestColumns+` FROM access_request WHERE patient = $1 ORDER BY created_at, id`, string(patient))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AccessRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *repoPG) PutApproved(ctx context.Context, a *ApprovedAccess) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO approved_access (doctor, patient, request_id, record_ids, expires_at, shared_data_ref, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doctor, patient) DO UPDATE SET
			request_id = EXCLUDED.request_id,
			record_ids = EXCLUDED.record_ids,
			expires_at = EXCLUDED.expires_at,
			shared_data_ref = EXCLUDED.shared_data_ref,
			granted_at = EXCLUDED.granted_at`,
		string(a.Doctor), string(a.Patient), a.RequestID, idStrings(a.RecordIDs), a.ExpiresAt,
		string(a.SharedDataRef), a.GrantedAt)
	return err
}

func (r *repoPG) GetApproved(ctx context.Context, doctor, patient ledger.Principal) (*ApprovedAccess, error) {
	a := &ApprovedAccess{Doctor: doctor, Patient: patient}
	var ids []string
	var ref string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT request_id, record_ids, expires_at, shared_data_ref, granted_at
		FROM approved_access WHERE doctor = $1 AND patient = $2`,
		string(doctor), string(patient)).Scan(&a.RequestID, &ids, &a.ExpiresAt, &ref, &a.GrantedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNoAccess(doctor, patient)
	}
	if err != nil {
		return nil, err
	}
	a.SharedDataRef = ledger.ContentRef(ref)
	if a.RecordIDs, err = parseIDs(ids); err != nil {
		return nil, err
	}
	return a, nil
}
