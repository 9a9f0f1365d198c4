package records

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *recordRepoPG) Get(ctx context.Context, patient ledger.Principal, id ledger.RecordID) (*RecordEntry, error) {
	var e RecordEntry
	var ref, provider string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT content_ref, provider, version, updated_at
		FROM record_entry WHERE patient = $1 AND record_id = $2`,
		string(patient), id.String()).Scan(&ref, &provider, &e.Version, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(patient, id)
	}
	if err != nil {
		return nil, err
	}
	e.Patient = patient
	e.RecordID = id
	e.ContentRef = ledger.ContentRef(ref)
	e.Provider = ledger.Principal(provider)
	return &e, nil
}

func (r *recordRepoPG) Create(ctx context.Context, e *RecordEntry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO record_entry (patient, record_id, content_ref, provider, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.Patient), e.RecordID.String(), string(e.ContentRef), string(e.Provider), e.Version, e.UpdatedAt)
	return err
}

func (r *recordRepoPG) Update(ctx context.Context, e *RecordEntry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE record_entry SET content_ref = $3, provider = $4, version = $5, updated_at = $6
		WHERE patient = $1 AND record_id = $2`,
		string(e.Patient), e.RecordID.String(), string(e.ContentRef), string(e.Provider), e.Version, e.UpdatedAt)
	return err
}

func (r *recordRepoPG) AppendVersion(ctx context.Context, patient ledger.Principal, v *RecordVersion) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO record_version (patient, record_id, version, content_ref, provider, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(patient), v.RecordID.String(), v.Version, string(v.ContentRef), string(v.Provider), v.RecordedAt)
	return err
}

func (r *recordRepoPG) ListIDs(ctx context.Context, patient ledger.Principal) ([]ledger.RecordID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT record_id FROM record_entry WHERE patient = $1 ORDER BY position`, string(patient))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []ledger.RecordID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := ledger.ParseRecordID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *recordRepoPG) ListVersions(ctx context.Context, patient ledger.Principal, id ledger.RecordID) ([]*RecordVersion, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT version, content_ref, provider, recorded_at
		FROM record_version WHERE patient = $1 AND record_id = $2 ORDER BY version`,
		string(patient), id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*RecordVersion
	for rows.Next() {
		v := &RecordVersion{RecordID: id}
		var ref, provider string
		if err := rows.Scan(&v.Version, &ref, &provider, &v.RecordedAt); err != nil {
			return nil, err
		}
		v.ContentRef = ledger.ContentRef(ref)
		v.Provider = ledger.Principal(provider)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
