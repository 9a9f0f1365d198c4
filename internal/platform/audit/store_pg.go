package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type pgStore struct{ pool *pgxpool.Pool }

func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

// Append relies on the caller holding the patient's advisory lock, which makes
// MAX(seq)+1 safe.
func (s *pgStore) Append(ctx context.Context, ev *Event) error {
	ev.ID = uuid.New().String()
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO audit_event (patient, seq, id, operation, caller, record_id, detail, occurred_at)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7
		FROM audit_event WHERE patient = $1
		RETURNING seq`,
		string(ev.Patient), ev.ID, string(ev.Operation), string(ev.Caller), ev.RecordID, ev.Detail, ev.OccurredAt,
	).Scan(&ev.Seq)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *pgStore) ListByPatient(ctx context.Context, patient ledger.Principal, limit, offset int) ([]*Event, int, error) {
	conn := db.Conn(ctx, s.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM audit_event WHERE patient = $1`, string(patient)).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = total
	}
	rows, err := conn.Query(ctx, `
		SELECT id, seq, operation, caller, patient, record_id, detail, occurred_at
		FROM audit_event WHERE patient = $1 ORDER BY seq LIMIT $2 OFFSET $3`,
		string(patient), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		var ev Event
		var op, caller, p string
		if err := rows.Scan(&ev.ID, &ev.Seq, &op, &caller, &p, &ev.RecordID, &ev.Detail, &ev.OccurredAt); err != nil {
			return nil, 0, err
		}
		ev.Operation = Operation(op)
		ev.Caller = ledger.Principal(caller)
		ev.Patient = ledger.Principal(p)
		items = append(items, &ev)
	}
	return items, total, rows.Err()
}
