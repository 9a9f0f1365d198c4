package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type accountRepoPG struct{ pool *pgxpool.Pool }

func NewAccountRepoPG(pool *pgxpool.Pool) AccountRepository {
	return &accountRepoPG{pool: pool}
}

func (r *accountRepoPG) Create(ctx context.Context, a *PatientAccount) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO patient_account (principal, registered_at) VALUES ($1, $2)`,
		string(a.Principal), a.RegisteredAt)
	return err
}

func (r *accountRepoPG) Get(ctx context.Context, principal ledger.Principal) (*PatientAccount, error) {
	var a PatientAccount
	var p string
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT principal, registered_at FROM patient_account WHERE principal = $1`,
		string(principal)).Scan(&p, &a.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: patient %s is not registered", ledger.ErrNotFound, principal)
	}
	if err != nil {
		return nil, err
	}
	a.Principal = ledger.Principal(p)
	return &a, nil
}
