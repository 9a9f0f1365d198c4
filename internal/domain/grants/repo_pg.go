package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

type grantRepoPG struct{ pool *pgxpool.Pool }

func NewGrantRepoPG(pool *pgxpool.Pool) GrantRepository {
	return &grantRepoPG{pool: pool}
}

func (r *grantRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *grantRepoPG) Get(ctx context.Context, patient, provider ledger.Principal) (*DirectGrant, error) {
	g := &DirectGrant{Patient: patient, Provider: provider}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT granted_at FROM direct_grant WHERE patient = $1 AND provider = $2`,
		string(patient), string(provider)).Scan(&g.GrantedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no grant for %s on %s", ledger.ErrNotFound, provider, patient)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *grantRepoPG) Put(ctx context.Context, g *DirectGrant) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO direct_grant (patient, provider, granted_at) VALUES ($1, $2, $3)
		ON CONFLICT (patient, provider) DO NOTHING`,
		string(g.Patient), string(g.Provider), g.GrantedAt)
	return err
}

func (r *grantRepoPG) Delete(ctx context.Context, patient, provider ledger.Principal) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM direct_grant WHERE patient = $1 AND provider = $2`, string(patient), string(provider))
	return err
}

func (r *grantRepoPG) List(ctx context.Context, patient ledger.Principal) ([]*DirectGrant, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT provider, granted_at FROM direct_grant WHERE patient = $1 ORDER BY provider`, string(patient))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DirectGrant
	for rows.Next() {
		g := &DirectGrant{Patient: patient}
		var provider string
		if err := rows.Scan(&provider, &g.GrantedAt); err != nil {
			return nil, err
		}
		g.Provider = ledger.Principal(provider)
		out = append(out, g)
	}
	return out, rows.Err()
}
