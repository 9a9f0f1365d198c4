// Package registry assembles the domain services over one storage substrate
// and exposes them as a single HTTP surface.
package registry

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/accessrequest"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/grants"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/identity"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/records"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/domain/sharing"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/audit"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/blobstore"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/db"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/kv"
	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Substrate is one consistent set of repositories plus the transactor that
// makes them atomic together.
type Substrate struct {
	Tx       ledger.Transactor
	Accounts identity.AccountRepository
	Records  records.RecordRepository
	Grants   grants.GrantRepository
	Requests accessrequest.Repository
	Audit    audit.Store
}

// KVSubstrate backs every repository with the same ordered key/value store.
func KVSubstrate(store kv.Store) Substrate {
	return Substrate{
		Tx:       kv.NewTransactor(store),
		Accounts: identity.NewAccountRepoKV(store),
		Records:  records.NewRecordRepoKV(store),
		Grants:   grants.NewGrantRepoKV(store),
		Requests: accessrequest.NewRepoKV(store),
		Audit:    audit.NewKVStore(store),
	}
}

func PGSubstrate(pool *pgxpool.Pool) Substrate {
	return Substrate{
		Tx:       db.NewTransactor(pool),
		Accounts: identity.NewAccountRepoPG(pool),
		Records:  records.NewRecordRepoPG(pool),
		Grants:   grants.NewGrantRepoPG(pool),
		Requests: accessrequest.NewRepoPG(pool),
		Audit:    audit.NewPGStore(pool),
	}
}

type Options struct {
	// Clock defaults to the system clock.
	Clock ledger.Clock
	// NewRequestID defaults to random UUIDs.
	NewRequestID     accessrequest.IDGenerator
	MaxShareDuration time.Duration
	Publishers       []audit.Publisher
	Logger           zerolog.Logger
}

type Registry struct {
	Trail    *audit.Trail
	Identity *identity.Service
	Records  *records.Service
	Grants   *grants.Service
	Access   *accessrequest.Service
	Packager *sharing.Packager
	Blobs    blobstore.Store
}

func New(sub Substrate, blobs blobstore.Store, opts Options) *Registry {
	clock := opts.Clock
	trail := audit.NewTrail(sub.Audit, opts.Logger, opts.Publishers...)

	identitySvc := identity.NewService(sub.Accounts, sub.Tx, trail, clock)
	grantSvc := grants.NewService(sub.Grants, sub.Tx, trail, clock, identitySvc)
	recordSvc := records.NewService(sub.Records, sub.Tx, trail, clock, identitySvc, grantSvc)
	packager := sharing.NewPackager(blobs, clock)
	accessSvc := accessrequest.NewService(sub.Requests, sub.Tx, trail, clock, NewRecordSource(recordSvc), packager)

	recordSvc.SetScopedAccess(accessSvc)
	identitySvc.SetStats(&accountStats{records: recordSvc, grants: grantSvc})
	if opts.NewRequestID != nil {
		accessSvc.SetIDGenerator(opts.NewRequestID)
	}
	if opts.MaxShareDuration > 0 {
		accessSvc.SetMaxDuration(opts.MaxShareDuration)
	}

	return &Registry{
		Trail:    trail,
		Identity: identitySvc,
		Records:  recordSvc,
		Grants:   grantSvc,
		Access:   accessSvc,
		Packager: packager,
		Blobs:    blobs,
	}
}

// RegisterRoutes mounts every domain handler on api.
func (r *Registry) RegisterRoutes(api *echo.Group) {
	identity.NewHandler(r.Identity).RegisterRoutes(api)
	records.NewHandler(r.Records).RegisterRoutes(api)
	grants.NewHandler(r.Grants).RegisterRoutes(api)
	accessrequest.NewHandler(r.Access).RegisterRoutes(api)
	audit.NewHandler(r.Trail).RegisterRoutes(api)
	blobstore.NewHandler(r.Blobs).RegisterRoutes(api)
}
