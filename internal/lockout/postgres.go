package lockout

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed Recorder operating on the lockout columns of the
// identities table.
type PG struct {
	pool pgxQuerier
	cfg  Config
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed recorder.
func NewPG(pool *pgxpool.Pool, cfg Config) *PG {
	return &PG{pool: pool, cfg: cfg.WithDefaults()}
}

// NewPGWithQuerier constructs a recorder over any pgx-compatible querier.
func NewPGWithQuerier(q pgxQuerier, cfg Config) *PG {
	return &PG{pool: q, cfg: cfg.WithDefaults()}
}

// Failure atomically increments the failed-attempt counter and locks the row
// when the threshold is reached. When a previous lock has already expired the
// counter restarts at 1 (lazy unlock), matching Evaluate's read-site view.
func (p *PG) Failure(ctx context.Context, tenantID string, id uuid.UUID) (bool, time.Duration, error) {
	const q = `
UPDATE identities
SET failed_attempts = CASE
      WHEN locked_until > 'epoch' AND locked_until <= now() THEN 1
      ELSE failed_attempts + 1
    END,
    locked_until = 'epoch'
WHERE tenant_id=$1 AND id=$2
RETURNING failed_attempts`
	var fails int
	if err := p.pool.QueryRow(ctx, q, tenantID, id).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails >= p.cfg.MaxAttempts {
		until := time.Now().Add(p.cfg.LockFor)
		const upd = `UPDATE identities SET locked_until=$3 WHERE tenant_id=$1 AND id=$2`
		if _, err := p.pool.Exec(ctx, upd, tenantID, id, until); err != nil {
			return false, 0, err
		}
		return true, p.cfg.LockFor, nil
	}
	return false, 0, nil
}

// Success resets the counter and lock and records the login timestamp.
func (p *PG) Success(ctx context.Context, tenantID string, id uuid.UUID) error {
	const q = `
UPDATE identities
SET failed_attempts=0, locked_until='epoch', last_login_at=now()
WHERE tenant_id=$1 AND id=$2`
	_, err := p.pool.Exec(ctx, q, tenantID, id)
	return err
}
