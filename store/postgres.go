package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/varkas/credgate"
	"github.com/varkas/credgate/store/migrations"
)

const pgUniqueViolation = "23505"

// Postgres is the production [credgate.CredentialStore]. Conditional
// updates (migration CAS, failure counting) are single UPDATE statements,
// so the database serializes them per record without any application-level
// locking.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pgx-backed connection pool for dsn and runs the
// embedded schema migrations.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return p, nil
}

// NewPostgresFromDB wraps an existing pool without running migrations.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the underlying pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, p.db, ".")
}

const credentialColumns = `id, identity, display_name,
	COALESCE(legacy_hash, ''), COALESCE(secure_hash, ''), migrated,
	role, active, failed_attempts, locked_until, last_login_at, created_at`

// FindByIdentity implements [credgate.CredentialStore].
func (p *Postgres) FindByIdentity(ctx context.Context, identity string) (*credgate.CredentialRecord, error) {
	query := `SELECT ` + credentialColumns + `
		 FROM credentials
		 WHERE lower(identity) = $1
		 `

	rec := &credgate.CredentialRecord{}
	var role int16
	var lockedUntil, lastLoginAt sql.NullTime

	err := p.db.QueryRowContext(ctx, query, credgate.NormalizeIdentity(identity)).Scan(
		&rec.ID, &rec.Identity, &rec.DisplayName,
		&rec.LegacyHash, &rec.SecureHash, &rec.Migrated,
		&role, &rec.Active, &rec.FailedAttempts,
		&lockedUntil, &lastLoginAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credgate.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rec.Role = credgate.Role(role)
	if lockedUntil.Valid {
		rec.LockedUntil = &lockedUntil.Time
	}
	if lastLoginAt.Valid {
		rec.LastLoginAt = &lastLoginAt.Time
	}

	return rec, nil
}

// Create implements [credgate.CredentialStore].
func (p *Postgres) Create(ctx context.Context, rec *credgate.CredentialRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Identity = credgate.NormalizeIdentity(rec.Identity)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query :=
		`INSERT INTO credentials
		 (id, identity, display_name, legacy_hash, secure_hash, migrated,
		  role, active, failed_attempts, locked_until, last_login_at, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)
		 `

	_, err := p.db.ExecContext(ctx, query,
		rec.ID, rec.Identity, rec.DisplayName, rec.LegacyHash, rec.SecureHash, rec.Migrated,
		int16(rec.Role), rec.Active, rec.FailedAttempts, rec.LockedUntil, rec.LastLoginAt, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return credgate.ErrIdentityExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// MarkMigrated implements [credgate.CredentialStore]. The WHERE clause on
// migrated makes this a compare-and-swap: of N concurrent callers exactly
// one observes RowsAffected == 1.
func (p *Postgres) MarkMigrated(ctx context.Context, identity, secureHash string) (bool, error) {
	query :=
		`UPDATE credentials
		 SET secure_hash = $2, migrated = TRUE
		 WHERE lower(identity) = $1 AND migrated = FALSE
		 `

	res, err := p.db.ExecContext(ctx, query, credgate.NormalizeIdentity(identity), secureHash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return affected == 1, nil
}

// RecordFailure implements [credgate.CredentialStore]. Increment and
// lockout-set are one statement, so interleaved failures cannot skip the
// threshold.
func (p *Postgres) RecordFailure(ctx context.Context, identity string, threshold int, lockFor time.Duration) (int, error) {
	query :=
		`UPDATE credentials
		 SET failed_attempts = failed_attempts + 1,
		     locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END
		 WHERE lower(identity) = $1
		 RETURNING failed_attempts
		 `

	var count int
	err := p.db.QueryRowContext(ctx, query,
		credgate.NormalizeIdentity(identity), threshold, time.Now().Add(lockFor),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, credgate.ErrRecordNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

// RecordSuccess implements [credgate.CredentialStore].
func (p *Postgres) RecordSuccess(ctx context.Context, identity string, at time.Time) error {
	query :=
		`UPDATE credentials
		 SET failed_attempts = 0, locked_until = NULL, last_login_at = $2
		 WHERE lower(identity) = $1
		 `

	return p.execOne(ctx, query, credgate.NormalizeIdentity(identity), at)
}

// UpdateSecureHash implements [credgate.CredentialStore].
func (p *Postgres) UpdateSecureHash(ctx context.Context, identity, secureHash string) error {
	query :=
		`UPDATE credentials
		 SET secure_hash = $2
		 WHERE lower(identity) = $1 AND migrated = TRUE
		 `

	return p.execOne(ctx, query, credgate.NormalizeIdentity(identity), secureHash)
}

// UpdateRole implements [credgate.CredentialStore].
func (p *Postgres) UpdateRole(ctx context.Context, identity string, role credgate.Role) error {
	query :=
		`UPDATE credentials
		 SET role = $2
		 WHERE lower(identity) = $1
		 `

	return p.execOne(ctx, query, credgate.NormalizeIdentity(identity), int16(role))
}

// SetActive implements [credgate.CredentialStore].
func (p *Postgres) SetActive(ctx context.Context, identity string, active bool) error {
	query :=
		`UPDATE credentials
		 SET active = $2
		 WHERE lower(identity) = $1
		 `

	return p.execOne(ctx, query, credgate.NormalizeIdentity(identity), active)
}

func (p *Postgres) execOne(ctx context.Context, query string, args ...any) error {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return credgate.ErrRecordNotFound
	}

	return nil
}
