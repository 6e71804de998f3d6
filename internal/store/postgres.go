package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/contentforge/contentforge/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection
// for the hot paths: claim logging and entitlement checks.
var preparedStatements = map[string]string{
	"insert_claim":        `INSERT INTO payment_requests (id, user_id, amount, currency, status, payment_method, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_claim":           `SELECT id, user_id, amount, currency, status, payment_method, created_at FROM payment_requests WHERE id = $1`,
	"has_verified_claim":  `SELECT EXISTS(SELECT 1 FROM payment_requests WHERE user_id = $1 AND status = $2)`,
	"get_cached_keywords": `SELECT keywords FROM keyword_cache WHERE category = $1 AND expires_at > now() ORDER BY cached_at DESC LIMIT 1`,
	"set_cached_keywords": `INSERT INTO keyword_cache (id, category, keywords, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS payment_requests (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT NOT NULL,
	amount         DOUBLE PRECISION NOT NULL,
	currency       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending_verification',
	payment_method TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS keyword_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	category   TEXT NOT NULL,
	keywords   JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_requests_user_status ON payment_requests(user_id, status);
CREATE INDEX IF NOT EXISTS idx_payment_requests_status ON payment_requests(status);
CREATE INDEX IF NOT EXISTS idx_keyword_cache_category ON keyword_cache(category);
CREATE INDEX IF NOT EXISTS idx_keyword_cache_expires_at ON keyword_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LogClaim(ctx context.Context, req model.PaymentRequest) (*model.PaymentRequest, error) {
	claim := normalizeClaim(req)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_requests (id, user_id, amount, currency, status, payment_method, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		claim.ID, claim.UserID, claim.Amount, claim.Currency, string(claim.Status), claim.PaymentMethod, claim.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert claim")
	}
	return &claim, nil
}

func (s *PostgresStore) GetClaim(ctx context.Context, id string) (*model.PaymentRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, amount, currency, status, payment_method, created_at FROM payment_requests WHERE id = $1`,
		id,
	)

	var claim model.PaymentRequest
	var status string
	err := row.Scan(&claim.ID, &claim.UserID, &claim.Amount, &claim.Currency, &status, &claim.PaymentMethod, &claim.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: claim not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get claim")
	}
	claim.Status = model.PaymentStatus(status)
	return &claim, nil
}

func (s *PostgresStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]model.PaymentRequest, error) {
	query := `SELECT id, user_id, amount, currency, status, payment_method, created_at
	          FROM payment_requests WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list claims")
	}
	defer rows.Close()

	var claims []model.PaymentRequest
	for rows.Next() {
		var claim model.PaymentRequest
		var status string
		if err := rows.Scan(&claim.ID, &claim.UserID, &claim.Amount, &claim.Currency, &status, &claim.PaymentMethod, &claim.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim")
		}
		claim.Status = model.PaymentStatus(status)
		claims = append(claims, claim)
	}
	return claims, eris.Wrap(rows.Err(), "postgres: list claims iterate")
}

func (s *PostgresStore) UpdateClaimStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	if !status.Terminal() {
		return eris.Errorf("postgres: claim status %q is not a terminal status", status)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE payment_requests SET status = $1 WHERE id = $2 AND status = $3`,
		string(status), id, string(model.PaymentStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update claim status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: claim not found or already reconciled: %s", id)
	}
	return nil
}

func (s *PostgresStore) HasVerifiedClaim(ctx context.Context, userID string) (bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payment_requests WHERE user_id = $1 AND status = $2)`,
		userID, string(model.PaymentStatusVerified),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, eris.Wrap(err, "postgres: check verified claim")
	}
	return exists, nil
}

func (s *PostgresStore) GetCachedKeywords(ctx context.Context, category string) ([]model.TrendingKeyword, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT keywords FROM keyword_cache WHERE category = $1 AND expires_at > now() ORDER BY cached_at DESC LIMIT 1`,
		category,
	)

	var keywordsJSON []byte
	err := row.Scan(&keywordsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached keywords")
	}

	var keywords []model.TrendingKeyword
	if err := json.Unmarshal(keywordsJSON, &keywords); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached keywords")
	}
	return keywords, nil
}

func (s *PostgresStore) SetCachedKeywords(ctx context.Context, category string, keywords []model.TrendingKeyword, ttl time.Duration) error {
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal keywords")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO keyword_cache (id, category, keywords, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), category, keywordsJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached keywords")
}
