package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/contentforge/contentforge/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	// Pragmas go in the DSN so they apply to every connection in the
	// database/sql pool, not just the one a bare Exec happens to use.
	pragmas := "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+pragmas)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS payment_requests (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	amount         REAL NOT NULL,
	currency       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending_verification',
	payment_method TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS keyword_cache (
	id         TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	keywords   TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_requests_user_status ON payment_requests(user_id, status);
CREATE INDEX IF NOT EXISTS idx_payment_requests_status ON payment_requests(status);
CREATE INDEX IF NOT EXISTS idx_keyword_cache_category ON keyword_cache(category);
CREATE INDEX IF NOT EXISTS idx_keyword_cache_expires_at ON keyword_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LogClaim(ctx context.Context, req model.PaymentRequest) (*model.PaymentRequest, error) {
	claim := normalizeClaim(req)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_requests (id, user_id, amount, currency, status, payment_method, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		claim.ID, claim.UserID, claim.Amount, claim.Currency, string(claim.Status), claim.PaymentMethod, claim.Timestamp,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert claim")
	}
	return &claim, nil
}

func (s *SQLiteStore) GetClaim(ctx context.Context, id string) (*model.PaymentRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, currency, status, payment_method, created_at
		 FROM payment_requests WHERE id = ?`,
		id,
	)

	var claim model.PaymentRequest
	var status string
	err := row.Scan(&claim.ID, &claim.UserID, &claim.Amount, &claim.Currency, &status, &claim.PaymentMethod, &claim.Timestamp)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: claim not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan claim")
	}
	claim.Status = model.PaymentStatus(status)
	return &claim, nil
}

func (s *SQLiteStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]model.PaymentRequest, error) {
	query := `SELECT id, user_id, amount, currency, status, payment_method, created_at
	          FROM payment_requests WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list claims")
	}
	defer rows.Close()

	var claims []model.PaymentRequest
	for rows.Next() {
		var claim model.PaymentRequest
		var status string
		if err := rows.Scan(&claim.ID, &claim.UserID, &claim.Amount, &claim.Currency, &status, &claim.PaymentMethod, &claim.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim")
		}
		claim.Status = model.PaymentStatus(status)
		claims = append(claims, claim)
	}
	return claims, eris.Wrap(rows.Err(), "sqlite: list claims iterate")
}

func (s *SQLiteStore) UpdateClaimStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	if !status.Terminal() {
		return eris.Errorf("sqlite: claim status %q is not a terminal status", status)
	}

	// Pending claims only: terminal records never change again.
	res, err := s.db.ExecContext(ctx,
		`UPDATE payment_requests SET status = ? WHERE id = ? AND status = ?`,
		string(status), id, string(model.PaymentStatusPending),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update claim status %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: claim not found or already reconciled: %s", id)
	}
	return nil
}

func (s *SQLiteStore) HasVerifiedClaim(ctx context.Context, userID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payment_requests WHERE user_id = ? AND status = ?)`,
		userID, string(model.PaymentStatusVerified),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, eris.Wrap(err, "sqlite: check verified claim")
	}
	return exists, nil
}

func (s *SQLiteStore) GetCachedKeywords(ctx context.Context, category string) ([]model.TrendingKeyword, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT keywords FROM keyword_cache
		 WHERE category = ? AND expires_at > datetime('now')
		 ORDER BY cached_at DESC LIMIT 1`,
		category,
	)

	var keywordsJSON string
	err := row.Scan(&keywordsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached keywords")
	}

	var keywords []model.TrendingKeyword
	if err := json.Unmarshal([]byte(keywordsJSON), &keywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached keywords")
	}
	return keywords, nil
}

func (s *SQLiteStore) SetCachedKeywords(ctx context.Context, category string, keywords []model.TrendingKeyword, ttl time.Duration) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal keywords")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO keyword_cache (id, category, keywords, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		id, category, string(keywordsJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached keywords")
}

// normalizeClaim assigns the ledger-owned fields: fresh ID, pending
// status, UTC timestamp, and the fixed payment method / default
// currency.
func normalizeClaim(req model.PaymentRequest) model.PaymentRequest {
	req.ID = uuid.New().String()
	req.Status = model.PaymentStatusPending
	req.Timestamp = time.Now().UTC()
	if req.Currency == "" {
		req.Currency = model.DefaultCurrency
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentMethodUPI
	}
	return req
}
