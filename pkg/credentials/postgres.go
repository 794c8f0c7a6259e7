package credentials

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/logger"
)

// PostgresStore persists credentials in a user_credentials table keyed by
// (user_id, platform).
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS user_credentials (
	user_id       TEXT NOT NULL,
	platform      TEXT NOT NULL,
	api_key       TEXT NOT NULL DEFAULT '',
	api_secret    TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	server_prefix TEXT NOT NULL DEFAULT '',
	account_id    TEXT NOT NULL DEFAULT '',
	page_id       TEXT NOT NULL DEFAULT '',
	phone_number  TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, platform)
)`

// NewPostgresStore connects to Postgres and ensures the credentials table
// exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure credentials table: %w", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.Get().With(zap.String("component", "credential_store")),
	}, nil
}

// Get returns the credential for one user on one platform, or ErrNotFound
func (s *PostgresStore) Get(ctx context.Context, userID, platform string) (*core.Credential, error) {
	const query = `
		SELECT api_key, api_secret, access_token, refresh_token,
		       server_prefix, account_id, page_id, phone_number
		FROM user_credentials
		WHERE user_id = $1 AND platform = $2`

	credential := &core.Credential{
		UserID:   userID,
		Platform: platform,
	}

	err := s.pool.QueryRow(ctx, query, userID, platform).Scan(
		&credential.APIKey,
		&credential.APISecret,
		&credential.AccessToken,
		&credential.RefreshToken,
		&credential.ServerPrefix,
		&credential.AccountID,
		&credential.PageID,
		&credential.PhoneNumber,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	return credential, nil
}

// Put stores or replaces a credential
func (s *PostgresStore) Put(ctx context.Context, credential *core.Credential) error {
	if err := validate(credential); err != nil {
		return err
	}

	const query = `
		INSERT INTO user_credentials
			(user_id, platform, api_key, api_secret, access_token,
			 refresh_token, server_prefix, account_id, page_id,
			 phone_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (user_id, platform) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			api_secret = EXCLUDED.api_secret,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			server_prefix = EXCLUDED.server_prefix,
			account_id = EXCLUDED.account_id,
			page_id = EXCLUDED.page_id,
			phone_number = EXCLUDED.phone_number,
			updated_at = now()`

	_, err := s.pool.Exec(ctx, query,
		credential.UserID,
		credential.Platform,
		credential.APIKey,
		credential.APISecret,
		credential.AccessToken,
		credential.RefreshToken,
		credential.ServerPrefix,
		credential.AccountID,
		credential.PageID,
		credential.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Debug("credential stored",
		zap.String("user_id", credential.UserID),
		zap.String("platform", credential.Platform))
	return nil
}

// Delete removes a credential
func (s *PostgresStore) Delete(ctx context.Context, userID, platform string) error {
	const query = `DELETE FROM user_credentials WHERE user_id = $1 AND platform = $2`

	if _, err := s.pool.Exec(ctx, query, userID, platform); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
