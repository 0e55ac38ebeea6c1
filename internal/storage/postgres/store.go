package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"walletwatch/internal/model"
)

//go:embed schema.sql
var schema string

const (
	pingRetries   = 4
	pingBaseDelay = 250 * time.Millisecond
)

// Store is the Postgres wallet store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects and pings the database, retrying with backoff.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := withRetry(ctx, pingRetries, pingBaseDelay, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the wallet tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WalletsByAddress returns every wallet tracking address, with settings
// defaulted when a wallet has no settings row.
func (s *Store) WalletsByAddress(ctx context.Context, address string) ([]model.Wallet, error) {
	if address == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT w.user_id, w.chain, w.address, w.label,
		       COALESCE(ws.incoming_enabled, TRUE),
		       COALESCE(ws.min_amount_usd, 0)
		FROM wallets w
		LEFT JOIN wallet_settings ws ON ws.wallet_id = w.id
		WHERE LOWER(w.address) = LOWER($1)
		ORDER BY w.id
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}

	wallets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Wallet, error) {
		var w model.Wallet
		err := row.Scan(&w.UserID, &w.Chain, &w.Address, &w.Label, &w.IncomingEnabled, &w.MinAmountUSD)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan wallets: %w", err)
	}
	for i := range wallets {
		wallets[i].Address = strings.ToLower(wallets[i].Address)
	}
	return wallets, nil
}

// UpsertWallets inserts or updates wallets and their settings keyed by (user_id, label).
func (s *Store) UpsertWallets(ctx context.Context, wallets []model.Wallet) error {
	if len(wallets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, w := range wallets {
		batch.Queue(`
			WITH upserted AS (
				INSERT INTO wallets (user_id, chain, address, label)
				VALUES ($1, LOWER($2), LOWER($3), $4)
				ON CONFLICT (user_id, label)
				DO UPDATE SET
					chain = EXCLUDED.chain,
					address = EXCLUDED.address
				RETURNING id
			)
			INSERT INTO wallet_settings (wallet_id, incoming_enabled, min_amount_usd)
			SELECT id, $5, $6 FROM upserted
			ON CONFLICT (wallet_id)
			DO UPDATE SET
				incoming_enabled = EXCLUDED.incoming_enabled,
				min_amount_usd = EXCLUDED.min_amount_usd
		`,
			w.UserID,
			w.Chain,
			w.Address,
			w.Label,
			w.IncomingEnabled,
			w.MinAmountUSD,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, w := range wallets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert wallet %d/%s: %w", w.UserID, w.Label, err)
		}
	}
	return nil
}
