package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// schema is applied in order on every start. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id                TEXT PRIMARY KEY,
		email             TEXT NOT NULL UNIQUE,
		password          TEXT NOT NULL,
		full_name         TEXT NOT NULL,
		role              TEXT NOT NULL CHECK (role IN ('seeker', 'provider', 'owner')),
		wallet_balance    NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
		penalty_amount    NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (penalty_amount >= 0),
		last_payment_date TIMESTAMPTZ,
		is_account_active BOOLEAN NOT NULL DEFAULT TRUE,
		total_paid_amount NUMERIC(14, 2) NOT NULL DEFAULT 0,
		version           INTEGER NOT NULL DEFAULT 1,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS listings (
		id                 TEXT PRIMARY KEY,
		owner_account_id   TEXT NOT NULL REFERENCES accounts(id),
		title              TEXT NOT NULL DEFAULT '',
		price              NUMERIC(14, 2) NOT NULL CHECK (price > 0),
		rent_unit          TEXT NOT NULL CHECK (rent_unit IN ('hourly', 'daily', 'monthly')),
		capacity           INTEGER NOT NULL DEFAULT 1,
		gender_restriction TEXT NOT NULL DEFAULT '',
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id            TEXT PRIMARY KEY,
		room_id       TEXT NOT NULL REFERENCES listings(id),
		seeker_id     TEXT NOT NULL REFERENCES accounts(id),
		provider_id   TEXT NOT NULL REFERENCES accounts(id),
		status        TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined', 'cancelled')),
		stay_duration INTEGER NOT NULL CHECK (stay_duration >= 1),
		unit_price    NUMERIC(14, 2) NOT NULL,
		total_price   NUMERIC(14, 2) NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// At most one pending or accepted booking per (room, seeker). The
	// conditional insert in the booking service targets this index.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_one_active
		ON bookings (room_id, seeker_id) WHERE status IN ('pending', 'accepted')`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_seeker ON bookings (seeker_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_provider ON bookings (provider_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		booking_id  TEXT REFERENCES bookings(id),
		thread_key  TEXT NOT NULL,
		sender_id   TEXT NOT NULL REFERENCES accounts(id),
		receiver_id TEXT NOT NULL REFERENCES accounts(id),
		content     TEXT NOT NULL,
		is_read     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (sender_id <> receiver_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages (thread_key, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages (receiver_id) WHERE NOT is_read`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id         TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		amount     NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
		method     TEXT NOT NULL,
		reference  TEXT NOT NULL DEFAULT '',
		metadata   JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_account ON payments (account_id, created_at DESC)`,
}

// Migrate creates any missing tables and indexes in a single transaction
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying schema statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing migration: %w", err)
	}
	log.Printf("Database schema up to date (%d statements)", len(schema))
	return nil
}
