package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"parking_ledger/internal/config"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sessions (
    id BIGSERIAL PRIMARY KEY,
    plate TEXT NOT NULL,
    "entry" TIMESTAMPTZ NOT NULL,
    "exit" TIMESTAMPTZ,
    amount NUMERIC(12, 2),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    CONSTRAINT sessions_closed_consistent CHECK (
        (active AND "exit" IS NULL AND amount IS NULL)
        OR (NOT active AND "exit" IS NOT NULL AND amount IS NOT NULL AND "exit" >= "entry")
    )
);
CREATE UNIQUE INDEX IF NOT EXISTS sessions_active_plate_key ON sessions (plate) WHERE active;
CREATE INDEX IF NOT EXISTS sessions_active_entry_idx ON sessions (active, "entry");

CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT users_username_key UNIQUE (username)
);
`

// DSN builds the connection string for cfg. The schema goes into search_path.
func DSN(cfg *config.Config) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)
	if cfg.DBSchema != "" {
		dsn += fmt.Sprintf(" search_path=%s", pq.QuoteIdentifier(cfg.DBSchema))
	}
	return dsn
}

func NewDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão com o banco: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("erro ao pingar o banco: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("erro ao criar o schema: %w", err)
	}
	return db, nil
}
