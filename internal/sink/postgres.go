package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/logging"
	"ddos-reassembler/internal/reassembler"

	"github.com/lib/pq"
)

// PostgresSink upserts summaries into one row per content key.
type PostgresSink struct {
	db    *sql.DB
	table string
}

func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	p := &PostgresSink{db: db, table: pq.QuoteIdentifier(cfg.TableName())}
	if _, err := db.ExecContext(ctx, p.createTableSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", p.table, err)
	}

	logging.GetLogger().WithField("table", cfg.TableName()).Info("Connected to PostgreSQL")
	return p, nil
}

func (p *PostgresSink) createTableSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	nr_intermediate_nodes INTEGER NOT NULL,
	pct_spoofed DOUBLE PRECISION NOT NULL,
	drop_fraction DOUBLE PRECISION NOT NULL,
	summary JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, p.table)
}

func (p *PostgresSink) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s
	(key, target, start_time, end_time, nr_intermediate_nodes, pct_spoofed, drop_fraction, summary)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (key) DO UPDATE SET summary = EXCLUDED.summary`, p.table)
}

func (p *PostgresSink) Write(ctx context.Context, s *reassembler.Summary) error {
	if err := ensureKey(s); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, p.upsertSQL(),
		s.Key,
		s.Target.IP,
		s.Attack.StartTime,
		s.Attack.EndTime,
		s.IntermediateNodes.NrIntermediateNodes,
		s.Sources.PctSpoofed,
		s.Meta.DropFraction,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert summary %s: %w", s.Key, err)
	}
	return nil
}

func (p *PostgresSink) Close() error {
	return p.db.Close()
}
