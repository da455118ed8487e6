package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzawars/internal/game"
)

const postgresSchema = `
CREATE SCHEMA IF NOT EXISTS pizzawars;

CREATE TABLE IF NOT EXISTS pizzawars.players (
	id TEXT PRIMARY KEY,
	version BIGINT NOT NULL,
	schema_version INT NOT NULL,
	total_income_micros BIGINT NOT NULL DEFAULT 0,
	doc JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS players_total_income_idx ON pizzawars.players (total_income_micros DESC);

CREATE TABLE IF NOT EXISTS pizzawars.location_performance (
	location TEXT PRIMARY KEY,
	multiplier DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres stores each player as a JSONB document guarded by a version
// column. The pool is owned by the caller.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func (s *Postgres) Load(ctx context.Context, id string) (game.Player, error) {
	var (
		version int64
		doc     []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT version, doc
		FROM pizzawars.players
		WHERE id = $1
	`, id).Scan(&version, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Player{}, game.ErrPlayerNotFound
	}
	if err != nil {
		return game.Player{}, err
	}
	return decodePlayer(id, version, doc)
}

// Save writes all players in one transaction. A row whose version moved on
// since it was loaded aborts the whole batch with ErrConcurrentUpdate.
func (s *Postgres) Save(ctx context.Context, players ...*game.Player) error {
	docs := make([][]byte, len(players))
	for i, p := range players {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode player %s: %w", p.ID, err)
		}
		docs[i] = doc
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, p := range players {
		var tag pgconn.CommandTag
		if p.Version == 0 {
			tag, err = tx.Exec(ctx, `
				INSERT INTO pizzawars.players (id, version, schema_version, total_income_micros, doc)
				VALUES ($1, 1, $2, $3, $4)
				ON CONFLICT (id) DO NOTHING
			`, p.ID, p.SchemaVersion, p.TotalIncomeMicros, docs[i])
		} else {
			tag, err = tx.Exec(ctx, `
				UPDATE pizzawars.players
				SET version = version + 1,
					schema_version = $3,
					total_income_micros = $4,
					doc = $5,
					updated_at = now()
				WHERE id = $1 AND version = $2
			`, p.ID, p.Version, p.SchemaVersion, p.TotalIncomeMicros, docs[i])
		}
		if err != nil {
			if isConflict(err) {
				return game.ErrConcurrentUpdate
			}
			return err
		}
		if tag.RowsAffected() != 1 {
			return game.ErrConcurrentUpdate
		}
	}
	if err := tx.Commit(ctx); err != nil {
		if isConflict(err) {
			return game.ErrConcurrentUpdate
		}
		return err
	}
	for _, p := range players {
		p.Version++
	}
	return nil
}

func (s *Postgres) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM pizzawars.players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Postgres) LoadPerformance(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.Query(ctx, `SELECT location, multiplier FROM pizzawars.location_performance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			location   string
			multiplier float64
		)
		if err := rows.Scan(&location, &multiplier); err != nil {
			return nil, err
		}
		out[location] = multiplier
	}
	return out, rows.Err()
}

func (s *Postgres) SavePerformance(ctx context.Context, multipliers map[string]float64) error {
	batch := &pgx.Batch{}
	for location, m := range multipliers {
		batch.Queue(`
			INSERT INTO pizzawars.location_performance (location, multiplier, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (location) DO UPDATE SET multiplier = EXCLUDED.multiplier, updated_at = now()
		`, location, m)
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}

func decodePlayer(id string, version int64, doc []byte) (game.Player, error) {
	var p game.Player
	if err := json.Unmarshal(doc, &p); err != nil {
		return game.Player{}, fmt.Errorf("decode player %s: %w", id, err)
	}
	p.ID = id
	p.Version = version
	return p, nil
}
