package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pizzawars/internal/game"
)

// SQLite is a single-file store for local play and development.
type SQLite struct {
	conn *sqlx.DB
}

type playerRow struct {
	ID      string `db:"id"`
	Version int64  `db:"version"`
	Doc     string `db:"doc"`
}

type performanceRow struct {
	Location   string  `db:"location"`
	Multiplier float64 `db:"multiplier"`
}

const sqliteBusyTimeoutMS = 5000

func OpenSQLite(path string) (*SQLite, error) {
	return openSQLite(path, sqliteBusyTimeoutMS)
}

func openSQLite(path string, busyTimeoutMS int) (*SQLite, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", path, busyTimeoutMS)
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps multi-player saves serialized
	conn.SetMaxOpenConns(1)

	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		schema_version INTEGER NOT NULL,
		total_income_micros INTEGER NOT NULL DEFAULT 0,
		doc TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS location_performance (
		location TEXT PRIMARY KEY,
		multiplier REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_players_income ON players(total_income_micros);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLite) Load(ctx context.Context, id string) (game.Player, error) {
	var row playerRow
	err := s.conn.GetContext(ctx, &row, `SELECT id, version, doc FROM players WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Player{}, game.ErrPlayerNotFound
	}
	if err != nil {
		return game.Player{}, err
	}
	return decodePlayer(row.ID, row.Version, []byte(row.Doc))
}

func (s *SQLite) Save(ctx context.Context, players ...*game.Player) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return lockConflict(err)
	}
	defer tx.Rollback()

	for _, p := range players {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode player %s: %w", p.ID, err)
		}
		var res sql.Result
		if p.Version == 0 {
			res, err = tx.ExecContext(ctx, `
				INSERT INTO players (id, version, schema_version, total_income_micros, doc)
				VALUES (?, 1, ?, ?, ?)
				ON CONFLICT (id) DO NOTHING`,
				p.ID, p.SchemaVersion, p.TotalIncomeMicros, string(doc))
		} else {
			res, err = tx.ExecContext(ctx, `
				UPDATE players
				SET version = version + 1, schema_version = ?, total_income_micros = ?, doc = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ? AND version = ?`,
				p.SchemaVersion, p.TotalIncomeMicros, string(doc), p.ID, p.Version)
		}
		if err != nil {
			return lockConflict(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return game.ErrConcurrentUpdate
		}
	}
	if err := tx.Commit(); err != nil {
		return lockConflict(err)
	}
	for _, p := range players {
		p.Version++
	}
	return nil
}

func (s *SQLite) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.conn.SelectContext(ctx, &ids, `SELECT id FROM players ORDER BY id`); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLite) LoadPerformance(ctx context.Context) (map[string]float64, error) {
	var rows []performanceRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT location, multiplier FROM location_performance`); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.Location] = r.Multiplier
	}
	return out, nil
}

func (s *SQLite) SavePerformance(ctx context.Context, multipliers map[string]float64) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO location_performance (location, multiplier) VALUES (?, ?)
		ON CONFLICT (location) DO UPDATE SET multiplier = excluded.multiplier`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for location, m := range multipliers {
		if _, err := stmt.ExecContext(ctx, location, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// lockConflict maps a busy or locked database onto game.ErrConcurrentUpdate.
func lockConflict(err error) error {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return err
	}
	switch coded.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %v", game.ErrConcurrentUpdate, err)
	}
	return err
}
