package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/lib/pq"

	"github.com/afpthedev/super-duper-winner/internal/model"
)

// SQLRepository keeps one row per team with the team encoded as JSON.
// Dialect differences are limited to placeholders.
type SQLRepository struct {
	db       *sql.DB
	postgres bool
}

const createLocalTeams = `
CREATE TABLE IF NOT EXISTS local_teams (
    name       TEXT PRIMARY KEY,
    payload    TEXT NOT NULL,
    position   INTEGER NOT NULL,
    updated_at TEXT NOT NULL
)`

// OpenSQLite opens (and creates) the database file at path.
func OpenSQLite(path string) (*SQLRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	return newSQLRepository(db, false)
}

func OpenPostgres(dsn string) (*SQLRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLRepository(db, true)
}

func newSQLRepository(db *sql.DB, postgres bool) (*SQLRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createLocalTeams); err != nil {
		db.Close()
		return nil, fmt.Errorf("create local_teams: %w", err)
	}
	return &SQLRepository{db: db, postgres: postgres}, nil
}

func (r *SQLRepository) Load(ctx context.Context) ([]model.TeamRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, payload FROM local_teams ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("query local_teams: %w", err)
	}
	defer rows.Close()

	teams := []model.TeamRecord{}
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("scan local_teams: %w", err)
		}
		var team model.TeamRecord
		if err := json.Unmarshal([]byte(payload), &team); err != nil {
			return nil, fmt.Errorf("decode team %q: %w", name, err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return markLocal(teams), nil
}

// Save replaces every stored team in one transaction.
func (r *SQLRepository) Save(ctx context.Context, teams []model.TeamRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM local_teams`); err != nil {
		return fmt.Errorf("clear local_teams: %w", err)
	}

	insert := r.rebind(`INSERT INTO local_teams (name, payload, position, updated_at) VALUES (?, ?, ?, ?)`)
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range teams {
		payload, err := json.Marshal(&teams[i])
		if err != nil {
			return fmt.Errorf("encode team %q: %w", teams[i].Name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, teams[i].Name, string(payload), i, now); err != nil {
			return fmt.Errorf("insert team %q: %w", teams[i].Name, err)
		}
	}
	return tx.Commit()
}

// Upsert writes one row in a transaction. A stored team whose name matches
// case-insensitively is updated in place and keeps its position.
func (r *SQLRepository) Upsert(ctx context.Context, team model.TeamRecord) (bool, error) {
	payload, err := json.Marshal(&team)
	if err != nil {
		return false, fmt.Errorf("encode team %q: %w", team.Name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	names, err := storedNames(ctx, tx)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if i := FindTeam(names, team.Name); i >= 0 {
		update := r.rebind(`UPDATE local_teams SET name = ?, payload = ?, updated_at = ? WHERE name = ?`)
		if _, err := tx.ExecContext(ctx, update, team.Name, string(payload), now, names[i].Name); err != nil {
			return false, fmt.Errorf("update team %q: %w", team.Name, err)
		}
		return false, tx.Commit()
	}

	insert := r.rebind(`INSERT INTO local_teams (name, payload, position, updated_at)
SELECT ?, ?, COALESCE(MAX(position), -1) + 1, ? FROM local_teams`)
	if _, err := tx.ExecContext(ctx, insert, team.Name, string(payload), now); err != nil {
		return false, fmt.Errorf("insert team %q: %w", team.Name, err)
	}
	return true, tx.Commit()
}

func (r *SQLRepository) Delete(ctx context.Context, name string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	names, err := storedNames(ctx, tx)
	if err != nil {
		return "", err
	}
	i := LookupTeam(names, name)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrTeamNotFound, name)
	}
	stored := names[i].Name
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM local_teams WHERE name = ?`), stored); err != nil {
		return "", fmt.Errorf("delete team %q: %w", stored, err)
	}
	return stored, tx.Commit()
}

// storedNames returns name-only records so the Go-side matching helpers can
// run inside the transaction.
func storedNames(ctx context.Context, tx *sql.Tx) ([]model.TeamRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM local_teams ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("query local_teams: %w", err)
	}
	defer rows.Close()

	var out []model.TeamRecord
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan local_teams: %w", err)
		}
		out = append(out, model.TeamRecord{Name: name})
	}
	return out, rows.Err()
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind turns "?" placeholders into "$1".. for postgres.
func (r *SQLRepository) rebind(query string) string {
	if !r.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
