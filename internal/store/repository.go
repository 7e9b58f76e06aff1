// Package store persists raw provider payloads and locally-authored teams.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/afpthedev/super-duper-winner/internal/config"
	"github.com/afpthedev/super-duper-winner/internal/model"
)

var ErrTeamNotFound = errors.New("team not found")

// Repository loads and saves the full set of locally-authored teams. Upsert
// and Delete change one team atomically, so concurrent writers of different
// teams never drop each other's changes.
type Repository interface {
	Load(ctx context.Context) ([]model.TeamRecord, error)
	Save(ctx context.Context, teams []model.TeamRecord) error
	// Upsert replaces the team with the same name (case-insensitive) or
	// appends it, and reports whether it was appended.
	Upsert(ctx context.Context, team model.TeamRecord) (created bool, err error)
	// Delete removes the team found by LookupTeam and returns its stored
	// name, or ErrTeamNotFound.
	Delete(ctx context.Context, name string) (string, error)
}

// Pinger is implemented by repositories backed by a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

const localTeamsPath = "local/teams.json"

// FileRepository keeps teams as one JSON array in a JSONStore. Writers in
// one process are serialised; the file is not locked against other processes.
type FileRepository struct {
	Store *JSONStore
	Rel   string

	mu sync.Mutex
}

func NewFileRepository(st *JSONStore) *FileRepository {
	return &FileRepository{Store: st, Rel: localTeamsPath}
}

func (r *FileRepository) Load(ctx context.Context) ([]model.TeamRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileRepository) load() ([]model.TeamRecord, error) {
	raw, err := r.Store.ReadRaw(r.Rel)
	if errors.Is(err, os.ErrNotExist) {
		return []model.TeamRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Rel, err)
	}

	var teams []model.TeamRecord
	if err := json.Unmarshal(raw, &teams); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Rel, err)
	}
	return markLocal(teams), nil
}

func (r *FileRepository) Save(ctx context.Context, teams []model.TeamRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(teams)
}

func (r *FileRepository) Upsert(ctx context.Context, team model.TeamRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	teams, err := r.load()
	if err != nil {
		return false, err
	}
	created := FindTeam(teams, team.Name) < 0
	return created, r.save(UpsertTeam(teams, team))
}

func (r *FileRepository) Delete(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	teams, err := r.load()
	if err != nil {
		return "", err
	}
	i := LookupTeam(teams, name)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrTeamNotFound, name)
	}
	stored := teams[i].Name
	left, err := RemoveTeam(teams, stored)
	if err != nil {
		return "", err
	}
	return stored, r.save(left)
}

func (r *FileRepository) save(teams []model.TeamRecord) error {
	if teams == nil {
		teams = []model.TeamRecord{}
	}
	b, err := json.Marshal(teams)
	if err != nil {
		return fmt.Errorf("encode teams: %w", err)
	}
	return r.Store.WriteRaw(r.Rel, b, true)
}

// Open returns the repository selected by cfg. JSON teams live under raw.
func Open(cfg config.StoreConfig, raw *JSONStore) (Repository, error) {
	switch cfg.Driver {
	case "", "json":
		return NewFileRepository(raw), nil
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "postgres":
		return OpenPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// FindTeam returns the index of the team named name, ignoring case and
// surrounding space, or -1.
func FindTeam(teams []model.TeamRecord, name string) int {
	want := strings.TrimSpace(name)
	for i := range teams {
		if strings.EqualFold(strings.TrimSpace(teams[i].Name), want) {
			return i
		}
	}
	return -1
}

// LookupTeam is FindTeam falling back to a slug match, so "kadikoy-fc"
// finds "Kadikoy FC".
func LookupTeam(teams []model.TeamRecord, name string) int {
	if i := FindTeam(teams, name); i >= 0 {
		return i
	}
	slug := model.Slug(name)
	if slug == "" {
		return -1
	}
	for i := range teams {
		if model.Slug(teams[i].Name) == slug {
			return i
		}
	}
	return -1
}

// UpsertTeam returns a new slice with team replacing the one of the same name,
// or appended.
func UpsertTeam(teams []model.TeamRecord, team model.TeamRecord) []model.TeamRecord {
	out := append([]model.TeamRecord(nil), teams...)
	if i := FindTeam(out, team.Name); i >= 0 {
		out[i] = team
		return out
	}
	return append(out, team)
}

// RemoveTeam returns a new slice without the named team, or ErrTeamNotFound.
func RemoveTeam(teams []model.TeamRecord, name string) ([]model.TeamRecord, error) {
	i := FindTeam(teams, name)
	if i < 0 {
		return teams, fmt.Errorf("%w: %s", ErrTeamNotFound, name)
	}
	out := make([]model.TeamRecord, 0, len(teams)-1)
	out = append(out, teams[:i]...)
	return append(out, teams[i+1:]...), nil
}

// markLocal tags every player of stored teams as locally authored.
func markLocal(teams []model.TeamRecord) []model.TeamRecord {
	for i := range teams {
		for j := range teams[i].Players {
			teams[i].Players[j].Source = model.SourceLocal
		}
	}
	return teams
}
