// Package summary composes the per-team view: starting eleven, bench,
// formation, pitch layout and aggregates, optionally memoised in a cache.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/afpthedev/super-duper-winner/internal/aggregate"
	"github.com/afpthedev/super-duper-winner/internal/formation"
	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/pitch"
	"github.com/afpthedev/super-duper-winner/internal/position"
	"github.com/afpthedev/super-duper-winner/internal/roster"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

// Where the formation label of a view came from.
const (
	FormationExplicit  = "explicit"
	FormationPreferred = "preferred"
	FormationInferred  = "inferred"
)

type PlayerView struct {
	ID       identity.ID  `json:"id"`
	Name     string       `json:"name"`
	Position string       `json:"position"`
	Bucket   string       `json:"bucket"`
	Number   any          `json:"number,omitempty"`
	Source   model.Source `json:"source,omitempty"`
	Starter  bool         `json:"starter"`
	Minutes  string       `json:"minutes"`
	Matches  string       `json:"matches"`
	Goals    string       `json:"goals"`
	Assists  string       `json:"assists"`
	XG       string       `json:"xg"`
	XA       string       `json:"xa"`
}

type SlotView struct {
	Player     PlayerView `json:"player"`
	Top        float64    `json:"top"`
	Left       float64    `json:"left"`
	Line       int        `json:"line"`
	Goalkeeper bool       `json:"goalkeeper"`
}

type TeamView struct {
	Team            string                `json:"team"`
	League          string                `json:"league,omitempty"`
	Country         string                `json:"country,omitempty"`
	Season          string                `json:"season,omitempty"`
	SourceURL       string                `json:"source_url,omitempty"`
	Formation       string                `json:"formation"`
	FormationSource string                `json:"formation_source"`
	Lines           []int                 `json:"lines"`
	Starters        []PlayerView          `json:"starters"`
	Bench           []PlayerView          `json:"bench"`
	Layout          []SlotView            `json:"layout"`
	Totals          aggregate.Totals      `json:"totals"`
	Metrics         aggregate.MetricsView `json:"metrics"`
	Fingerprint     string                `json:"fingerprint"`
	GeneratedAtUTC  string                `json:"generated_at_utc,omitempty"`
}

// ResolveFormation picks the label for a lineup: an explicit label that
// parses, else the team's preferred formation, else one inferred from the
// starters.
func ResolveFormation(team *model.TeamRecord, label string, starters []model.PlayerRecord) (string, string) {
	if l := formation.Normalize(label); l != "" {
		return l, FormationExplicit
	}
	if l := formation.Normalize(team.PreferredFormation); l != "" {
		return l, FormationPreferred
	}
	return formation.Infer(starters), FormationInferred
}

// BuildTeamView runs the whole lineup pipeline for one team. It does not
// modify team.
func BuildTeamView(team *model.TeamRecord, label string) *TeamView {
	split := roster.Split(team.Players)
	resolved, source := ResolveFormation(team, label, split.Starters)

	view := &TeamView{
		Team:            team.Name,
		League:          team.League,
		Country:         team.Country,
		Season:          team.Season,
		SourceURL:       team.SourceURL,
		Formation:       resolved,
		FormationSource: source,
		Lines:           formation.Parse(resolved),
		Starters:        playerViews(split.Starters, true),
		Bench:           playerViews(split.Bench, false),
		Totals:          aggregate.Roster(team.Players),
		Metrics:         aggregate.Metrics(team.Metrics),
		Fingerprint:     Fingerprint(team),
	}

	slots := pitch.Build(split.Starters, resolved)
	view.Layout = make([]SlotView, 0, len(slots))
	for i := range slots {
		view.Layout = append(view.Layout, SlotView{
			Player:     playerView(&slots[i].Player, true),
			Top:        slots[i].Top,
			Left:       slots[i].Left,
			Line:       slots[i].Line,
			Goalkeeper: slots[i].Goalkeeper,
		})
	}
	return view
}

func playerViews(players []model.PlayerRecord, starter bool) []PlayerView {
	out := make([]PlayerView, 0, len(players))
	for i := range players {
		out = append(out, playerView(&players[i], starter))
	}
	return out
}

func playerView(p *model.PlayerRecord, starter bool) PlayerView {
	return PlayerView{
		ID:       identity.Resolve(p),
		Name:     p.Name,
		Position: p.Position,
		Bucket:   position.Classify(p.Position).String(),
		Number:   p.Number,
		Source:   p.Source,
		Starter:  starter,
		Minutes:  statpath.Display(p, statpath.Minutes),
		Matches:  statpath.Display(p, statpath.Matches),
		Goals:    statpath.Display(p, statpath.Goals),
		Assists:  statpath.Display(p, statpath.Assists),
		XG:       statpath.Display(p, statpath.XG),
		XA:       statpath.Display(p, statpath.XA),
	}
}

// Fingerprint hashes the team's canonical JSON encoding. Player objects
// encode with sorted keys, so equal content gives equal fingerprints.
func Fingerprint(team *model.TeamRecord) string {
	b, err := json.Marshal(team)
	if err != nil {
		// Unencodable raw values; fall back to the formatted value.
		b = []byte(fmt.Sprintf("%#v", team))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// Cache stores encoded views. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Service memoises team views by content fingerprint and formation label.
// A nil Cache disables memoisation; cache failures are logged and the view
// is recomputed.
type Service struct {
	Cache Cache
	Log   logrus.FieldLogger
}

func NewService(cache Cache, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Cache: cache, Log: log}
}

func CacheKey(team *model.TeamRecord, label string) string {
	return "teamview:" + Fingerprint(team) + ":" + formation.Normalize(label)
}

func (s *Service) TeamView(ctx context.Context, team *model.TeamRecord, label string) (*TeamView, error) {
	if s.Cache == nil {
		return BuildTeamView(team, label), nil
	}

	key := CacheKey(team, label)
	log := s.logger().WithField("key", key)

	b, ok, err := s.Cache.Get(ctx, key)
	switch {
	case err != nil:
		log.WithError(err).Warn("team view cache read failed")
	case ok:
		var view TeamView
		if err := json.Unmarshal(b, &view); err == nil {
			log.Debug("team view cache hit")
			return &view, nil
		}
		log.Warn("team view cache entry unreadable; rebuilding")
	}

	view := BuildTeamView(team, label)
	enc, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("encode team view %q: %w", team.Name, err)
	}
	if err := s.Cache.Set(ctx, key, enc); err != nil {
		log.WithError(err).Warn("team view cache write failed")
	}
	return view, nil
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// WriteTeamView stamps the view with the current time and writes it as
// indented JSON.
func WriteTeamView(path string, view *TeamView) error {
	view.GeneratedAtUTC = time.Now().UTC().Format(time.RFC3339)
	return writeJSON(path, view)
}

// IndexEntry is one line of summary/teams/index.json.
type IndexEntry struct {
	Team      string `json:"team"`
	Slug      string `json:"slug"`
	Formation string `json:"formation"`
	Starters  int    `json:"starters"`
	Bench     int    `json:"bench"`
	Players   int    `json:"players"`
}

// BuildTeamSummaries writes summary/teams/{slug}.json for every team plus an
// index under derivedRoot.
func BuildTeamSummaries(derivedRoot string, teams []model.TeamRecord, label string) error {
	index := make([]IndexEntry, 0, len(teams))
	for i := range teams {
		team := &teams[i]
		slug := model.Slug(team.Name)
		if slug == "" {
			return fmt.Errorf("team %d has no usable name", i)
		}
		view := BuildTeamView(team, label)
		if err := WriteTeamView(filepath.Join(derivedRoot, "summary", "teams", slug+".json"), view); err != nil {
			return fmt.Errorf("write summary for %q: %w", team.Name, err)
		}
		index = append(index, IndexEntry{
			Team:      team.Name,
			Slug:      slug,
			Formation: view.Formation,
			Starters:  len(view.Starters),
			Bench:     len(view.Bench),
			Players:   len(team.Players),
		})
	}
	return writeJSON(filepath.Join(derivedRoot, "summary", "teams", "index.json"), index)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
