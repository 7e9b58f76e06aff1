// Package aggregate sums per-player statistics over a roster and formats the
// team's own season metrics. The two are never derived from each other.
package aggregate

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/position"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

// NoAgeData labels an average age computed over no players.
const NoAgeData = "no data"

type Totals struct {
	Players         int      `json:"players"`
	Goals           float64  `json:"goals"`
	Assists         float64  `json:"assists"`
	XG              float64  `json:"xg"`
	XA              float64  `json:"xa"`
	Minutes         float64  `json:"minutes"`
	Matches         float64  `json:"matches"`
	Shots           float64  `json:"shots"`
	AverageAge      *float64 `json:"average_age"`
	AverageAgeLabel string   `json:"average_age_label"`
}

// Roster sums every player's statistics in lenient mode. The average age
// only counts players with a numeric age.
func Roster(players []model.PlayerRecord) Totals {
	t := Totals{Players: len(players)}
	var ageSum float64
	var ageCount int
	for i := range players {
		p := &players[i]
		t.Goals += statpath.Lenient(p, statpath.Goals)
		t.Assists += statpath.Lenient(p, statpath.Assists)
		t.XG += statpath.Lenient(p, statpath.XG)
		t.XA += statpath.Lenient(p, statpath.XA)
		t.Minutes += statpath.Lenient(p, statpath.Minutes)
		t.Matches += statpath.Lenient(p, statpath.Matches)
		t.Shots += statpath.Lenient(p, statpath.Shots)
		if age, ok := statpath.Lookup(p, statpath.Age); ok {
			ageSum += age
			ageCount++
		}
	}

	// Expected-value sums are kept to two decimals.
	t.XG = round(t.XG, 2)
	t.XA = round(t.XA, 2)

	if ageCount == 0 {
		t.AverageAgeLabel = NoAgeData
		return t
	}
	avg := round(ageSum/float64(ageCount), 1)
	t.AverageAge = &avg
	t.AverageAgeLabel = strconv.FormatFloat(avg, 'f', 1, 64)
	return t
}

// Metric is one team-level figure: Value is set when the source value is
// numeric, Display always holds something presentable.
type Metric struct {
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
}

type MetricsView struct {
	Possession Metric `json:"possession"`
	Goals      Metric `json:"goals"`
	XG         Metric `json:"xg"`
	XA         Metric `json:"xa"`
}

// Metrics surfaces the team's season metrics as delivered. Numeric values,
// locale strings included, are rounded to one decimal; possession is shown
// as a percentage.
func Metrics(m *model.TeamMetrics) MetricsView {
	if m == nil {
		m = &model.TeamMetrics{}
	}
	return MetricsView{
		Possession: metric(m.Possession, "%"),
		Goals:      metric(m.Goals, ""),
		XG:         metric(m.XG, ""),
		XA:         metric(m.XA, ""),
	}
}

func metric(v any, suffix string) Metric {
	if v == nil {
		return Metric{Display: statpath.Placeholder}
	}
	in := v
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return Metric{Display: statpath.Placeholder}
		}
		if suffix != "" {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
		in = s
	}
	f, ok := statpath.Number(in)
	if !ok {
		if s, isString := v.(string); isString {
			return Metric{Display: strings.TrimSpace(s)}
		}
		return Metric{Display: statpath.Placeholder}
	}
	r := round(f, 1)
	return Metric{Value: &r, Display: strconv.FormatFloat(r, 'f', -1, 64) + suffix}
}

// PlayerLine is a player's row in a roster report, with statistics in
// display form.
type PlayerLine struct {
	ID       identity.ID       `json:"id"`
	Name     string            `json:"name"`
	Position string            `json:"position"`
	Bucket   string            `json:"bucket"`
	Stats    map[string]string `json:"stats"`
}

type Report struct {
	Team           string       `json:"team"`
	Season         string       `json:"season,omitempty"`
	GeneratedAtUTC string       `json:"generated_at_utc"`
	Players        []PlayerLine `json:"players"`
	Totals         Totals       `json:"totals"`
	Metrics        MetricsView  `json:"metrics"`
}

func BuildReport(team *model.TeamRecord) *Report {
	lines := make([]PlayerLine, 0, len(team.Players))
	for i := range team.Players {
		p := &team.Players[i]
		stats := make(map[string]string, len(statpath.Kinds))
		for _, kind := range statpath.Kinds {
			stats[string(kind)] = statpath.Display(p, kind)
		}
		lines = append(lines, PlayerLine{
			ID:       identity.Resolve(p),
			Name:     p.Name,
			Position: p.Position,
			Bucket:   position.Classify(p.Position).String(),
			Stats:    stats,
		})
	}

	return &Report{
		Team:           team.Name,
		Season:         team.Season,
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339),
		Players:        lines,
		Totals:         Roster(team.Players),
		Metrics:        Metrics(team.Metrics),
	}
}

func WriteReport(path string, report *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(f*p) / p
	if r == 0 {
		return 0
	}
	return r
}
