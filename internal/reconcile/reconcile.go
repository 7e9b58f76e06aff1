// Package reconcile compares a locally-authored roster with the fetched
// squad of the same team.
package reconcile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/position"
)

// How a local player was paired with a remote one.
const (
	MatchedByID   = "id"
	MatchedByName = "name"
)

type Player struct {
	ID       identity.ID `json:"id"`
	Name     string      `json:"name"`
	Position string      `json:"position"`
}

type Match struct {
	Name           string      `json:"name"`
	LocalID        identity.ID `json:"local_id"`
	RemoteID       identity.ID `json:"remote_id"`
	MatchedBy      string      `json:"matched_by"`
	LocalBucket    string      `json:"local_bucket"`
	RemoteBucket   string      `json:"remote_bucket"`
	BucketMismatch bool        `json:"bucket_mismatch"`
}

type Report struct {
	Team           string   `json:"team"`
	GeneratedAtUTC string   `json:"generated_at_utc"`
	Matched        []Match  `json:"matched"`
	LocalOnly      []Player `json:"local_only"`
	RemoteOnly     []Player `json:"remote_only"`
}

// BuildReport pairs every local player with at most one remote player: by
// identity when both sides resolve to the same defined id, else by name
// slug. Unpaired players are listed in their roster order.
func BuildReport(local, remote *model.TeamRecord) *Report {
	byID := make(map[identity.ID][]int)
	byName := make(map[string][]int)
	for i := range remote.Players {
		p := &remote.Players[i]
		if id := identity.Resolve(p); id.Defined() {
			byID[id] = append(byID[id], i)
		}
		if slug := model.Slug(p.Name); slug != "" {
			byName[slug] = append(byName[slug], i)
		}
	}

	used := make([]bool, len(remote.Players))
	take := func(candidates []int) int {
		for _, i := range candidates {
			if !used[i] {
				used[i] = true
				return i
			}
		}
		return -1
	}

	report := &Report{
		Team:           local.Name,
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339),
		Matched:        make([]Match, 0),
		LocalOnly:      make([]Player, 0),
		RemoteOnly:     make([]Player, 0),
	}

	for i := range local.Players {
		lp := &local.Players[i]
		lid := identity.Resolve(lp)

		by := MatchedByID
		j := -1
		if lid.Defined() {
			j = take(byID[lid])
		}
		if j < 0 {
			by = MatchedByName
			j = take(byName[model.Slug(lp.Name)])
		}
		if j < 0 {
			report.LocalOnly = append(report.LocalOnly, player(lp))
			continue
		}

		rp := &remote.Players[j]
		lb, rb := position.Classify(lp.Position), position.Classify(rp.Position)
		report.Matched = append(report.Matched, Match{
			Name:           lp.Name,
			LocalID:        lid,
			RemoteID:       identity.Resolve(rp),
			MatchedBy:      by,
			LocalBucket:    lb.String(),
			RemoteBucket:   rb.String(),
			BucketMismatch: lb != rb,
		})
	}

	for i := range remote.Players {
		if !used[i] {
			report.RemoteOnly = append(report.RemoteOnly, player(&remote.Players[i]))
		}
	}
	return report
}

func player(p *model.PlayerRecord) Player {
	return Player{ID: identity.Resolve(p), Name: p.Name, Position: p.Position}
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
