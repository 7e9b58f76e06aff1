// Package players searches the players of a set of teams and ranks them by a
// single statistic.
package players

import (
	"sort"
	"strings"

	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/position"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	DefaultLeaders = 10
)

// Entry is one player as listed by Search. Age is the display form.
type Entry struct {
	ID          identity.ID  `json:"id"`
	Name        string       `json:"name"`
	Position    string       `json:"position"`
	Bucket      string       `json:"bucket"`
	Age         string       `json:"age"`
	Nationality string       `json:"nationality,omitempty"`
	Team        string       `json:"team"`
	Season      string       `json:"season,omitempty"`
	Source      model.Source `json:"source"`
}

// Detail is an Entry with every catalogued statistic in display form.
type Detail struct {
	Entry
	Stats map[statpath.Kind]string `json:"stats"`
}

// Query filters Search. Search matches a substring of the name, Team a team
// name or slug, Position a substring of the tag or the bucket name (GK, DEF,
// MID, FWD). Matching ignores case.
type Query struct {
	Search   string
	Team     string
	Position string
	Limit    int
	Offset   int
}

type Page struct {
	Players []Entry `json:"players"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Leader is one row of a ranking.
type Leader struct {
	Entry
	Stat  statpath.Kind `json:"stat"`
	Value float64       `json:"value"`
}

// Search lists the matching players of teams ordered by name, then team,
// and returns the page selected by q.Limit and q.Offset. The limit is clamped
// to [1, MaxLimit]; zero means DefaultLimit.
func Search(teams []model.TeamRecord, q Query) Page {
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	offset := max(q.Offset, 0)

	search := strings.ToLower(strings.TrimSpace(q.Search))
	tag := strings.ToUpper(strings.TrimSpace(q.Position))
	teamSlug := model.Slug(q.Team)

	matched := []Entry{}
	for ti := range teams {
		t := &teams[ti]
		if teamSlug != "" && model.Slug(t.Name) != teamSlug {
			continue
		}
		for pi := range t.Players {
			p := &t.Players[pi]
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
				continue
			}
			if tag != "" && !matchesPosition(p.Position, tag) {
				continue
			}
			matched = append(matched, entry(t, p))
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		na, nb := strings.ToLower(matched[a].Name), strings.ToLower(matched[b].Name)
		if na != nb {
			return na < nb
		}
		return matched[a].Team < matched[b].Team
	})

	page := Page{Players: []Entry{}, Total: len(matched), Limit: limit, Offset: offset}
	if offset < len(matched) {
		page.Players = matched[offset : offset+min(limit, len(matched)-offset)]
	}
	return page
}

// Find returns the first player, in team order, whose identity is id. An
// empty team matches every team.
func Find(teams []model.TeamRecord, id, team string) (*Detail, bool) {
	if id == "" {
		return nil, false
	}
	teamSlug := model.Slug(team)
	for ti := range teams {
		t := &teams[ti]
		if teamSlug != "" && model.Slug(t.Name) != teamSlug {
			continue
		}
		for pi := range t.Players {
			p := &t.Players[pi]
			if string(identity.Resolve(p)) != id {
				continue
			}
			d := &Detail{Entry: entry(t, p), Stats: make(map[statpath.Kind]string, len(statpath.Catalog))}
			for kind := range statpath.Catalog {
				d.Stats[kind] = statpath.Display(p, kind)
			}
			return d, true
		}
	}
	return nil, false
}

// Leaders ranks the players of teams by kind, highest first, keeping roster
// order among ties. Players without a value for kind are left out.
func Leaders(teams []model.TeamRecord, kind statpath.Kind, limit int) []Leader {
	if limit <= 0 {
		limit = DefaultLeaders
	}
	out := []Leader{}
	for ti := range teams {
		t := &teams[ti]
		for pi := range t.Players {
			p := &t.Players[pi]
			v, ok := statpath.Lookup(p, kind)
			if !ok {
				continue
			}
			out = append(out, Leader{Entry: entry(t, p), Stat: kind, Value: v})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Value > out[b].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matchesPosition(raw, tag string) bool {
	if strings.Contains(strings.ToUpper(raw), tag) {
		return true
	}
	return position.Classify(raw).String() == tag
}

func entry(t *model.TeamRecord, p *model.PlayerRecord) Entry {
	e := Entry{
		ID:       identity.Resolve(p),
		Name:     p.Name,
		Position: p.Position,
		Bucket:   position.Classify(p.Position).String(),
		Age:      statpath.Display(p, statpath.Age),
		Team:     t.Name,
		Season:   t.Season,
		Source:   p.Source,
	}
	if e.Source == "" {
		e.Source = model.SourceRemote
	}
	if nat, ok := p.Raw["nationality"].(string); ok {
		e.Nationality = strings.TrimSpace(nat)
	}
	return e
}
