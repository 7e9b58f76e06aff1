package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/store"
)

// DecodeTeam reads a provider squad payload: either {"team": {...},
// "players": [...]} or a bare team object. Every player is tagged remote.
func DecodeTeam(raw []byte) (*model.TeamRecord, error) {
	var wrapper struct {
		Team    json.RawMessage      `json:"team"`
		Players []model.PlayerRecord `json:"players"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("decode squad: %w", err)
	}

	var team model.TeamRecord
	if t := bytes.TrimSpace(wrapper.Team); len(t) > 0 && t[0] == '{' {
		if err := json.Unmarshal(wrapper.Team, &team); err != nil {
			return nil, fmt.Errorf("decode squad team: %w", err)
		}
		if len(wrapper.Players) > 0 {
			team.Players = wrapper.Players
		}
	} else if err := json.Unmarshal(raw, &team); err != nil {
		return nil, fmt.Errorf("decode squad: %w", err)
	}

	if team.Name == "" && len(team.Players) == 0 {
		return nil, errors.New("decode squad: no team name and no players")
	}
	for i := range team.Players {
		team.Players[i].Source = model.SourceRemote
	}
	return &team, nil
}

// SquadRelPath is where a normalised squad is cached.
func SquadRelPath(slug string) string {
	return path.Join("teams", slug, "squad.json")
}

// SaveSquad writes team to teams/{slug}/squad.json and returns the path.
func SaveSquad(st *store.JSONStore, team *model.TeamRecord) (string, error) {
	slug := model.Slug(team.Name)
	if slug == "" {
		return "", errors.New("save squad: team has no name")
	}
	b, err := json.Marshal(team)
	if err != nil {
		return "", fmt.Errorf("encode squad %q: %w", team.Name, err)
	}
	rel := SquadRelPath(slug)
	if err := st.WriteRaw(rel, b, true); err != nil {
		return "", err
	}
	return rel, nil
}

// RemoteSource lists the squads already fetched into a raw store.
type RemoteSource struct {
	Store *store.JSONStore
}

func (s RemoteSource) Teams(ctx context.Context) ([]model.TeamRecord, error) {
	rels, err := s.Store.Glob("teams/*/squad.json")
	if err != nil {
		return nil, err
	}

	teams := make([]model.TeamRecord, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := s.Store.ReadRaw(rel)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}
		team, err := DecodeTeam(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
		if team.Name == "" {
			team.Name = path.Base(path.Dir(rel))
		}
		teams = append(teams, *team)
	}
	return teams, nil
}
