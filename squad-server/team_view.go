package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/afpthedev/super-duper-winner/internal/api"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/store"
	"github.com/afpthedev/super-duper-winner/internal/summary"
)

// TeamViewArgs are the input arguments for the team_view tool.
type TeamViewArgs struct {
	Team      string `json:"team" jsonschema:"Team name or slug (required)"`
	Source    string `json:"source,omitempty" jsonschema:"local|remote|all (default all, local first)"`
	Formation string `json:"formation,omitempty" jsonschema:"Formation override, e.g. 3-5-2"`
}

type ListTeamsArgs struct {
	Source string `json:"source,omitempty" jsonschema:"local|remote|all (default all)"`
}

type SaveTeamArgs struct {
	Team map[string]any `json:"team" jsonschema:"Team object with name and players (required)"`
}

// SaveTeamOutput is the output of the local_team_save tool.
type SaveTeamOutput struct {
	Team    string `json:"team"`
	Created bool   `json:"created"`
	Players int    `json:"players"`
	// UUIDs assigned to players that arrived without an identifier.
	Assigned []string `json:"assigned"`
}

func addTeamTools(server *mcp.Server, registry *[]toolInfo, deps ServerDeps) {
	addTool(server, registry, &mcp.Tool{
		Name:        "team_view",
		Description: "Starting eleven, bench, formation, pitch layout and totals for a stored team",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args TeamViewArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildTeamView(ctx, deps, args))
	})

	addTool(server, registry, &mcp.Tool{
		Name:        "list_teams",
		Description: "List local and fetched teams with player counts",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListTeamsArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildTeamList(ctx, deps, args))
	})

	addTool(server, registry, &mcp.Tool{
		Name:        "local_team_save",
		Description: "Create or replace a locally-authored team",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SaveTeamArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(saveLocalTeam(ctx, deps, args))
	})
}

func buildTeamView(ctx context.Context, deps ServerDeps, args TeamViewArgs) (*summary.TeamView, error) {
	name := strings.TrimSpace(args.Team)
	if name == "" {
		return nil, fmt.Errorf("team is required")
	}
	source, err := normalizeSource(args.Source)
	if err != nil {
		return nil, err
	}

	team, err := findTeam(ctx, deps, name, source)
	if err != nil {
		return nil, err
	}
	return deps.Views.TeamView(ctx, team, args.Formation)
}

func buildTeamList(ctx context.Context, deps ServerDeps, args ListTeamsArgs) ([]api.TeamListItem, error) {
	source, err := normalizeSource(args.Source)
	if err != nil {
		return nil, err
	}

	out := []api.TeamListItem{}
	add := func(teams []model.TeamRecord, src model.Source) {
		for _, t := range teams {
			out = append(out, api.TeamListItem{
				Name:        t.Name,
				League:      t.League,
				Season:      t.Season,
				Source:      src,
				PlayerCount: len(t.Players),
			})
		}
	}

	if source != "remote" {
		teams, err := deps.Repo.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load local teams: %w", err)
		}
		add(teams, model.SourceLocal)
	}
	if source != "local" && deps.Remote != nil {
		teams, err := deps.Remote.Teams(ctx)
		if err != nil {
			return nil, fmt.Errorf("load remote teams: %w", err)
		}
		add(teams, model.SourceRemote)
	}
	return out, nil
}

func saveLocalTeam(ctx context.Context, deps ServerDeps, args SaveTeamArgs) (SaveTeamOutput, error) {
	if args.Team == nil {
		return SaveTeamOutput{}, fmt.Errorf("team is required")
	}
	b, err := json.Marshal(args.Team)
	if err != nil {
		return SaveTeamOutput{}, err
	}
	var team model.TeamRecord
	if err := json.Unmarshal(b, &team); err != nil {
		return SaveTeamOutput{}, fmt.Errorf("decode team: %w", err)
	}
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		return SaveTeamOutput{}, fmt.Errorf("team name is required")
	}

	before := make([]string, len(team.Players))
	for i := range team.Players {
		before[i] = team.Players[i].UUID
	}
	api.PrepareLocalTeam(&team)

	created, err := deps.Repo.Upsert(ctx, team)
	if err != nil {
		return SaveTeamOutput{}, fmt.Errorf("save team: %w", err)
	}

	out := SaveTeamOutput{Team: team.Name, Created: created, Players: len(team.Players), Assigned: []string{}}
	for i := range team.Players {
		if team.Players[i].UUID != before[i] {
			out.Assigned = append(out.Assigned, team.Players[i].UUID)
		}
	}
	if deps.Log != nil {
		deps.Log.WithFields(logrus.Fields{"team": team.Name, "created": created, "assigned": len(out.Assigned)}).Info("local team saved")
	}
	return out, nil
}

// findTeam looks in local teams first, then in fetched squads.
func findTeam(ctx context.Context, deps ServerDeps, name, source string) (*model.TeamRecord, error) {
	if source != "remote" {
		teams, err := deps.Repo.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load local teams: %w", err)
		}
		if i := store.LookupTeam(teams, name); i >= 0 {
			return &teams[i], nil
		}
	}
	if source != "local" && deps.Remote != nil {
		teams, err := deps.Remote.Teams(ctx)
		if err != nil {
			return nil, fmt.Errorf("load remote teams: %w", err)
		}
		if i := store.LookupTeam(teams, name); i >= 0 {
			return &teams[i], nil
		}
	}
	return nil, fmt.Errorf("team not found: %s", name)
}

func normalizeSource(s string) (string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "all":
		return "all", nil
	case "local", "remote":
		return s, nil
	default:
		return "", fmt.Errorf("source must be local, remote or all, got %q", s)
	}
}
