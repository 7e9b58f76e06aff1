package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/players"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

type SearchPlayersArgs struct {
	Search   string `json:"search,omitempty" jsonschema:"Substring of the player name"`
	Team     string `json:"team,omitempty" jsonschema:"Team name or slug"`
	Position string `json:"position,omitempty" jsonschema:"Position tag substring or bucket (GK, DEF, MID, FWD)"`
	Source   string `json:"source,omitempty" jsonschema:"local|remote|all (default all)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Page size, 1-200 (default 50)"`
	Offset   int    `json:"offset,omitempty" jsonschema:"Players to skip"`
}

type TopPlayersArgs struct {
	Stat   string `json:"stat,omitempty" jsonschema:"goals|assists|minutes|matches|xg|xa|shots|age (default goals)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Number of players (default 10)"`
	Source string `json:"source,omitempty" jsonschema:"local|remote|all (default all)"`
}

type TopPlayersOutput struct {
	Stat    statpath.Kind    `json:"stat"`
	Players []players.Leader `json:"players"`
}

func addPlayerTools(server *mcp.Server, registry *[]toolInfo, deps ServerDeps) {
	addTool(server, registry, &mcp.Tool{
		Name:        "search_players",
		Description: "Search players of local and fetched teams by name, team and position, ordered by name",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchPlayersArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(searchPlayers(ctx, deps, args))
	})

	addTool(server, registry, &mcp.Tool{
		Name:        "top_players",
		Description: "Top scorers, assisters or any other statistic across stored teams",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args TopPlayersArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(topPlayers(ctx, deps, args))
	})
}

func searchPlayers(ctx context.Context, deps ServerDeps, args SearchPlayersArgs) (players.Page, error) {
	teams, err := loadTeams(ctx, deps, args.Source)
	if err != nil {
		return players.Page{}, err
	}
	return players.Search(teams, players.Query{
		Search:   args.Search,
		Team:     args.Team,
		Position: args.Position,
		Limit:    args.Limit,
		Offset:   args.Offset,
	}), nil
}

func topPlayers(ctx context.Context, deps ServerDeps, args TopPlayersArgs) (TopPlayersOutput, error) {
	kind := statpath.Goals
	if s := strings.ToLower(strings.TrimSpace(args.Stat)); s != "" {
		kind = statpath.Kind(s)
	}
	if _, ok := statpath.Catalog[kind]; !ok {
		return TopPlayersOutput{}, fmt.Errorf("unknown stat %q", args.Stat)
	}
	teams, err := loadTeams(ctx, deps, args.Source)
	if err != nil {
		return TopPlayersOutput{}, err
	}
	return TopPlayersOutput{Stat: kind, Players: players.Leaders(teams, kind, args.Limit)}, nil
}

// loadTeams returns local teams followed by fetched ones.
func loadTeams(ctx context.Context, deps ServerDeps, source string) ([]model.TeamRecord, error) {
	source, err := normalizeSource(source)
	if err != nil {
		return nil, err
	}
	var teams []model.TeamRecord
	if source != "remote" {
		local, err := deps.Repo.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load local teams: %w", err)
		}
		teams = append(teams, local...)
	}
	if source != "local" && deps.Remote != nil {
		remote, err := deps.Remote.Teams(ctx)
		if err != nil {
			return nil, fmt.Errorf("load remote teams: %w", err)
		}
		teams = append(teams, remote...)
	}
	return teams, nil
}
