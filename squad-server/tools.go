package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afpthedev/super-duper-winner/internal/aggregate"
	"github.com/afpthedev/super-duper-winner/internal/formation"
	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/pitch"
	"github.com/afpthedev/super-duper-winner/internal/position"
	"github.com/afpthedev/super-duper-winner/internal/roster"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
	"github.com/afpthedev/super-duper-winner/internal/summary"
)

type PlayerArgs struct {
	Player map[string]any `json:"player" jsonschema:"Player object as delivered by the source (required)"`
}

type StatArgs struct {
	Player map[string]any `json:"player" jsonschema:"Player object as delivered by the source (required)"`
	Stat   string         `json:"stat" jsonschema:"minutes|matches|goals|assists|xg|xa|shots|age (required)"`
	Mode   string         `json:"mode,omitempty" jsonschema:"lenient|display (default lenient)"`
}

type TagArgs struct {
	Tag string `json:"tag" jsonschema:"Position tag, e.g. CB, Stoper, Portero"`
}

type FormationArgs struct {
	Label string `json:"label" jsonschema:"Formation label, e.g. 4-2-3-1"`
}

type RosterArgs struct {
	Players []map[string]any `json:"players" jsonschema:"Roster in source order"`
}

type LayoutArgs struct {
	Players   []map[string]any `json:"players" jsonschema:"Roster in source order"`
	Formation string           `json:"formation,omitempty" jsonschema:"Formation label (default: inferred from the starters)"`
}

type AggregateArgs struct {
	Players []map[string]any   `json:"players" jsonschema:"Roster in source order"`
	Metrics *model.TeamMetrics `json:"metrics,omitempty" jsonschema:"Team season metrics"`
}

type IdentityOutput struct {
	ID       identity.ID `json:"id"`
	Defined  bool        `json:"defined"`
	Explicit bool        `json:"explicit"`
}

type StatOutput struct {
	Stat  statpath.Kind `json:"stat"`
	Mode  string        `json:"mode"`
	Value any           `json:"value"`
	Path  string        `json:"path,omitempty"`
}

type LayoutOutput struct {
	Formation       string       `json:"formation"`
	FormationSource string       `json:"formation_source"`
	Slots           []pitch.Slot `json:"slots"`
}

type AggregateOutput struct {
	Totals  aggregate.Totals      `json:"totals"`
	Metrics aggregate.MetricsView `json:"metrics"`
}

func newMCPServer(deps ServerDeps) (*mcp.Server, []toolInfo) {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "squad-mcp",
			Version: "0.1.0",
		},
		nil,
	)

	registry := make([]toolInfo, 0, 16)

	addTool(server, &registry, &mcp.Tool{
		Name:        "resolve_identity",
		Description: "Stable identifier of a player record (id, secondary ids, slug, uuid, then name|position)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args PlayerArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildIdentity(args))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "resolve_stat",
		Description: "Resolve one statistic of a player across the known field shapes",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args StatArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildStat(args))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "classify_position",
		Description: "Bucket a free-text position tag into GK/DEF/MID/FWD",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args TagArgs) (*mcp.CallToolResult, any, error) {
		b := position.Classify(args.Tag)
		return toolResult(map[string]any{"tag": args.Tag, "bucket": b.String(), "code": int(b)}, nil)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "parse_formation",
		Description: "Parse a formation label into line sizes (default 4-3-3)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FormationArgs) (*mcp.CallToolResult, any, error) {
		normalized := formation.Normalize(args.Label)
		return toolResult(map[string]any{
			"label":      args.Label,
			"lines":      formation.Parse(args.Label),
			"normalized": normalized,
			"default":    normalized == "",
		}, nil)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "split_roster",
		Description: "Split a roster into a starting eleven and a bench",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RosterArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildSplit(args))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "infer_formation",
		Description: "Infer a formation label from the starters of a roster",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args RosterArgs) (*mcp.CallToolResult, any, error) {
		players, err := decodePlayers(args.Players)
		if err != nil {
			return toolError(err), nil, nil
		}
		split := roster.Split(players)
		return toolResult(map[string]any{"formation": formation.Infer(split.Starters), "starters": len(split.Starters)}, nil)
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "pitch_layout",
		Description: "Pitch coordinates (percent) for the starting eleven of a roster",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args LayoutArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildLayout(args))
	})

	addTool(server, &registry, &mcp.Tool{
		Name:        "aggregate_roster",
		Description: "Roster totals, average age and team metrics",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AggregateArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(buildAggregate(args))
	})

	addTeamTools(server, &registry, deps)
	addPlayerTools(server, &registry, deps)

	return server, registry
}

// decodePlayers re-decodes tool arguments through PlayerRecord's own decoder
// so numbers keep the same shape as records read from disk.
func decodePlayers(in []map[string]any) ([]model.PlayerRecord, error) {
	if len(in) == 0 {
		return []model.PlayerRecord{}, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out []model.PlayerRecord
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	return out, nil
}

func decodePlayer(in map[string]any) (*model.PlayerRecord, error) {
	if in == nil {
		return nil, fmt.Errorf("player is required")
	}
	players, err := decodePlayers([]map[string]any{in})
	if err != nil {
		return nil, err
	}
	return &players[0], nil
}

func buildIdentity(args PlayerArgs) (IdentityOutput, error) {
	p, err := decodePlayer(args.Player)
	if err != nil {
		return IdentityOutput{}, err
	}
	id := identity.Resolve(p)
	return IdentityOutput{ID: id, Defined: id.Defined(), Explicit: identity.HasExplicit(p)}, nil
}

func buildStat(args StatArgs) (StatOutput, error) {
	kind := statpath.Kind(strings.ToLower(strings.TrimSpace(args.Stat)))
	if _, ok := statpath.Catalog[kind]; !ok {
		return StatOutput{}, fmt.Errorf("unknown stat %q", args.Stat)
	}
	p, err := decodePlayer(args.Player)
	if err != nil {
		return StatOutput{}, err
	}

	mode := statpath.ParseMode(args.Mode)
	out := StatOutput{Stat: kind, Mode: "lenient", Value: statpath.Resolve(p, kind, mode)}
	if mode == statpath.ModeDisplay {
		out.Mode = "display"
	}
	if _, pt, ok := statpath.FirstWithPath(p, statpath.Catalog[kind]); ok {
		out.Path = pt.Name
	}
	return out, nil
}

func buildSplit(args RosterArgs) (roster.Result, error) {
	players, err := decodePlayers(args.Players)
	if err != nil {
		return roster.Result{}, err
	}
	return roster.Split(players), nil
}

func buildLayout(args LayoutArgs) (LayoutOutput, error) {
	players, err := decodePlayers(args.Players)
	if err != nil {
		return LayoutOutput{}, err
	}
	split := roster.Split(players)
	label, source := summary.ResolveFormation(&model.TeamRecord{}, args.Formation, split.Starters)
	return LayoutOutput{
		Formation:       label,
		FormationSource: source,
		Slots:           pitch.Build(split.Starters, label),
	}, nil
}

func buildAggregate(args AggregateArgs) (AggregateOutput, error) {
	players, err := decodePlayers(args.Players)
	if err != nil {
		return AggregateOutput{}, err
	}
	return AggregateOutput{
		Totals:  aggregate.Roster(players),
		Metrics: aggregate.Metrics(args.Metrics),
	}, nil
}
