package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/afpthedev/super-duper-winner/internal/cache"
	"github.com/afpthedev/super-duper-winner/internal/config"
	"github.com/afpthedev/super-duper-winner/internal/fetch"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
	"github.com/afpthedev/super-duper-winner/internal/store"
	"github.com/afpthedev/super-duper-winner/internal/summary"
)

// ---- shared test helpers ----

// tmpDeps creates a temp raw root with JSON-file local teams and an empty
// set of fetched squads.
func tmpDeps(t *testing.T) (*store.JSONStore, ServerDeps) {
	t.Helper()
	st := store.NewJSONStore(t.TempDir())
	log, _ := logtest.NewNullLogger()
	return st, ServerDeps{
		Repo:   store.NewFileRepository(st),
		Remote: fetch.RemoteSource{Store: st},
		Views:  summary.NewService(cache.NewMemory(0), log),
		Log:    log,
	}
}

// writeSquad stores a fetched squad the way cmd/dev does.
func writeSquad(t *testing.T, st *store.JSONStore, raw string) {
	t.Helper()
	team, err := fetch.DecodeTeam([]byte(raw))
	if err != nil {
		t.Fatalf("decode squad: %v", err)
	}
	if _, err := fetch.SaveSquad(st, team); err != nil {
		t.Fatalf("save squad: %v", err)
	}
}

const arsenalSquad = `{"name": "Arsenal", "league": "Premier League", "preferred_formation": "4-2-3-1", "players": [
	{"id": 1, "name": "Raya", "position": "GK", "minutes": 3420, "age": "29-100"},
	{"id": 2, "name": "White", "position": "RB", "minutes": 2800},
	{"id": 3, "name": "Saliba", "position": "CB", "minutes": 3300},
	{"id": 4, "name": "Gabriel", "position": "CB", "minutes": 3100},
	{"id": 5, "name": "Calafiori", "position": "LB", "minutes": 1900},
	{"id": 6, "name": "Rice", "position": "DM", "minutes": 3200, "goals": 5},
	{"id": 7, "name": "Partey", "position": "CM", "minutes": 2500},
	{"id": 8, "name": "Odegaard", "position": "AM", "minutes": 2900, "goals": 8},
	{"id": 9, "name": "Saka", "position": "RW", "minutes": 2700, "goals": 12, "xg": "10,4"},
	{"id": 10, "name": "Martinelli", "position": "LW", "minutes": 2400, "goals": 6},
	{"id": 11, "name": "Havertz", "position": "ST", "minutes": 2600, "goals": 9},
	{"id": 12, "name": "Trossard", "position": "FW", "minutes": 1500, "goals": 4},
	{"id": 13, "name": "Jorginho", "position": "DM", "minutes": 900}
], "metrics": {"possession": "57,2%"}}`

func playerMaps(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("unmarshal players: %v", err)
	}
	return out
}

// ---- engine tools ----

func TestBuildIdentity(t *testing.T) {
	t.Run("ExplicitID", func(t *testing.T) {
		out, err := buildIdentity(PlayerArgs{Player: map[string]any{"id": 7.0, "name": "Saka"}})
		if err != nil {
			t.Fatal(err)
		}
		if out.ID != "7" || !out.Defined || !out.Explicit {
			t.Errorf("out=%+v want explicit id 7", out)
		}
	})

	t.Run("CompositeFallback", func(t *testing.T) {
		out, err := buildIdentity(PlayerArgs{Player: map[string]any{"name": "Ali", "position": "KL"}})
		if err != nil {
			t.Fatal(err)
		}
		if out.ID != "Ali|KL" || out.Explicit {
			t.Errorf("out=%+v want composite Ali|KL", out)
		}
	})

	t.Run("MissingPlayer", func(t *testing.T) {
		if _, err := buildIdentity(PlayerArgs{}); err == nil {
			t.Fatal("expected error without a player")
		}
	})
}

func TestBuildStat(t *testing.T) {
	player := map[string]any{"Min": "1.234", "xG": "2,456"}

	t.Run("LenientWithPath", func(t *testing.T) {
		out, err := buildStat(StatArgs{Player: player, Stat: "XG"})
		if err != nil {
			t.Fatal(err)
		}
		if out.Value != 2.456 || out.Path != "raw.xG" || out.Mode != "lenient" {
			t.Errorf("out=%+v", out)
		}
	})

	t.Run("Display", func(t *testing.T) {
		out, err := buildStat(StatArgs{Player: player, Stat: "assists", Mode: "display"})
		if err != nil {
			t.Fatal(err)
		}
		if out.Value != statpath.Placeholder || out.Path != "" {
			t.Errorf("out=%+v want placeholder without path", out)
		}
	})

	t.Run("UnknownStat", func(t *testing.T) {
		if _, err := buildStat(StatArgs{Player: player, Stat: "tackles"}); err == nil {
			t.Fatal("expected error for unknown stat")
		}
	})
}

func TestBuildSplitAndLayout(t *testing.T) {
	var squad struct {
		Players json.RawMessage `json:"players"`
	}
	if err := json.Unmarshal([]byte(arsenalSquad), &squad); err != nil {
		t.Fatal(err)
	}
	players := playerMaps(t, string(squad.Players))

	t.Run("SplitsByMinutes", func(t *testing.T) {
		out, err := buildSplit(RosterArgs{Players: players})
		if err != nil {
			t.Fatal(err)
		}
		if len(out.Starters) != 11 || len(out.Bench) != 2 {
			t.Fatalf("starters=%d bench=%d want 11/2", len(out.Starters), len(out.Bench))
		}
		if out.Bench[0].Name != "Trossard" || out.Bench[1].Name != "Jorginho" {
			t.Errorf("bench=%s,%s want Trossard,Jorginho", out.Bench[0].Name, out.Bench[1].Name)
		}
	})

	t.Run("LayoutInfersWithoutLabel", func(t *testing.T) {
		out, err := buildLayout(LayoutArgs{Players: players})
		if err != nil {
			t.Fatal(err)
		}
		if out.FormationSource != summary.FormationInferred || out.Formation != "4-3-3" {
			t.Errorf("formation=%s (%s) want inferred 4-3-3", out.Formation, out.FormationSource)
		}
		if len(out.Slots) != 11 || !out.Slots[10].Goalkeeper {
			t.Errorf("slots=%d, last goalkeeper=%v", len(out.Slots), out.Slots[len(out.Slots)-1].Goalkeeper)
		}
	})

	t.Run("LayoutExplicitLabel", func(t *testing.T) {
		out, err := buildLayout(LayoutArgs{Players: players, Formation: "3 5 2"})
		if err != nil {
			t.Fatal(err)
		}
		if out.Formation != "3-5-2" || out.FormationSource != summary.FormationExplicit {
			t.Errorf("formation=%s (%s) want explicit 3-5-2", out.Formation, out.FormationSource)
		}
	})

	t.Run("LayoutHugeLineSize", func(t *testing.T) {
		out, err := buildLayout(LayoutArgs{Players: players, Formation: "1-9223372036854775807-1"})
		if err != nil {
			t.Fatal(err)
		}
		if len(out.Slots) != 11 || !out.Slots[10].Goalkeeper {
			t.Errorf("slots=%d, want 11 with the goalkeeper last", len(out.Slots))
		}
	})

	t.Run("EmptyRoster", func(t *testing.T) {
		out, err := buildLayout(LayoutArgs{})
		if err != nil {
			t.Fatal(err)
		}
		if out.Slots == nil || len(out.Slots) != 0 {
			t.Errorf("slots=%v want empty", out.Slots)
		}
	})
}

func TestBuildAggregate(t *testing.T) {
	players := playerMaps(t, `[
		{"name": "A", "goals": "2", "xg": 0.333, "age": 24},
		{"name": "B", "goals": 1, "xg": "0,5", "age": "27-200"},
		{"name": "C", "age": "unknown"}
	]`)
	out, err := buildAggregate(AggregateArgs{Players: players, Metrics: &model.TeamMetrics{Possession: 61.25}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Totals.Goals != 3 || out.Totals.XG != 0.83 {
		t.Errorf("goals=%v xg=%v want 3 and 0.83", out.Totals.Goals, out.Totals.XG)
	}
	if out.Totals.AverageAge == nil || *out.Totals.AverageAge != 25.5 {
		t.Errorf("average age=%v want 25.5", out.Totals.AverageAge)
	}
	if out.Metrics.Possession.Display != "61.3%" {
		t.Errorf("possession=%q want 61.3%%", out.Metrics.Possession.Display)
	}
}

// ---- team tools ----

func TestTeamTools(t *testing.T) {
	ctx := context.Background()

	t.Run("ViewOfFetchedSquad", func(t *testing.T) {
		st, deps := tmpDeps(t)
		writeSquad(t, st, arsenalSquad)

		view, err := buildTeamView(ctx, deps, TeamViewArgs{Team: "arsenal"})
		if err != nil {
			t.Fatal(err)
		}
		if view.Formation != "4-2-3-1" || view.FormationSource != summary.FormationPreferred {
			t.Errorf("formation=%s (%s) want preferred 4-2-3-1", view.Formation, view.FormationSource)
		}
		if len(view.Starters) != 11 || len(view.Bench) != 2 {
			t.Errorf("starters=%d bench=%d", len(view.Starters), len(view.Bench))
		}
		if view.Metrics.Possession.Display != "57.2%" {
			t.Errorf("possession=%q", view.Metrics.Possession.Display)
		}
	})

	t.Run("LocalWinsOverRemote", func(t *testing.T) {
		st, deps := tmpDeps(t)
		writeSquad(t, st, arsenalSquad)
		_, err := saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{
			"name":    "Arsenal",
			"players": []any{map[string]any{"name": "Me", "position": "ST"}},
		}})
		if err != nil {
			t.Fatal(err)
		}

		view, err := buildTeamView(ctx, deps, TeamViewArgs{Team: "Arsenal"})
		if err != nil {
			t.Fatal(err)
		}
		if len(view.Starters) != 1 {
			t.Errorf("starters=%d want the local roster of 1", len(view.Starters))
		}

		view, err = buildTeamView(ctx, deps, TeamViewArgs{Team: "Arsenal", Source: "remote"})
		if err != nil {
			t.Fatal(err)
		}
		if len(view.Starters) != 11 {
			t.Errorf("starters=%d want the fetched squad", len(view.Starters))
		}
	})

	t.Run("SaveAssignsUUIDs", func(t *testing.T) {
		_, deps := tmpDeps(t)
		out, err := saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{
			"name": "Kadikoy FC",
			"players": []any{
				map[string]any{"name": "Ali", "position": "KL"},
				map[string]any{"slug": "veli", "name": "Veli", "position": "Stoper"},
			},
		}})
		if err != nil {
			t.Fatal(err)
		}
		if !out.Created || len(out.Assigned) != 1 {
			t.Errorf("out=%+v want created with one assigned uuid", out)
		}

		out, err = saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{"name": "KADIKOY FC", "players": []any{}}})
		if err != nil {
			t.Fatal(err)
		}
		if out.Created {
			t.Error("second save reported created=true, want a replace")
		}
	})

	t.Run("ListTeams", func(t *testing.T) {
		st, deps := tmpDeps(t)
		writeSquad(t, st, arsenalSquad)
		if _, err := saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{"name": "Kadikoy FC"}}); err != nil {
			t.Fatal(err)
		}

		all, err := buildTeamList(ctx, deps, ListTeamsArgs{})
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all[0].Source != model.SourceLocal || all[1].PlayerCount != 13 {
			t.Errorf("list=%+v", all)
		}
		local, err := buildTeamList(ctx, deps, ListTeamsArgs{Source: "LOCAL"})
		if err != nil {
			t.Fatal(err)
		}
		if len(local) != 1 {
			t.Errorf("local=%d want 1", len(local))
		}
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		_, deps := tmpDeps(t)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{"name": fmt.Sprintf("Team %d", i)}}); err != nil {
					t.Errorf("save %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		local, err := buildTeamList(ctx, deps, ListTeamsArgs{Source: "local"})
		if err != nil {
			t.Fatal(err)
		}
		if len(local) != 20 {
			t.Errorf("local=%d want 20", len(local))
		}
	})

	t.Run("Errors", func(t *testing.T) {
		_, deps := tmpDeps(t)
		if _, err := buildTeamView(ctx, deps, TeamViewArgs{}); err == nil || err.Error() != "team is required" {
			t.Errorf("expected team is required, got %v", err)
		}
		if _, err := buildTeamView(ctx, deps, TeamViewArgs{Team: "nobody"}); err == nil {
			t.Error("expected error for unknown team")
		}
		if _, err := buildTeamList(ctx, deps, ListTeamsArgs{Source: "moon"}); err == nil {
			t.Error("expected error for unknown source")
		}
		if _, err := saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{"players": []any{}}}); err == nil {
			t.Error("expected error for a team without a name")
		}
	})
}

// ---- player tools ----

func TestPlayerTools(t *testing.T) {
	ctx := context.Background()
	st, deps := tmpDeps(t)
	writeSquad(t, st, arsenalSquad)
	if _, err := saveLocalTeam(ctx, deps, SaveTeamArgs{Team: map[string]any{
		"name":    "Kadikoy FC",
		"players": []any{map[string]any{"name": "Ali", "position": "KL", "goals": "20"}},
	}}); err != nil {
		t.Fatal(err)
	}

	t.Run("Search", func(t *testing.T) {
		page, err := searchPlayers(ctx, deps, SearchPlayersArgs{Position: "DM"})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 2 || page.Players[0].Name != "Jorginho" || page.Players[1].Name != "Rice" {
			t.Errorf("page=%+v want Jorginho, Rice", page)
		}

		page, err = searchPlayers(ctx, deps, SearchPlayersArgs{Team: "arsenal", Limit: 5, Offset: 10})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 13 || len(page.Players) != 3 {
			t.Errorf("total=%d len=%d want 13 and 3", page.Total, len(page.Players))
		}
		if _, err := searchPlayers(ctx, deps, SearchPlayersArgs{Source: "moon"}); err == nil {
			t.Error("expected error for unknown source")
		}
	})

	t.Run("TopScorers", func(t *testing.T) {
		out, err := topPlayers(ctx, deps, TopPlayersArgs{Limit: 3})
		if err != nil {
			t.Fatal(err)
		}
		if out.Stat != statpath.Goals || len(out.Players) != 3 {
			t.Fatalf("out=%+v", out)
		}
		if out.Players[0].Name != "Ali" || out.Players[1].Name != "Saka" || out.Players[2].Name != "Havertz" {
			t.Errorf("scorers=%s,%s,%s want Ali,Saka,Havertz", out.Players[0].Name, out.Players[1].Name, out.Players[2].Name)
		}

		remote, err := topPlayers(ctx, deps, TopPlayersArgs{Stat: "goals", Source: "remote", Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if remote.Players[0].Name != "Saka" {
			t.Errorf("remote top scorer=%s want Saka", remote.Players[0].Name)
		}
		if _, err := topPlayers(ctx, deps, TopPlayersArgs{Stat: "tackles"}); err == nil {
			t.Error("expected error for unknown stat")
		}
	})
}

// ---- transport ----

func TestMCPToolCall(t *testing.T) {
	ctx := context.Background()
	_, deps := tmpDeps(t)
	server, registry := newMCPServer(deps)
	if len(registry) != 13 {
		t.Fatalf("registry=%d tools want 13", len(registry))
	}

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "classify_position",
		Arguments: map[string]any{"tag": "Orta Saha"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("result=%+v", res)
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, `"bucket": "MID"`) {
		t.Errorf("classify_position=%s want MID", text)
	}

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name: "pitch_layout",
		Arguments: map[string]any{
			"players":   []any{map[string]any{"name": "A", "position": "GK"}, map[string]any{"name": "B", "position": "CB"}, map[string]any{"name": "C", "position": "ST"}},
			"formation": "1-9223372036854775807-1",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Errorf("pitch_layout with a huge line size failed: %+v", res.Content)
	}

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "team_view",
		Arguments: map[string]any{"team": "nobody"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("team_view for an unknown team did not report an error")
	}
}

func TestHTTPHandlerAuth(t *testing.T) {
	_, deps := tmpDeps(t)
	h := newHTTPHandler(deps, config.ServerConfig{APIKeyHdr: "X-Squad-Key"}, "secret")

	get := func(path string, set func(r *http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if set != nil {
			set(req)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	if w := get("/tools", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status=%d want 401", w.Code)
	}
	if w := get("/api/v1/teams", func(r *http.Request) { r.Header.Set("X-Squad-Key", "wrong") }); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status=%d want 401", w.Code)
	}

	w := get("/tools", func(r *http.Request) { r.Header.Set("X-Squad-Key", "secret") })
	if w.Code != http.StatusOK {
		t.Fatalf("header key: status=%d want 200", w.Code)
	}
	var tools struct {
		Tools []toolInfo `json:"tools"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tools); err != nil {
		t.Fatal(err)
	}
	if len(tools.Tools) != 13 || tools.Tools[0].Name != "resolve_identity" {
		t.Errorf("tools=%+v", tools.Tools)
	}

	if w := get("/health", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }); w.Code != http.StatusOK {
		t.Errorf("bearer key: status=%d want 200", w.Code)
	}
}
