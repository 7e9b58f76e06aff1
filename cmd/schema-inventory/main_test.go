package main

import (
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/afpthedev/super-duper-winner/internal/statpath"
	"github.com/afpthedev/super-duper-winner/internal/store"
)

func TestWalkSchema_AllArrayElements(t *testing.T) {
	schema := make(SchemaMap)
	walkSchema(map[string]any{
		"players": []any{
			map[string]any{"minutes": 90.0},
			map[string]any{"minutes": "1,234", "Gls": nil},
		},
		"empty": []any{},
	}, "$", schema)

	fields := schemaToFields(schema)
	got := map[string][]string{}
	for _, f := range fields {
		got[f.Path] = f.Types
	}
	if ts := got["$.players[].minutes"]; len(ts) != 2 || ts[0] != "number" || ts[1] != "string" {
		t.Errorf("minutes types = %v, want [number string]", ts)
	}
	if ts := got["$.players[].Gls"]; len(ts) != 1 || ts[0] != "null" {
		t.Errorf("Gls types = %v, want [null]", ts)
	}
	if ts := got["$.empty[]"]; len(ts) != 1 || ts[0] != "unknown" {
		t.Errorf("empty[] types = %v, want [unknown]", ts)
	}
}

func TestBuildInventory(t *testing.T) {
	st := store.NewJSONStore(t.TempDir())
	squad := `{"name": "Arsenal", "players": [
		{"name": "Raya", "minutes": 3420, "Gls": 0},
		{"name": "Saka", "Min": "2,700", "goals": 12},
		{"name": "Nwaneri", "minutes": "n/a"}
	]}`
	if err := st.WriteRaw("teams/arsenal/squad.json", []byte(squad), false); err != nil {
		t.Fatal(err)
	}
	local := `[{"name": "Kadikoy FC", "players": [{"name": "Ali", "stats": {"minutes": 90}}]}]`
	if err := st.WriteRaw("local/teams.json", []byte(local), false); err != nil {
		t.Fatal(err)
	}

	log, hook := logtest.NewNullLogger()
	inv, err := buildInventory(st, 0, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(inv.Sources) != 2 || inv.Sources[0].FilesScanned != 1 {
		t.Fatalf("sources = %+v", inv.Sources)
	}
	if len(hook.AllEntries()) != 0 {
		t.Errorf("unexpected warnings: %v", hook.AllEntries())
	}

	var minutes, goals Coverage
	for _, c := range inv.Coverage {
		switch c.Stat {
		case statpath.Minutes:
			minutes = c
		case statpath.Goals:
			goals = c
		}
	}
	if minutes.Players != 4 || minutes.ByPath["minutes"] != 2 || minutes.ByPath["raw.Min"] != 1 || minutes.ByPath["raw.stats.minutes"] != 1 {
		t.Errorf("minutes coverage = %+v", minutes)
	}
	if minutes.NonNumeric != 1 {
		t.Errorf("minutes non-numeric = %d, want 1 (n/a)", minutes.NonNumeric)
	}
	if goals.ByPath["raw.Gls"] != 1 || goals.ByPath["goals"] != 1 || goals.Absent != 2 {
		t.Errorf("goals coverage = %+v", goals)
	}
}
