package players

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

func fixture(t *testing.T) []model.TeamRecord {
	t.Helper()
	raw := `[
		{"name": "Arsenal", "season": "2024-2025", "players": [
			{"id": 1, "name": "David Raya", "position": "GK", "age": "29-102", "nationality": "es ESP"},
			{"id": 7, "name": "Bukayo Saka", "position": "FW,MF", "goals": 12, "assists": "10"},
			{"id": 41, "name": "Declan Rice", "position": "MF", "goals": 4, "assists": 7},
			{"id": 9, "name": "Gabriel Jesus", "position": "FW", "goals": 4}
		]},
		{"name": "Kadikoy FC", "players": [
			{"uuid": "u-1", "name": "Ali Kaya", "position": "Stoper", "goals": "1,0", "source": "local"},
			{"name": "Veli", "position": "ST", "goals": 12}
		]}
	]`
	var teams []model.TeamRecord
	if err := json.Unmarshal([]byte(raw), &teams); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	teams[1].Players[0].Source = model.SourceLocal
	return teams
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestSearch(t *testing.T) {
	teams := fixture(t)

	t.Run("AllByName", func(t *testing.T) {
		page := Search(teams, Query{})
		want := []string{"Ali Kaya", "Bukayo Saka", "David Raya", "Declan Rice", "Gabriel Jesus", "Veli"}
		if !reflect.DeepEqual(names(page.Players), want) {
			t.Errorf("players = %v, want %v", names(page.Players), want)
		}
		if page.Total != 6 || page.Limit != DefaultLimit || page.Offset != 0 {
			t.Errorf("page = total %d limit %d offset %d", page.Total, page.Limit, page.Offset)
		}
	})

	t.Run("Filters", func(t *testing.T) {
		if got := names(Search(teams, Query{Search: "RA"}).Players); !reflect.DeepEqual(got, []string{"David Raya"}) {
			t.Errorf("search RA = %v", got)
		}
		if got := Search(teams, Query{Team: "kadikoy-fc"}); got.Total != 2 {
			t.Errorf("team filter total = %d, want 2", got.Total)
		}
		// Tag substring and bucket name both match.
		if got := names(Search(teams, Query{Position: "fwd"}).Players); !reflect.DeepEqual(got, []string{"Bukayo Saka", "Gabriel Jesus", "Veli"}) {
			t.Errorf("position fwd = %v", got)
		}
		if got := names(Search(teams, Query{Position: "DEF"}).Players); !reflect.DeepEqual(got, []string{"Ali Kaya"}) {
			t.Errorf("position DEF = %v", got)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page := Search(teams, Query{Limit: 2, Offset: 3})
		if !reflect.DeepEqual(names(page.Players), []string{"Declan Rice", "Gabriel Jesus"}) || page.Total != 6 {
			t.Errorf("page = %v (total %d)", names(page.Players), page.Total)
		}
		if page := Search(teams, Query{Offset: 99}); page.Players == nil || len(page.Players) != 0 {
			t.Errorf("past the end = %#v, want empty", page.Players)
		}
		if page := Search(teams, Query{Limit: 1000, Offset: -3}); page.Limit != MaxLimit || page.Offset != 0 {
			t.Errorf("clamped = limit %d offset %d", page.Limit, page.Offset)
		}
	})

	t.Run("EntryFields", func(t *testing.T) {
		raya := Search(teams, Query{Search: "raya"}).Players[0]
		if raya.ID != "1" || raya.Age != "29" || raya.Nationality != "es ESP" || raya.Bucket != "GK" {
			t.Errorf("raya = %+v", raya)
		}
		if raya.Source != model.SourceRemote || raya.Season != "2024-2025" {
			t.Errorf("raya source/season = %q/%q", raya.Source, raya.Season)
		}
		ali := Search(teams, Query{Search: "ali"}).Players[0]
		if ali.Source != model.SourceLocal || ali.Age != statpath.Placeholder {
			t.Errorf("ali = %+v", ali)
		}
	})
}

func TestFind(t *testing.T) {
	teams := fixture(t)

	d, ok := Find(teams, "7", "")
	if !ok || d.Name != "Bukayo Saka" {
		t.Fatalf("Find(7) = %+v, %v", d, ok)
	}
	if d.Stats[statpath.Goals] != "12" || d.Stats[statpath.Assists] != "10" || d.Stats[statpath.Minutes] != statpath.Placeholder {
		t.Errorf("stats = %v", d.Stats)
	}

	if d, ok := Find(teams, "Veli|ST", "kadikoy fc"); !ok || d.Team != "Kadikoy FC" {
		t.Errorf("Find(composite) = %+v, %v", d, ok)
	}
	if _, ok := Find(teams, "7", "kadikoy-fc"); ok {
		t.Error("Find(7) in the wrong team succeeded")
	}
	if _, ok := Find(teams, "", ""); ok {
		t.Error("Find with an empty id succeeded")
	}
}

func TestLeaders(t *testing.T) {
	teams := fixture(t)

	got := Leaders(teams, statpath.Goals, 0)
	// Ties keep roster order; Raya has no goals value and is left out.
	want := []string{"Bukayo Saka", "Veli", "Declan Rice", "Gabriel Jesus", "Ali Kaya"}
	if !reflect.DeepEqual(names(entriesOf(got)), want) {
		t.Errorf("scorers = %v, want %v", names(entriesOf(got)), want)
	}
	if got[4].Value != 1 {
		t.Errorf("Ali goals = %v, want 1 from \"1,0\"", got[4].Value)
	}

	top := Leaders(teams, statpath.Assists, 1)
	if len(top) != 1 || top[0].Name != "Bukayo Saka" || top[0].Stat != statpath.Assists {
		t.Errorf("top assister = %+v", top)
	}

	if got := Leaders(nil, statpath.Goals, 5); got == nil || len(got) != 0 {
		t.Errorf("Leaders(nil) = %#v, want empty", got)
	}
}

func TestIdempotent(t *testing.T) {
	teams := fixture(t)
	q := Query{Position: "MF", Limit: 3}
	if !reflect.DeepEqual(Search(teams, q), Search(teams, q)) {
		t.Error("Search differs between calls")
	}
	if !reflect.DeepEqual(Leaders(teams, statpath.Goals, 3), Leaders(teams, statpath.Goals, 3)) {
		t.Error("Leaders differs between calls")
	}
	if teams[0].Players[0].Name != "David Raya" {
		t.Error("input reordered")
	}
}

func entriesOf(ls []Leader) []Entry {
	out := make([]Entry, len(ls))
	for i, l := range ls {
		out[i] = l.Entry
	}
	return out
}
