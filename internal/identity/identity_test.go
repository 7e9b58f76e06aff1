package identity

import (
	"encoding/json"
	"testing"

	"github.com/afpthedev/super-duper-winner/internal/model"
)

func TestResolve_Priority(t *testing.T) {
	cases := []struct {
		name string
		rec  model.PlayerRecord
		want ID
	}{
		{"explicit id", model.PlayerRecord{ID: json.Number("10"), PlayerID: "p-1", Slug: "s", Name: "A"}, "10"},
		{"float id", model.PlayerRecord{ID: 7.0}, "7"},
		{"secondary id", model.PlayerRecord{PlayerID: "p-1", Slug: "s", UUID: "u"}, "p-1"},
		{"raw _id", model.PlayerRecord{Raw: map[string]any{"_id": "mongo"}, PlayerID: "p-1"}, "mongo"},
		{"fbref id", model.PlayerRecord{Raw: map[string]any{"fbref_id": "bc7dc64d"}, Slug: "bukayo-saka"}, "bc7dc64d"},
		{"slug", model.PlayerRecord{Slug: "bukayo-saka", UUID: "u"}, "bukayo-saka"},
		{"uuid", model.PlayerRecord{UUID: "0b7c", Name: "A"}, "0b7c"},
		{"composite", model.PlayerRecord{Name: " Saka ", Position: "RW"}, "Saka|RW"},
		{"composite without position", model.PlayerRecord{Name: "Saka"}, "Saka|"},
		{"empty id string falls through", model.PlayerRecord{ID: "  ", Slug: "s"}, "s"},
		{"undefined", model.PlayerRecord{Position: "CB"}, Undefined},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(&tc.rec); got != tc.want {
				t.Errorf("Resolve = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolve_StableAcrossCalls(t *testing.T) {
	p := model.PlayerRecord{Name: "Odegaard", Position: "AM"}
	first := Resolve(&p)
	for i := 0; i < 5; i++ {
		if got := Resolve(&p); got != first {
			t.Fatalf("call %d = %q, want %q", i, got, first)
		}
	}
}

func TestResolve_Nil(t *testing.T) {
	if got := Resolve(nil); got.Defined() {
		t.Errorf("Resolve(nil) = %q, want undefined", got)
	}
}

func TestHasExplicit(t *testing.T) {
	if HasExplicit(&model.PlayerRecord{Name: "Saka", Position: "RW"}) {
		t.Error("composite identity reported as explicit")
	}
	if !HasExplicit(&model.PlayerRecord{UUID: "0b7c"}) {
		t.Error("uuid not reported as explicit")
	}
}
