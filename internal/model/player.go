package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Stats holds per-player statistics exactly as the source delivered them:
// nil when absent, a number, or a numeric string ("1.5" or "1,5").
type Stats struct {
	Minutes any
	Matches any
	Goals   any
	Assists any
	XG      any
	XA      any
	Shots   any
}

// PlayerRecord is one roster entry from either source. Typed fields cover the
// shapes this repo knows about; Raw keeps every field of the source object so
// that provider-specific keys stay reachable.
type PlayerRecord struct {
	ID       any
	PlayerID any
	Slug     string
	UUID     string

	Name     string
	Position string
	Number   any
	Age      any

	Role      string
	IsStarter *bool
	Source    Source

	Stats

	Raw map[string]any
}

type TeamMetrics struct {
	Goals      any `json:"goals,omitempty"`
	XG         any `json:"xg,omitempty"`
	XA         any `json:"xa,omitempty"`
	Possession any `json:"possession,omitempty"`
}

type TeamRecord struct {
	Name               string         `json:"name"`
	League             string         `json:"league,omitempty"`
	Country            string         `json:"country,omitempty"`
	Season             string         `json:"season,omitempty"`
	SourceURL          string         `json:"source_url,omitempty"`
	PreferredFormation string         `json:"preferred_formation,omitempty"`
	Players            []PlayerRecord `json:"players"`
	Metrics            *TeamMetrics   `json:"metrics,omitempty"`
}

// UnmarshalJSON never rejects a player because one field has an unexpected
// type: typed fields are picked out of the decoded object when they match.
func (p *PlayerRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*p = FromRaw(raw)
	return nil
}

// FromRaw builds a record from a decoded source object. The map is kept as
// the record's Raw slot and is not copied.
func FromRaw(raw map[string]any) PlayerRecord {
	p := PlayerRecord{
		ID:       raw["id"],
		PlayerID: raw["player_id"],
		Slug:     stringField(raw, "slug"),
		UUID:     stringField(raw, "uuid"),
		Name:     stringField(raw, "name"),
		Position: stringField(raw, "position"),
		Number:   raw["number"],
		Age:      raw["age"],
		Role:     stringField(raw, "role"),
		Source:   Source(stringField(raw, "source")),
		Stats: Stats{
			Minutes: raw["minutes"],
			Matches: raw["matches"],
			Goals:   raw["goals"],
			Assists: raw["assists"],
			XG:      raw["xg"],
			XA:      raw["xa"],
			Shots:   raw["shots"],
		},
		Raw: raw,
	}
	if b, ok := raw["is_starter"].(bool); ok {
		p.IsStarter = &b
	}
	return p
}

// MarshalJSON writes Raw overlaid with the typed fields, so unknown source keys
// survive a load/save round trip. Map keys are emitted sorted.
func (p PlayerRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Raw)+16)
	for k, v := range p.Raw {
		out[k] = v
	}

	setAny(out, "id", p.ID)
	setAny(out, "player_id", p.PlayerID)
	setString(out, "slug", p.Slug)
	setString(out, "uuid", p.UUID)
	setString(out, "name", p.Name)
	setString(out, "position", p.Position)
	setAny(out, "number", p.Number)
	setAny(out, "age", p.Age)
	setString(out, "role", p.Role)
	setString(out, "source", string(p.Source))
	if p.IsStarter != nil {
		out["is_starter"] = *p.IsStarter
	}
	setAny(out, "minutes", p.Minutes)
	setAny(out, "matches", p.Matches)
	setAny(out, "goals", p.Goals)
	setAny(out, "assists", p.Assists)
	setAny(out, "xg", p.XG)
	setAny(out, "xa", p.XA)
	setAny(out, "shots", p.Shots)

	return json.Marshal(out)
}

func stringField(raw map[string]any, key string) string {
	s, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func setAny(out map[string]any, key string, v any) {
	if v != nil {
		out[key] = v
	}
}

func setString(out map[string]any, key string, v string) {
	if v != "" {
		out[key] = v
	}
}
