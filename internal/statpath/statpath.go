// Package statpath resolves one logical statistic from the several field
// shapes roster sources use for it.
//
// Each statistic has an ordered list of candidate paths. The first path that
// holds a defined, non-nil, non-empty value wins; a value that then fails
// numeric coercion is absent. Nothing in this package returns an error.
package statpath

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/afpthedev/super-duper-winner/internal/model"
)

// Placeholder is what display mode shows for an absent statistic.
const Placeholder = "-"

type Kind string

const (
	Minutes Kind = "minutes"
	Matches Kind = "matches"
	Goals   Kind = "goals"
	Assists Kind = "assists"
	XG      Kind = "xg"
	XA      Kind = "xa"
	Shots   Kind = "shots"
	Age     Kind = "age"
)

// Kinds lists every statistic in a stable order.
var Kinds = []Kind{Minutes, Matches, Goals, Assists, XG, XA, Shots, Age}

type Mode int

const (
	ModeLenient Mode = iota
	ModeDisplay
)

// ParseMode maps "display" to ModeDisplay and anything else to ModeLenient.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "display") {
		return ModeDisplay
	}
	return ModeLenient
}

// Path is one place a value may live in a player record.
type Path struct {
	Name string
	get  func(p *model.PlayerRecord) any
}

// Field is a path reading a typed field of the record.
func Field(name string, get func(p *model.PlayerRecord) any) Path {
	return Path{Name: name, get: get}
}

// Key is a path into the record's raw source object. Several keys descend
// into nested objects: Key("stats", "minutes") reads raw["stats"]["minutes"].
func Key(keys ...string) Path {
	return Path{
		Name: "raw." + strings.Join(keys, "."),
		get: func(p *model.PlayerRecord) any {
			var cur any = p.Raw
			for _, k := range keys {
				obj, ok := cur.(map[string]any)
				if !ok {
					return nil
				}
				cur = obj[k]
			}
			return cur
		},
	}
}

// Get returns the value at the path, or nil.
func (pt Path) Get(p *model.PlayerRecord) any {
	if p == nil || pt.get == nil {
		return nil
	}
	return pt.get(p)
}

// Catalog holds the candidate paths per statistic, most specific first.
var Catalog = map[Kind][]Path{
	Minutes: {
		Field("minutes", func(p *model.PlayerRecord) any { return p.Minutes }),
		Key("minutes_played"),
		Key("min"),
		Key("Min"),
		Key("stats", "minutes"),
		Key("playing_time", "minutes"),
	},
	Matches: {
		Field("matches", func(p *model.PlayerRecord) any { return p.Matches }),
		Key("matches_played"),
		Key("games"),
		Key("appearances"),
		Key("MP"),
		Key("stats", "matches"),
		Key("playing_time", "matches"),
	},
	Goals: {
		Field("goals", func(p *model.PlayerRecord) any { return p.Goals }),
		Key("Gls"),
		Key("stats", "goals"),
		Key("performance", "goals"),
	},
	Assists: {
		Field("assists", func(p *model.PlayerRecord) any { return p.Assists }),
		Key("Ast"),
		Key("stats", "assists"),
		Key("performance", "assists"),
	},
	XG: {
		Field("xg", func(p *model.PlayerRecord) any { return p.XG }),
		Key("expected_goals"),
		Key("xG"),
		Key("stats", "xg"),
		Key("expected", "xg"),
	},
	XA: {
		Field("xa", func(p *model.PlayerRecord) any { return p.XA }),
		Key("xag"),
		Key("xg_assist"),
		Key("expected_assists"),
		Key("xAG"),
		Key("stats", "xa"),
		Key("expected", "xa"),
	},
	Shots: {
		Field("shots", func(p *model.PlayerRecord) any { return p.Shots }),
		Key("shots_total"),
		Key("Sh"),
		Key("stats", "shots"),
	},
	Age: {
		Field("age", func(p *model.PlayerRecord) any { return p.Age }),
		Key("Age"),
		Key("profile", "age"),
	},
}

// First returns the value at the first path that is defined, non-nil and not
// an empty string. The boolean is false when no path holds a value.
func First(p *model.PlayerRecord, paths []Path) (any, bool) {
	v, _, ok := FirstWithPath(p, paths)
	return v, ok
}

// FirstWithPath is First that also reports which path matched.
func FirstWithPath(p *model.PlayerRecord, paths []Path) (any, Path, bool) {
	for _, pt := range paths {
		v := pt.Get(p)
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v, pt, true
	}
	return nil, Path{}, false
}

// Number coerces numbers and numeric strings to float64. "," is accepted as
// the decimal separator. Anything else, including NaN and infinities, is
// reported as absent.
func Number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", ".")
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Lookup resolves kind for p. Age accepts the "years-days" form ("27-123").
func Lookup(p *model.PlayerRecord, kind Kind) (float64, bool) {
	v, ok := First(p, Catalog[kind])
	if !ok {
		return 0, false
	}
	if kind == Age {
		return ageYears(v)
	}
	return Number(v)
}

// Lenient resolves kind with absent values as 0.
func Lenient(p *model.PlayerRecord, kind Kind) float64 {
	f, _ := Lookup(p, kind)
	return f
}

// Display resolves kind as text, with Placeholder for absent values.
func Display(p *model.PlayerRecord, kind Kind) string {
	f, ok := Lookup(p, kind)
	if !ok {
		return Placeholder
	}
	return FormatNumber(f)
}

// Resolve returns a float64 in lenient mode and a string in display mode.
func Resolve(p *model.PlayerRecord, kind Kind, mode Mode) any {
	if mode == ModeDisplay {
		return Display(p, kind)
	}
	return Lenient(p, kind)
}

// FormatNumber rounds to two decimals and drops trailing zeros.
func FormatNumber(f float64) string {
	r := math.Round(f*100) / 100
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func ageYears(v any) (float64, bool) {
	if f, ok := Number(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	years, _, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found || years == "" {
		return 0, false
	}
	return Number(years)
}
