// Package identity derives a stable identifier for a player record.
package identity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

// ID identifies a player. Undefined means the record cannot be deduplicated.
type ID string

const Undefined ID = ""

var candidates = []statpath.Path{
	statpath.Field("id", func(p *model.PlayerRecord) any { return p.ID }),
	statpath.Key("_id"),
	statpath.Field("player_id", func(p *model.PlayerRecord) any { return p.PlayerID }),
	statpath.Key("playerId"),
	statpath.Key("fbref_id"),
	statpath.Field("slug", func(p *model.PlayerRecord) any { return p.Slug }),
	statpath.Field("uuid", func(p *model.PlayerRecord) any { return p.UUID }),
}

// Resolve tries the explicit id, the secondary ids, the slug and the uuid in
// that order, then falls back to "name|position". A record without any of
// these, name included, resolves to Undefined.
func Resolve(p *model.PlayerRecord) ID {
	if p == nil {
		return Undefined
	}
	if v, ok := statpath.First(p, candidates); ok {
		if s := format(v); s != "" {
			return ID(s)
		}
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Undefined
	}
	return ID(name + "|" + strings.TrimSpace(p.Position))
}

// HasExplicit reports whether p carries an id, secondary id, slug or uuid,
// i.e. whether Resolve does not depend on name and position.
func HasExplicit(p *model.PlayerRecord) bool {
	v, ok := statpath.First(p, candidates)
	return ok && format(v) != ""
}

func (id ID) Defined() bool {
	return id != Undefined
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
