// Package roster splits a squad into its starting eleven and bench.
package roster

import (
	"sort"
	"strings"

	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

const StartingSize = 11

// Result partitions a roster. Starters are in selection order, Bench in the
// roster's original order.
type Result struct {
	Starters []model.PlayerRecord `json:"starters"`
	Bench    []model.PlayerRecord `json:"bench"`
}

// Fields a source may use to mark a starter.
var starterAliases = []string{
	"starter", "is_starter", "isStarter", "starting", "starting_xi",
	"startingXI", "in_starting_xi", "lineup", "xi",
}

var starterWords = map[string]bool{
	"true": true, "starter": true, "starting": true, "yes": true, "xi": true,
}

// HasStartingSignal reports whether p is explicitly marked as a starter.
func HasStartingSignal(p *model.PlayerRecord) bool {
	if role := strings.TrimSpace(p.Role); role != "" && !strings.EqualFold(role, "bench") {
		return true
	}
	if p.Source == model.SourceLocal && p.IsStarter != nil && *p.IsStarter {
		return true
	}
	for _, key := range starterAliases {
		switch v := p.Raw[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if starterWords[strings.ToLower(strings.TrimSpace(v))] {
				return true
			}
		}
	}
	return false
}

type selection struct {
	players []model.PlayerRecord
	picked  []bool
	seen    map[identity.ID]bool
	order   []int
}

// add selects players[i] unless it is already selected or, when dedupe is
// set, another selected record shares its identity. Undefined identities
// never collide.
func (s *selection) add(i int, dedupe bool) {
	if s.picked[i] {
		return
	}
	id := identity.Resolve(&s.players[i])
	if dedupe && id.Defined() && s.seen[id] {
		return
	}
	s.picked[i] = true
	if id.Defined() {
		s.seen[id] = true
	}
	s.order = append(s.order, i)
}

func (s *selection) full() bool {
	return len(s.order) >= StartingSize
}

// Split selects up to eleven starters: explicitly marked players first, then
// the remaining players by descending minutes (stable), then anyone left in
// roster order. Everyone not selected is bench. The input is not modified.
func Split(players []model.PlayerRecord) Result {
	s := &selection{
		players: players,
		picked:  make([]bool, len(players)),
		seen:    make(map[identity.ID]bool, len(players)),
	}

	for i := range players {
		if HasStartingSignal(&players[i]) {
			s.add(i, true)
		}
	}

	if !s.full() {
		byMinutes := make([]int, len(players))
		minutes := make([]float64, len(players))
		for i := range players {
			byMinutes[i] = i
			minutes[i] = statpath.Lenient(&players[i], statpath.Minutes)
		}
		sort.SliceStable(byMinutes, func(a, b int) bool {
			return minutes[byMinutes[a]] > minutes[byMinutes[b]]
		})
		for _, i := range byMinutes {
			if s.full() {
				break
			}
			s.add(i, true)
		}
	}

	for i := range players {
		if s.full() {
			break
		}
		s.add(i, false)
	}

	if len(s.order) > StartingSize {
		for _, i := range s.order[StartingSize:] {
			s.picked[i] = false
		}
		s.order = s.order[:StartingSize]
	}

	res := Result{
		Starters: make([]model.PlayerRecord, 0, len(s.order)),
		Bench:    make([]model.PlayerRecord, 0, len(players)-len(s.order)),
	}
	for _, i := range s.order {
		res.Starters = append(res.Starters, players[i])
	}
	for i := range players {
		if !s.picked[i] {
			res.Bench = append(res.Bench, players[i])
		}
	}
	return res
}
