package main

import (
	"bytes"
	"encoding/json"

	"github.com/afpthedev/super-duper-winner/internal/fetch"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

// Coverage reports, for one statistic, how many players resolved through each
// candidate path and how many had no usable value.
type Coverage struct {
	Stat    statpath.Kind  `json:"stat"`
	Players int            `json:"players"`
	ByPath  map[string]int `json:"by_path"`
	Absent  int            `json:"absent"`
	// Values found on a path that do not coerce to a number.
	NonNumeric int `json:"non_numeric"`
}

type coverageCounter struct {
	stats map[statpath.Kind]*Coverage
}

func newCoverageCounter() *coverageCounter {
	c := &coverageCounter{stats: make(map[statpath.Kind]*Coverage, len(statpath.Kinds))}
	for _, k := range statpath.Kinds {
		c.stats[k] = &Coverage{Stat: k, ByPath: map[string]int{}}
	}
	return c
}

// addFile counts the players of a squad file or of a local teams list.
func (c *coverageCounter) addFile(raw []byte) error {
	if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '[' {
		var teams []model.TeamRecord
		if err := json.Unmarshal(raw, &teams); err != nil {
			return err
		}
		for i := range teams {
			c.addPlayers(teams[i].Players)
		}
		return nil
	}

	team, err := fetch.DecodeTeam(raw)
	if err != nil {
		return err
	}
	c.addPlayers(team.Players)
	return nil
}

func (c *coverageCounter) addPlayers(players []model.PlayerRecord) {
	for i := range players {
		p := &players[i]
		for _, k := range statpath.Kinds {
			cov := c.stats[k]
			cov.Players++
			_, pt, ok := statpath.FirstWithPath(p, statpath.Catalog[k])
			if !ok {
				cov.Absent++
				continue
			}
			cov.ByPath[pt.Name]++
			if _, ok := statpath.Lookup(p, k); !ok {
				cov.NonNumeric++
			}
		}
	}
}

func (c *coverageCounter) report() []Coverage {
	out := make([]Coverage, 0, len(statpath.Kinds))
	for _, k := range statpath.Kinds {
		out = append(out, *c.stats[k])
	}
	return out
}
