// Package pitch places a starting eleven on a percentage grid.
//
// Top runs from the opposing goal (0) to the team's own goal (100); Left runs
// across the width. Nothing here knows about a rendering surface.
package pitch

import (
	"math"

	"github.com/afpthedev/super-duper-winner/internal/formation"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/position"
)

const (
	minTop = 12.0
	maxTop = 72.0

	keeperTop  = 84.0
	keeperLeft = 50.0
)

// Slot is one player's position. Line is the render line index, 0 nearest
// the top; the goalkeeper has Line -1.
type Slot struct {
	Player     model.PlayerRecord `json:"player"`
	Top        float64            `json:"top"`
	Left       float64            `json:"left"`
	Line       int                `json:"line"`
	Goalkeeper bool               `json:"goalkeeper"`
}

// Build lays out starters in the shape given by label. Outfield players fill
// the formation lines in roster order; overflow joins the last line.
func Build(starters []model.PlayerRecord, label string) []Slot {
	if len(starters) == 0 {
		return []Slot{}
	}

	keeper := 0
	for i := range starters {
		if position.IsGoalkeeper(starters[i].Position) {
			keeper = i
			break
		}
	}

	outfield := make([]model.PlayerRecord, 0, len(starters)-1)
	for i := range starters {
		if i != keeper {
			outfield = append(outfield, starters[i])
		}
	}

	lines := partition(outfield, formation.Parse(label))
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	slots := make([]Slot, 0, len(starters))
	n := len(lines)
	for i, line := range lines {
		top := minTop
		if n > 1 {
			top = minTop + float64(i)*(maxTop-minTop)/float64(n-1)
		}
		k := len(line)
		for j, p := range line {
			slots = append(slots, Slot{
				Player: p,
				Top:    clamp(top),
				Left:   clamp(100 * float64(j+1) / float64(k+1)),
				Line:   i,
			})
		}
	}

	return append(slots, Slot{
		Player:     starters[keeper],
		Top:        keeperTop,
		Left:       keeperLeft,
		Line:       -1,
		Goalkeeper: true,
	})
}

// partition cuts players into consecutive groups of the given sizes and drops
// the groups left empty. Sizes may be arbitrarily large.
func partition(players []model.PlayerRecord, sizes []int) [][]model.PlayerRecord {
	var lines [][]model.PlayerRecord
	next := 0
	for i, size := range sizes {
		end := next + min(size, len(players)-next)
		if i == len(sizes)-1 {
			end = len(players)
		}
		if end > next {
			lines = append(lines, players[next:end])
		}
		next = end
	}
	return lines
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
