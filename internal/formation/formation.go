// Package formation parses formation labels and infers one from a lineup.
package formation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/position"
)

// DefaultShape is the shape used for absent or unparseable labels.
func DefaultShape() []int {
	return []int{4, 3, 3}
}

// Parse splits label on every non-digit and keeps the positive integers in
// order. It never fails: an empty result yields DefaultShape.
func Parse(label string) []int {
	lines := parseLines(label)
	if len(lines) == 0 {
		return DefaultShape()
	}
	return lines
}

// Normalize returns the canonical "-" joined form of label, or "" when no
// line size can be read from it.
func Normalize(label string) string {
	lines := parseLines(label)
	if len(lines) == 0 {
		return ""
	}
	return Label(lines)
}

func Label(lines []int) string {
	parts := make([]string, len(lines))
	for i, n := range lines {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}

// Infer counts defenders, midfielders and forwards among the outfield
// starters and emits "{d}-{m}-{f}" with floors of 3, 2 and 1. A shortfall
// below ten outfielders is credited to the forward line.
func Infer(starters []model.PlayerRecord) string {
	var def, mid, fwd int
	for i := range starters {
		switch position.Classify(starters[i].Position) {
		case position.Goalkeeper:
		case position.Defense:
			def++
		case position.Midfield:
			mid++
		default:
			fwd++
		}
	}
	if total := def + mid + fwd; total < 10 {
		fwd += 10 - total
	}
	return fmt.Sprintf("%d-%d-%d", max(def, 3), max(mid, 2), max(fwd, 1))
}

func parseLines(label string) []int {
	tokens := strings.FieldsFunc(label, func(r rune) bool {
		return r < '0' || r > '9'
	})
	lines := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		n, err := strconv.Atoi(tok)
		if err != nil || n <= 0 {
			continue
		}
		lines = append(lines, n)
	}
	return lines
}
