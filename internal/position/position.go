// Package position maps free-form position tags onto four coarse buckets.
package position

import (
	"slices"
	"strings"
	"unicode"
)

// Bucket codes follow the element_type numbering providers use.
type Bucket int

const (
	Goalkeeper Bucket = 1
	Defense    Bucket = 2
	Midfield   Bucket = 3
	Forward    Bucket = 4
)

func (b Bucket) String() string {
	switch b {
	case Goalkeeper:
		return "GK"
	case Defense:
		return "DEF"
	case Midfield:
		return "MID"
	case Forward:
		return "FWD"
	default:
		return "UNK"
	}
}

type rule struct {
	tag    string
	bucket Bucket
	// word rules only match a whole word of the tag: "POR" must not hit
	// "SUPPORT".
	word bool
}

// Whole words are checked before short codes: "MIDFIELDER" contains "DF" and
// "DEFENSIVE MIDFIELD" would otherwise land in Defense.
var rules = []rule{
	{tag: "GOALKEEPER", bucket: Goalkeeper},
	{tag: "KALECI", bucket: Goalkeeper},
	{tag: "KALECİ", bucket: Goalkeeper},
	{tag: "PORTERO", bucket: Goalkeeper},
	{tag: "PORTIERE", bucket: Goalkeeper},
	{tag: "TORWART", bucket: Goalkeeper},
	{tag: "KEEPER", bucket: Goalkeeper},

	{tag: "MIDFIELD", bucket: Midfield},
	{tag: "ORTA SAHA", bucket: Midfield},
	{tag: "CENTROCAMP", bucket: Midfield},

	{tag: "DEFENDER", bucket: Defense},
	{tag: "DEFENCE", bucket: Defense},
	{tag: "DEFENSE", bucket: Defense},
	{tag: "DEFANS", bucket: Defense},
	{tag: "STOPER", bucket: Defense},
	{tag: "BACK", bucket: Defense},

	{tag: "FORWARD", bucket: Forward},
	{tag: "STRIKER", bucket: Forward},
	{tag: "WINGER", bucket: Forward},
	{tag: "FORVET", bucket: Forward},
	{tag: "DELANTERO", bucket: Forward},
	{tag: "ATTACCANTE", bucket: Forward},

	{tag: "GK", bucket: Goalkeeper},
	{tag: "KL", bucket: Goalkeeper, word: true},
	{tag: "POR", bucket: Goalkeeper, word: true},
	{tag: "TW", bucket: Goalkeeper, word: true},

	{tag: "LWB", bucket: Defense},
	{tag: "RWB", bucket: Defense},
	{tag: "CB", bucket: Defense},
	{tag: "LB", bucket: Defense},
	{tag: "RB", bucket: Defense},
	{tag: "DEF", bucket: Defense},
	{tag: "DF", bucket: Defense},
	{tag: "BEK", bucket: Defense},

	{tag: "DM", bucket: Midfield},
	{tag: "CM", bucket: Midfield},
	{tag: "AM", bucket: Midfield},
	{tag: "LM", bucket: Midfield},
	{tag: "RM", bucket: Midfield},
	{tag: "MID", bucket: Midfield},
	{tag: "MF", bucket: Midfield},
	{tag: "ORTA", bucket: Midfield},

	{tag: "FW", bucket: Forward, word: true},
	{tag: "ST", bucket: Forward, word: true},
	{tag: "CF", bucket: Forward, word: true},
	{tag: "LW", bucket: Forward, word: true},
	{tag: "RW", bucket: Forward, word: true},
}

// Classify buckets a tag by its primary position: multi-position tags such
// as FBRef's "FW,MF" are read one comma or slash separated part at a time
// and the first part naming a known position decides. Anything unmatched,
// the empty tag included, is Forward.
func Classify(tag string) Bucket {
	t := strings.ToUpper(strings.TrimSpace(tag))
	for _, part := range strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == '/' }) {
		if b, ok := classifyPart(strings.TrimSpace(part)); ok {
			return b
		}
	}
	return Forward
}

func classifyPart(part string) (Bucket, bool) {
	if part == "" {
		return 0, false
	}
	words := strings.FieldsFunc(part, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, r := range rules {
		if r.word {
			if slices.Contains(words, r.tag) {
				return r.bucket, true
			}
			continue
		}
		if strings.Contains(part, r.tag) {
			return r.bucket, true
		}
	}
	return 0, false
}

// IsGoalkeeper reports whether tag classifies as Goalkeeper.
func IsGoalkeeper(tag string) bool {
	return Classify(tag) == Goalkeeper
}
