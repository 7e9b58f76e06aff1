package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/afpthedev/super-duper-winner/internal/model"
)

var (
	ErrNoSquadTable = errors.New("no standard stats table on page")

	headingRe = regexp.MustCompile(`^(\d{4}(?:-\d{4})?)?\s*(.+?)\s+Stats(?:,\s*(.+))?$`)
	numericRe = regexp.MustCompile(`^-?[\d,]+(\.\d+)?$`)
)

// Summary rows FBRef appends to the player rows.
var invalidNames = map[string]bool{
	"squad total":    true,
	"squad total 2":  true,
	"opponent total": true,
	"opponent":       true,
	"matches":        true,
}

// Columns holding links rather than values.
var skipStats = map[string]bool{
	"player":  true,
	"matches": true,
}

// ParseFBRefSquad reads the standard stats table of an FBRef squad page. Each
// player row keeps every data-stat cell in Raw, so the FBRef column keys
// (minutes, games, xg_assist, ...) resolve through the stat catalog.
func ParseFBRefSquad(r io.Reader, pageURL string) (*model.TeamRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := doc.Find(`table[id^="stats_standard"]`).First()
	if table.Length() == 0 {
		return nil, ErrNoSquadTable
	}

	team := &model.TeamRecord{SourceURL: pageURL, Players: []model.PlayerRecord{}}
	team.Season, team.Name, team.League = parseHeading(doc.Find("h1").First().Text())

	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("thead") || row.HasClass("spacer") {
			return
		}
		cell := row.Find(`[data-stat="player"]`).First()
		name := cleanName(cell.Text())
		if name == "" || invalidName(name) {
			return
		}

		raw := map[string]any{"name": name}
		if href, ok := cell.Find("a").Attr("href"); ok {
			if id, slug := playerLink(href); id != "" {
				raw["fbref_id"] = id
				raw["slug"] = slug
			}
		}
		row.Find("[data-stat]").Each(func(_ int, c *goquery.Selection) {
			stat, _ := c.Attr("data-stat")
			if stat == "" || skipStats[stat] {
				return
			}
			if v, ok := cellValue(c.Text()); ok {
				raw[stat] = v
			}
		})

		p := model.FromRaw(raw)
		p.Source = model.SourceRemote
		team.Players = append(team.Players, p)
	})

	if team.Name == "" && len(team.Players) == 0 {
		return nil, ErrNoSquadTable
	}
	return team, nil
}

// LeagueTeam is one squad linked from a league page.
type LeagueTeam struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ParseFBRefLeague lists the squad pages linked from an FBRef league page in
// page order. Links resolve against pageURL; a URL seen twice keeps its first
// name and links without text are skipped.
func ParseFBRefLeague(r io.Reader, pageURL string) ([]LeagueTeam, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	teams := []LeagueTeam{}
	seen := map[string]bool{}
	doc.Find(`a[href*="/squads/"]`).Each(func(_ int, a *goquery.Selection) {
		name := cleanName(a.Text())
		href, _ := a.Attr("href")
		if name == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		link := abs.String()
		if seen[link] {
			return
		}
		seen[link] = true
		teams = append(teams, LeagueTeam{Name: name, URL: link})
	})
	return teams, nil
}

// parseHeading splits "2024-2025 Arsenal Stats, Premier League" into season,
// team and competition.
func parseHeading(h1 string) (season, name, league string) {
	text := strings.Join(strings.Fields(strings.ReplaceAll(h1, "\u00a0", " ")), " ")
	m := headingRe.FindStringSubmatch(text)
	if m == nil {
		return "", text, ""
	}
	return m[1], m[2], m[3]
}

func cleanName(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Map(func(r rune) rune {
		if r == '+' || r == '*' {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func invalidName(name string) bool {
	lower := strings.ToLower(name)
	return invalidNames[lower] || strings.HasSuffix(lower, "total")
}

// playerLink extracts id and slug from "/en/players/{id}/{Slug}".
func playerLink(href string) (string, string) {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != "players" {
			continue
		}
		id := parts[i+1]
		slug := ""
		if i+2 < len(parts) {
			slug = model.Slug(parts[i+2])
		}
		return id, slug
	}
	return "", ""
}

// cellValue trims a cell; numeric cells lose their thousands separators and
// become JSON numbers. Empty cells are absent.
func cellValue(text string) (any, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if s == "" {
		return nil, false
	}
	if numericRe.MatchString(s) {
		n := strings.ReplaceAll(s, ",", "")
		if _, err := strconv.ParseFloat(n, 64); err == nil {
			return json.Number(n), true
		}
	}
	return s, true
}
