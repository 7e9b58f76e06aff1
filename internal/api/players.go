package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/players"
	"github.com/afpthedev/super-duper-winner/internal/statpath"
)

// Summary counts what the store and the fetched squads hold.
type Summary struct {
	LocalTeams    int `json:"local_teams"`
	RemoteTeams   int `json:"remote_teams"`
	LocalPlayers  int `json:"local_players"`
	RemotePlayers int `json:"remote_players"`
	TotalTeams    int `json:"total_teams"`
	TotalPlayers  int `json:"total_players"`
	Seasons       int `json:"seasons"`
}

// BuildSummary counts teams, players and distinct non-empty seasons.
func BuildSummary(local, remote []model.TeamRecord) Summary {
	s := Summary{LocalTeams: len(local), RemoteTeams: len(remote)}
	seasons := map[string]bool{}
	for _, t := range local {
		s.LocalPlayers += len(t.Players)
		if t.Season != "" {
			seasons[t.Season] = true
		}
	}
	for _, t := range remote {
		s.RemotePlayers += len(t.Players)
		if t.Season != "" {
			seasons[t.Season] = true
		}
	}
	s.TotalTeams = s.LocalTeams + s.RemoteTeams
	s.TotalPlayers = s.LocalPlayers + s.RemotePlayers
	s.Seasons = len(seasons)
	return s
}

// GetSummary reports team, player and season counts.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	local, remote, err := h.loadTeams(r.Context(), "all")
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load teams", err)
		return
	}
	h.respondJSON(w, http.StatusOK, BuildSummary(local, remote))
}

// ListPlayers searches players across teams.
// Query params: search, team, position, source, limit, offset
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, ok := h.sourceParam(w, r)
	if !ok {
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "limit must be an integer", nil)
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "offset must be an integer", nil)
		return
	}

	local, remote, err := h.loadTeams(r.Context(), source)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load teams", err)
		return
	}
	h.respondJSON(w, http.StatusOK, players.Search(append(local, remote...), players.Query{
		Search:   q.Get("search"),
		Team:     q.Get("team"),
		Position: q.Get("position"),
		Limit:    limit,
		Offset:   offset,
	}))
}

// GetPlayer returns one player by identifier with its display statistics.
// Query params: team, source
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "player")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	source, ok := h.sourceParam(w, r)
	if !ok {
		return
	}

	local, remote, err := h.loadTeams(r.Context(), source)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load teams", err)
		return
	}
	detail, found := players.Find(append(local, remote...), id, r.URL.Query().Get("team"))
	if !found {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("player %q not found", id), nil)
		return
	}
	h.respondJSON(w, http.StatusOK, detail)
}

// GetLeaders ranks players by one statistic.
// Query params: stat (default goals), limit, source
func (h *Handler) GetLeaders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := statpath.Goals
	if s := strings.ToLower(strings.TrimSpace(q.Get("stat"))); s != "" {
		kind = statpath.Kind(s)
	}
	if _, known := statpath.Catalog[kind]; !known {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown stat %q", kind), nil)
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "limit must be an integer", nil)
		return
	}
	source, ok := h.sourceParam(w, r)
	if !ok {
		return
	}

	local, remote, err := h.loadTeams(r.Context(), source)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load teams", err)
		return
	}
	leaders := players.Leaders(append(local, remote...), kind, limit)
	h.respondJSON(w, http.StatusOK, map[string]any{
		"stat":    kind,
		"players": leaders,
		"count":   len(leaders),
	})
}

// loadTeams returns the local and remote teams selected by source. The
// returned local slice has no spare capacity, so appending to it copies.
func (h *Handler) loadTeams(ctx context.Context, source string) (local, remote []model.TeamRecord, err error) {
	if source != "remote" {
		if local, err = h.repo.Load(ctx); err != nil {
			return nil, nil, fmt.Errorf("load local teams: %w", err)
		}
		local = local[:len(local):len(local)]
	}
	if source != "local" && h.remote != nil {
		if remote, err = h.remote.Teams(ctx); err != nil {
			return nil, nil, fmt.Errorf("load remote teams: %w", err)
		}
	}
	return local, remote, nil
}

func (h *Handler) sourceParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	source := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("source")))
	switch source {
	case "", "all":
		return "all", true
	case "local", "remote":
		return source, true
	default:
		h.respondError(w, http.StatusBadRequest, "source must be local, remote or all", nil)
		return "", false
	}
}

func intParam(s string) (int, error) {
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
