// Package api serves the lineup engine over a chi router.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/afpthedev/super-duper-winner/internal/aggregate"
	"github.com/afpthedev/super-duper-winner/internal/formation"
	"github.com/afpthedev/super-duper-winner/internal/identity"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/position"
	"github.com/afpthedev/super-duper-winner/internal/reconcile"
	"github.com/afpthedev/super-duper-winner/internal/store"
	"github.com/afpthedev/super-duper-winner/internal/summary"
)

const maxBodyBytes = 1 << 20

// TeamSource lists remote teams. fetch.RemoteSource implements it.
type TeamSource interface {
	Teams(ctx context.Context) ([]model.TeamRecord, error)
}

// Handler holds the dependencies of the HTTP handlers. Remote may be nil.
type Handler struct {
	repo   store.Repository
	remote TeamSource
	views  *summary.Service
	log    logrus.FieldLogger
}

func NewHandler(repo store.Repository, remote TeamSource, views *summary.Service, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if views == nil {
		views = summary.NewService(nil, log)
	}
	return &Handler{repo: repo, remote: remote, views: views, log: log}
}

type TeamListItem struct {
	Name        string       `json:"name"`
	League      string       `json:"league,omitempty"`
	Season      string       `json:"season,omitempty"`
	Source      model.Source `json:"source"`
	PlayerCount int          `json:"player_count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthCheck reports the service status and, when the repository holds a
// connection, its reachability.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeStatus := "ok"
	if p, ok := h.repo.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.respondError(w, http.StatusServiceUnavailable, "store unhealthy", err)
			return
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "squad-api",
		"store":     storeStatus,
	})
}

// ListTeams lists teams with their player counts.
// Query params: source (local, remote or all)
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	source := strings.ToLower(r.URL.Query().Get("source"))
	if source == "" {
		source = "all"
	}
	if source != "all" && source != "local" && source != "remote" {
		h.respondError(w, http.StatusBadRequest, "source must be local, remote or all", nil)
		return
	}

	items := []TeamListItem{}
	if source != "remote" {
		teams, err := h.repo.Load(r.Context())
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, "failed to load local teams", err)
			return
		}
		items = appendItems(items, teams, model.SourceLocal)
	}
	if source != "local" && h.remote != nil {
		teams, err := h.remote.Teams(r.Context())
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, "failed to load remote teams", err)
			return
		}
		items = appendItems(items, teams, model.SourceRemote)
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"teams": items,
		"count": len(items),
	})
}

func appendItems(items []TeamListItem, teams []model.TeamRecord, src model.Source) []TeamListItem {
	for _, t := range teams {
		items = append(items, TeamListItem{
			Name:        t.Name,
			League:      t.League,
			Season:      t.Season,
			Source:      src,
			PlayerCount: len(t.Players),
		})
	}
	return items
}

// GetTeamView builds the lineup view of a stored team.
// Query params: formation, source
func (h *Handler) GetTeamView(w http.ResponseWriter, r *http.Request) {
	team, ok := h.lookupTeam(w, r)
	if !ok {
		return
	}
	view, err := h.views.TeamView(r.Context(), team, r.URL.Query().Get("formation"))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to build team view", err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// GetTeamAggregate reports per-player display stats and roster totals.
func (h *Handler) GetTeamAggregate(w http.ResponseWriter, r *http.Request) {
	team, ok := h.lookupTeam(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, aggregate.BuildReport(team))
}

// GetTeamReconcile compares a local team with the fetched squad of the same
// name or slug.
func (h *Handler) GetTeamReconcile(w http.ResponseWriter, r *http.Request) {
	name := teamParam(r)
	if h.remote == nil {
		h.respondError(w, http.StatusNotFound, "no remote source configured", nil)
		return
	}

	local, err := h.repo.Load(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load local teams", err)
		return
	}
	li := store.LookupTeam(local, name)
	if li < 0 {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("local team %q not found", name), nil)
		return
	}

	remote, err := h.remote.Teams(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to load remote teams", err)
		return
	}
	ri := store.LookupTeam(remote, local[li].Name)
	if ri < 0 {
		h.respondError(w, http.StatusNotFound, fmt.Sprintf("no fetched squad for %q", local[li].Name), nil)
		return
	}

	h.respondJSON(w, http.StatusOK, reconcile.BuildReport(&local[li], &remote[ri]))
}

// SaveTeam stores a locally-authored team, replacing one of the same name.
func (h *Handler) SaveTeam(w http.ResponseWriter, r *http.Request) {
	var team model.TeamRecord
	if err := decodeBody(w, r, &team); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid team payload", err)
		return
	}
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		h.respondError(w, http.StatusBadRequest, "team name is required", nil)
		return
	}
	PrepareLocalTeam(&team)

	created, err := h.repo.Upsert(r.Context(), team)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to save team", err)
		return
	}

	h.log.WithFields(logrus.Fields{"team": team.Name, "players": len(team.Players), "created": created}).Info("local team saved")
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, team)
}

// PrepareLocalTeam tags players as local and gives a uuid to every player
// without an explicit identifier.
func PrepareLocalTeam(team *model.TeamRecord) {
	if team.Players == nil {
		team.Players = []model.PlayerRecord{}
	}
	for i := range team.Players {
		p := &team.Players[i]
		p.Source = model.SourceLocal
		if !identity.HasExplicit(p) {
			p.UUID = uuid.NewString()
		}
	}
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	name, err := h.repo.Delete(r.Context(), teamParam(r))
	if errors.Is(err, store.ErrTeamNotFound) {
		h.respondError(w, http.StatusNotFound, "team not found", nil)
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to delete team", err)
		return
	}
	h.log.WithField("team", name).Info("local team deleted")
	h.respondJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

type viewRequest struct {
	Team      model.TeamRecord `json:"team"`
	Formation string           `json:"formation"`
}

// PostView builds a view for a team sent in the request body.
func (h *Handler) PostView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid view request", err)
		return
	}
	view, err := h.views.TeamView(r.Context(), &req.Team, req.Formation)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to build team view", err)
		return
	}
	h.respondJSON(w, http.StatusOK, view)
}

// ParseFormation query params: label
func (h *Handler) ParseFormation(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	normalized := formation.Normalize(label)
	h.respondJSON(w, http.StatusOK, map[string]any{
		"label":      label,
		"lines":      formation.Parse(label),
		"normalized": normalized,
		"default":    normalized == "",
	})
}

// ClassifyPosition query params: tag
func (h *Handler) ClassifyPosition(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	b := position.Classify(tag)
	h.respondJSON(w, http.StatusOK, map[string]any{
		"tag":    tag,
		"bucket": b.String(),
		"code":   int(b),
	})
}

// lookupTeam finds the {team} URL parameter by name or slug: local teams
// first unless source says otherwise. It writes the error response itself.
func (h *Handler) lookupTeam(w http.ResponseWriter, r *http.Request) (*model.TeamRecord, bool) {
	name := teamParam(r)
	source := strings.ToLower(r.URL.Query().Get("source"))

	if source == "" || source == "all" || source == "local" {
		teams, err := h.repo.Load(r.Context())
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, "failed to load local teams", err)
			return nil, false
		}
		if i := store.LookupTeam(teams, name); i >= 0 {
			return &teams[i], true
		}
	}
	if (source == "" || source == "all" || source == "remote") && h.remote != nil {
		teams, err := h.remote.Teams(r.Context())
		if err != nil {
			h.respondError(w, http.StatusInternalServerError, "failed to load remote teams", err)
			return nil, false
		}
		if i := store.LookupTeam(teams, name); i >= 0 {
			return &teams[i], true
		}
	}

	h.respondError(w, http.StatusNotFound, fmt.Sprintf("team %q not found", name), nil)
	return nil, false
}

func teamParam(r *http.Request) string {
	raw := chi.URLParam(r, "team")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("error encoding response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.log.WithError(err).WithField("status", status).Error(message)
	}
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
