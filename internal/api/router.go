package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the middleware stack and every route of h. Extra
// middleware runs after CORS, so preflight requests never reach it.
func NewRouter(h *Handler, log logrus.FieldLogger, corsOrigins []string, extra ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(extra...)

	h.Routes(r)
	return r
}

// Routes registers the handlers on r without middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Teams
		r.Get("/teams", h.ListTeams)
		r.Post("/teams", h.SaveTeam)
		r.Get("/teams/{team}/view", h.GetTeamView)
		r.Get("/teams/{team}/aggregate", h.GetTeamAggregate)
		r.Get("/teams/{team}/reconcile", h.GetTeamReconcile)
		r.Delete("/teams/{team}", h.DeleteTeam)

		// Players
		r.Get("/players", h.ListPlayers)
		r.Get("/players/{player}", h.GetPlayer)
		r.Get("/leaders", h.GetLeaders)
		r.Get("/summary", h.GetSummary)

		// Engine
		r.Post("/view", h.PostView)
		r.Get("/formations/parse", h.ParseFormation)
		r.Get("/positions/classify", h.ClassifyPosition)
	})
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start).String(),
					"request_id": chimiddleware.GetReqID(r.Context()),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
