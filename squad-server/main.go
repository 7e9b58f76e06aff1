package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/afpthedev/super-duper-winner/internal/api"
	"github.com/afpthedev/super-duper-winner/internal/cache"
	"github.com/afpthedev/super-duper-winner/internal/config"
	"github.com/afpthedev/super-duper-winner/internal/fetch"
	"github.com/afpthedev/super-duper-winner/internal/logging"
	"github.com/afpthedev/super-duper-winner/internal/store"
	"github.com/afpthedev/super-duper-winner/internal/summary"
)

// ServerDeps is what the tool handlers work against.
type ServerDeps struct {
	Repo   store.Repository
	Remote api.TeamSource
	Views  *summary.Service
	Log    logrus.FieldLogger
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func main() {
	var (
		configPath  = flag.String("config", "squad.yaml", "YAML config file (optional)")
		requireAuth = flag.Bool("require-auth", true, "require API key auth via SQUAD_MCP_API_KEY")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw := store.NewJSONStore(cfg.Provider.RawRoot)
	repo, err := store.Open(cfg.Store, raw)
	if err != nil {
		log.WithError(err).Fatal("open team store")
	}
	if c, ok := repo.(io.Closer); ok {
		defer c.Close()
	}

	viewCache, closeCache := newViewCache(ctx, cfg.Redis, log)
	defer closeCache()

	deps := ServerDeps{
		Repo:   repo,
		Remote: fetch.RemoteSource{Store: raw},
		Views:  summary.NewService(viewCache, log),
		Log:    log,
	}

	apiKey := strings.TrimSpace(cfg.Server.APIKey)
	if *requireAuth && apiKey == "" {
		log.Fatal("SQUAD_MCP_API_KEY is required (set env var or run with --require-auth=false)")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newHTTPHandler(deps, cfg.Server, apiKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":  cfg.Server.Addr,
			"mcp":   cfg.Server.MCPPath,
			"store": cfg.Store.Driver,
		}).Info("squad server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}

// newViewCache prefers Redis and falls back to process memory when Redis is
// not configured or does not answer.
func newViewCache(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (summary.Cache, func()) {
	if cfg.URL == "" {
		return cache.NewMemory(cfg.TTL), func() {}
	}

	rc, err := cache.NewRedisCache(cfg.URL, cfg.TTL)
	if err != nil {
		log.WithError(err).Warn("redis disabled, using memory cache")
		return cache.NewMemory(cfg.TTL), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("redis unreachable, using memory cache")
		_ = rc.Close()
		return cache.NewMemory(cfg.TTL), func() {}
	}

	log.Info("team view cache: redis")
	return rc, func() { _ = rc.Close() }
}

// newHTTPHandler serves the MCP endpoint, the tool registry and the REST API
// on one router. An empty apiKey disables auth.
func newHTTPHandler(deps ServerDeps, cfg config.ServerConfig, apiKey string) http.Handler {
	server, registry := newMCPServer(deps)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	header := cfg.APIKeyHdr
	if header == "" {
		header = "X-API-Key"
	}
	path := cfg.MCPPath
	if path == "" {
		path = "/mcp"
	}

	h := api.NewHandler(deps.Repo, deps.Remote, deps.Views, deps.Log)
	r := api.NewRouter(h, deps.Log, cfg.CORSOrigins, withAuth(apiKey, header))

	r.Get("/tools", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		b, _ := json.MarshalIndent(map[string]any{"tools": registry}, "", "  ")
		w.Write(b)
	})
	r.Handle(path, mcpHandler)

	return r
}

// withAuth accepts the key in header or as a bearer token.
func withAuth(apiKey, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := strings.TrimSpace(r.Header.Get(header))
			if key == "" {
				if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					key = strings.TrimSpace(authz[7:])
				}
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addTool[T any](server *mcp.Server, registry *[]toolInfo, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, any, error)) {
	*registry = append(*registry, toolInfo{Name: tool.Name, Description: tool.Description})
	mcp.AddTool(server, tool, handler)
}

// toolResult encodes out as the text content of a tool result.
func toolResult(out any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSONBytes(b), nil, nil
}

func toolJSONBytes(res []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(res)},
		},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
