package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	gws "github.com/gorilla/websocket"
	"github.com/rs/cors"

	"cowatch-sync-server/hub"
	"cowatch-sync-server/metrics"
	"cowatch-sync-server/protocol"
	"cowatch-sync-server/ratelimit"
	"cowatch-sync-server/registry"
	"cowatch-sync-server/store"
	ws "cowatch-sync-server/websocket"
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type server struct {
	cfg      *Config
	registry *registry.Registry
	rooms    *store.Store
	hub      *hub.Hub
	handler  *protocol.Handler
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter
}

func newServer(cfg *Config) *server {
	s := &server{
		cfg:      cfg,
		registry: registry.New(),
		rooms:    store.New(),
		hub:      hub.New(),
		limiter:  ratelimit.New(cfg.RateLimitPerIP),
	}
	s.metrics = metrics.New(s.stats)
	s.handler = protocol.NewHandler(s.registry, s.rooms, s.hub,
		protocol.WithMaxChatLength(cfg.MaxChatLength),
		protocol.WithRecorder(s.metrics),
	)
	return s
}

func (s *server) stats() (rooms, members, clients int) {
	rooms, members = s.rooms.Stats()
	return rooms, members, s.registry.Count()
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.limiter.Middleware(http.HandlerFunc(s.handleWS)))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", s.metrics.Handler())

	if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
		slog.Info("serving static files", "dir", s.cfg.StaticDir)
	} else {
		slog.Warn("static directory not found, serving API only", "dir", s.cfg.StaticDir)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSAllow,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(mux)
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade error", "error", err)
		return
	}

	wsConn := ws.NewConn(conn, s.handler, ws.Options{
		MaxMessageSize:  s.cfg.MaxMessageSize,
		EventsPerSecond: s.cfg.EventRateLimit,
	})
	wsConn.Start()
	slog.Info("client connected", "clientId", wsConn.ID(), "ip", ratelimit.ClientIP(r))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	rooms, members, clients := s.stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"rooms": rooms, "members": members, "clients": clients})
}
