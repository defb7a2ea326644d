// Package admin exposes the read-only administrative HTTP API:
// a JSON view of the game server registry, per-service peer counts,
// aggregate stats and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/arenarelay/internal/relay"
)

// Options настраивает административный API.
type Options struct {
	BindAddress string
	Port        int
	// APIKeyHash — bcrypt-хэш ключа; пустая строка открывает API.
	APIKeyHash string
}

// Server обслуживает административный API. Только чтение.
type Server struct {
	opts     Options
	registry *relay.GameServerRegistry
	sessions *relay.SessionCache
	services []*relay.Service
	started  time.Time

	metrics *Metrics
}

// NewServer builds the admin API over the relay's shared state.
func NewServer(opts Options, registry *relay.GameServerRegistry, sessions *relay.SessionCache, services ...*relay.Service) *Server {
	return &Server{
		opts:     opts,
		registry: registry,
		sessions: sessions,
		services: services,
		started:  time.Now(),
		metrics:  NewMetrics(prometheus.DefaultRegisterer, registry, sessions, services),
	}
}

// Metrics returns the relay metric counters for event wiring.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Run поднимает HTTP API до отмены контекста.
func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.auth)

	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/gameservers", s.handleGameServers)
	r.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shCtx)
	}()

	slog.Info("admin API started", "address", ln.Addr())
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving admin API: %w", err)
	}
	return nil
}

// auth разделяет apikey-механизм с /serverdb.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKeyHash != "" {
			key := r.URL.Query().Get("apikey")
			if key == "" || bcrypt.CompareHashAndPassword([]byte(s.opts.APIKeyHash), []byte(key)) != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	UptimeSeconds int64          `json:"uptime_seconds"`
	Sessions      int            `json:"sessions"`
	GameServers   int            `json:"game_servers"`
	PeerCounts    map[string]int `json:"peer_counts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Sessions:      s.sessions.Count(),
		GameServers:   s.registry.Count(),
		PeerCounts:    make(map[string]int, len(s.services)),
	}
	for _, svc := range s.services {
		resp.PeerCounts[svc.Name()] = svc.PeerCount()
	}
	writeJSON(w, resp)
}

type gameServerView struct {
	ServerID        uint64 `json:"server_id"`
	ExternalAddress string `json:"external_address"`
	Port            uint16 `json:"port"`
	Region          string `json:"region"`
	VersionLock     string `json:"version_lock"`
	IsPublic        bool   `json:"is_public"`
	State           string `json:"state"`
	SessionGUID     string `json:"session_guid,omitempty"`
	Participants    int    `json:"participants"`
	MaxParticipants int    `json:"max_participants"`
}

func (s *Server) handleGameServers(w http.ResponseWriter, r *http.Request) {
	servers := s.registry.Snapshot()
	out := make([]gameServerView, 0, len(servers))
	for _, g := range servers {
		view := gameServerView{
			ServerID:        g.ServerID,
			ExternalAddress: g.ExternalAddress,
			Port:            g.Port,
			Region:          g.RegionSymbol.HexString(),
			VersionLock:     g.VersionLock.HexString(),
			IsPublic:        g.IsPublic(),
			State:           g.State().String(),
			Participants:    g.ParticipantCount(),
			MaxParticipants: g.MaxParticipants(),
		}
		if g.State() != relay.SessionIdle {
			guid, _, _ := g.Session()
			view.SessionGUID = guid.String()
		}
		out = append(out, view)
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing admin response", "error", err)
	}
}
