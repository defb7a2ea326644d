package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/arenarelay/internal/protocol"
)

const (
	readLimit         = protocol.MaxMessageBody + 64
	shutdownGrace     = 5 * time.Second
	sessionSweepEvery = time.Minute
)

// ServerOptions настраивает session server.
type ServerOptions struct {
	BindAddress string
	Port        int
	// APIKeyHash — bcrypt-хэш ключа, требуемого на /serverdb.
	// Пустая строка отключает проверку.
	APIKeyHash string
}

// Server — accept loop relay: принимает HTTP upgrade, маршрутизирует по
// пути к сервису и владеет жизненным циклом пиров.
type Server struct {
	opts     ServerOptions
	registry protocol.Registry
	sessions *SessionCache

	services map[string]*Service
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	peersWG  sync.WaitGroup

	OnAuthorizationResult Observers[AuthorizationResult]
}

// NewServer creates a session server over the given services.
func NewServer(opts ServerOptions, reg protocol.Registry, sessions *SessionCache, services ...*Service) *Server {
	byPath := make(map[string]*Service, len(services))
	for _, svc := range services {
		byPath[svc.Path()] = svc
	}
	return &Server{
		opts:     opts,
		registry: reg,
		sessions: sessions,
		services: byPath,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Игровые клиенты не шлют Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Addr возвращает адрес слушателя, nil до запуска.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run поднимает listener и обслуживает подключения до отмены контекста.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.BindAddress, s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener. Используется тестами.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: http.HandlerFunc(s.handleUpgrade)}

	s.mu.Lock()
	s.listener = ln
	s.httpSrv = srv
	s.mu.Unlock()

	go s.sweepSessions(ctx)

	slog.Info("OnServerStarted", "address", ln.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.shutdown()
		<-errCh
		slog.Info("OnServerStopped", "address", ln.Addr())
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	}
}

// shutdown: слушатель закрывается, кэш сессий чистится, пирам шлётся close,
// обработчикам даётся ограниченный grace period.
func (s *Server) shutdown() {
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	s.httpSrv.Shutdown(shCtx)

	s.sessions.Clear()
	for _, svc := range s.services {
		svc.mu.RLock()
		peers := make([]*Peer, 0, len(svc.peers))
		for p := range svc.peers {
			peers = append(peers, p)
		}
		svc.mu.RUnlock()
		for _, p := range peers {
			p.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		s.peersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shCtx.Done():
		slog.Warn("shutdown grace period expired with handlers in flight")
	}
}

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.CleanExpired()
		}
	}
}

// authorize выполняет connection-level проверку до апгрейда.
func (s *Server) authorize(r *http.Request, svc *Service) bool {
	if svc.Path() != "/serverdb" || s.opts.APIKeyHash == "" {
		return true
	}
	key := r.URL.Query().Get("apikey")
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.opts.APIKeyHash), []byte(key)) == nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.services[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	authorized := s.authorize(r, svc)
	slog.Info("OnAuthorizationResult", "remote", r.RemoteAddr, "path", r.URL.Path, "authorized", authorized)
	s.OnAuthorizationResult.Emit(AuthorizationResult{
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
		Authorized: authorized,
	})
	if !authorized {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	// Цикл чтения живёт внутри хендлера: возврат из ServeHTTP
	// отменил бы контекст запроса под ногами обработчиков.
	s.peersWG.Add(1)
	defer s.peersWG.Done()
	s.servePeer(r.Context(), svc, conn)
}

// servePeer — цикл чтения одного пира: кадр → пакет → сервис.
// Ошибки фрейминга закрывают соединение без ответа.
func (s *Server) servePeer(ctx context.Context, svc *Service, conn *websocket.Conn) {
	p := newPeer(svc, conn)
	conn.SetReadLimit(readLimit)
	go p.writePump()
	svc.addPeer(p)
	defer func() {
		svc.removePeer(p)
		p.Close()
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		msgs, err := protocol.ParsePacket(s.registry, data)
		if err != nil {
			slog.Warn("malformed packet, closing peer",
				"service", svc.Name(), "peer", p.Address(), "error", err)
			return
		}
		svc.HandlePacket(ctx, p, msgs)
	}
}
