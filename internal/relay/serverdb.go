package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/symbol"
)

const defaultMaxParticipants = 16

// RegistrationFailureEvent описывает отклонённую регистрацию игрового сервера.
type RegistrationFailureEvent struct {
	Peer    *Peer
	Request *messages.GameServerRegistrationRequest
	Reason  string
}

// ServerDBServiceOptions настраивает сервис выделенных серверов.
type ServerDBServiceOptions struct {
	ValidateEndpoint bool
}

// ServerDBService — endpoint, к которому подключаются выделенные игровые
// серверы. Каждый пир регистрируется ровно один раз; дисконнект пира
// снимает регистрацию до завершения закрытия.
type ServerDBService struct {
	*Service
	registry  *GameServerRegistry
	symbols   *symbol.Cache
	validator *EndpointValidator
	opts      ServerDBServiceOptions

	OnGameServerRegistrationFailure Observers[RegistrationFailureEvent]
}

// NewServerDBService wires the server database service over the registry.
// validator may be nil when endpoint validation is disabled.
func NewServerDBService(registry *GameServerRegistry, symbols *symbol.Cache, validator *EndpointValidator, opts ServerDBServiceOptions) *ServerDBService {
	s := &ServerDBService{
		Service:   NewService("serverdb", "/serverdb"),
		registry:  registry,
		symbols:   symbols,
		validator: validator,
		opts:      opts,
	}
	s.SetHandler(s)
	return s
}

// Registry returns the game server registry the service feeds.
func (s *ServerDBService) Registry() *GameServerRegistry { return s.registry }

// HandleMessage dispatches server database messages.
func (s *ServerDBService) HandleMessage(ctx context.Context, p *Peer, msg Message) {
	switch m := msg.(type) {
	case *messages.GameServerRegistrationRequest:
		s.handleRegistration(ctx, p, m)
	case *messages.GameServerSessionStarted:
		s.handleSessionStarted(p, m)
	case *messages.GameServerSessionEnded:
		s.handleSessionEnded(p, m)
	case *messages.GameServerPlayerJoined:
		s.handlePlayerJoined(p, m)
	case *messages.GameServerPlayerLeft:
		s.handlePlayerLeft(p, m)
	case *messages.GameServerPlayersLocked:
		s.setPlayersLocked(p, true)
	case *messages.GameServerPlayersUnlocked:
		s.setPlayersLocked(p, false)
	case *messages.GameServerUpdateRequest:
		s.handleUpdate(p, m)
	default:
		slog.Debug("unhandled serverdb message", "symbol", msg.Symbol().HexString(), "peer", p.Address())
	}
}

// HandlePeerDisconnect снимает регистрацию пира до завершения его закрытия.
func (s *ServerDBService) HandlePeerDisconnect(p *Peer) {
	if g := s.registry.Unregister(p); g != nil {
		g.EndSession()
		slog.Info("OnGameServerUnregistered", "server_id", g.ServerID, "peer", p.Address())
		s.registry.OnGameServerUnregistered.Emit(g)
	}
}

func (s *ServerDBService) refuse(p *Peer, m *messages.GameServerRegistrationRequest, code uint64, reason string) {
	slog.Warn("OnGameServerRegistrationFailure",
		"server_id", m.ServerID, "peer", p.Address(), "reason", reason)
	s.OnGameServerRegistrationFailure.Emit(RegistrationFailureEvent{Peer: p, Request: m, Reason: reason})
	p.Send(&messages.GameServerRegistrationFailure{ReasonCode: code, Message: reason})
	p.Close()
}

func validateExternalAddress(addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil {
		return fmt.Errorf("unparseable address %q", addr)
	}
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return fmt.Errorf("address %s is not public", addr)
	}
	return nil
}

func (s *ServerDBService) handleRegistration(ctx context.Context, p *Peer, m *messages.GameServerRegistrationRequest) {
	if _, exists := s.registry.ByPeer(p); exists {
		s.refuse(p, m, messages.RegistrationFailureAlreadyRegistered, "peer already registered a game server")
		return
	}
	if m.ServerID == 0 {
		s.refuse(p, m, messages.RegistrationFailureInvalidRequest, "server_id must be non-zero")
		return
	}
	if m.Port == 0 {
		s.refuse(p, m, messages.RegistrationFailureInvalidRequest, "port must be non-zero")
		return
	}
	if _, ok := s.symbols.Name(m.RegionSymbol); !ok {
		s.refuse(p, m, messages.RegistrationFailureInvalidRequest,
			fmt.Sprintf("unresolvable region symbol %s", m.RegionSymbol.HexString()))
		return
	}
	if err := validateExternalAddress(m.ExternalAddress); err != nil {
		s.refuse(p, m, messages.RegistrationFailureInvalidRequest, err.Error())
		return
	}

	// Probe не повторяется: по таймауту сервер перерегистрируется сам.
	if s.opts.ValidateEndpoint && s.validator != nil {
		if err := s.validator.Validate(m.ExternalAddress, m.Port); err != nil {
			s.refuse(p, m, messages.RegistrationFailureEndpointUnreachable,
				fmt.Sprintf("endpoint validation failed: %v", err))
			return
		}
	}

	maxParticipants := int(m.MaxParticipants)
	if maxParticipants == 0 {
		maxParticipants = defaultMaxParticipants
	}
	g := &RegisteredGameServer{
		ServerID:        m.ServerID,
		InternalAddress: m.InternalAddress,
		ExternalAddress: m.ExternalAddress,
		Port:            m.Port,
		RegionSymbol:    m.RegionSymbol,
		VersionLock:     m.VersionLock,
		peer:            p,
		isPublic:        m.IsPublic != 0,
		maxParticipants: maxParticipants,
	}
	if !s.registry.Register(g) {
		s.refuse(p, m, messages.RegistrationFailureDuplicateServerID,
			fmt.Sprintf("server_id %d already registered", m.ServerID))
		return
	}

	slog.Info("OnGameServerRegistered",
		"server_id", g.ServerID, "region", s.symbols.Token(g.RegionSymbol),
		"external", fmt.Sprintf("%s:%d", g.ExternalAddress, g.Port), "public", g.IsPublic())
	s.registry.OnGameServerRegistered.Emit(g)
	p.Send(&messages.GameServerRegistrationSuccess{ServerID: g.ServerID, ExternalAddress: g.ExternalAddress})
}

func (s *ServerDBService) record(p *Peer) (*RegisteredGameServer, bool) {
	g, ok := s.registry.ByPeer(p)
	if !ok {
		slog.Debug("serverdb message from unregistered peer", "peer", p.Address())
	}
	return g, ok
}

func (s *ServerDBService) handleSessionStarted(p *Peer, m *messages.GameServerSessionStarted) {
	g, ok := s.record(p)
	if !ok {
		return
	}
	if !g.MarkStarted(m.Session) {
		slog.Warn("session start confirmation out of order",
			"server_id", g.ServerID, "session", m.Session, "state", g.State().String())
		return
	}
	slog.Info("game session started", "server_id", g.ServerID, "session", m.Session)
}

func (s *ServerDBService) handleSessionEnded(p *Peer, m *messages.GameServerSessionEnded) {
	g, ok := s.record(p)
	if !ok {
		return
	}
	guid, _, _ := g.Session()
	if guid != m.Session {
		slog.Warn("session end for unknown session", "server_id", g.ServerID, "session", m.Session)
		return
	}
	g.EndSession()
	slog.Info("game session ended", "server_id", g.ServerID, "session", m.Session)
}

func (s *ServerDBService) handlePlayerJoined(p *Peer, m *messages.GameServerPlayerJoined) {
	g, ok := s.record(p)
	if !ok {
		return
	}
	count := g.PlayerJoined(m.UserID)
	slog.Debug("player joined session", "server_id", g.ServerID, "user_id", m.UserID, "participants", count)
}

func (s *ServerDBService) handlePlayerLeft(p *Peer, m *messages.GameServerPlayerLeft) {
	g, ok := s.record(p)
	if !ok {
		return
	}
	count := g.PlayerLeft(m.UserID)
	slog.Debug("player left session", "server_id", g.ServerID, "user_id", m.UserID, "participants", count)
	if count == 0 && g.State() == SessionActive {
		guid, _, _ := g.Session()
		g.EndSession()
		slog.Info("game session drained", "server_id", g.ServerID, "session", guid)
	}
}

func (s *ServerDBService) setPlayersLocked(p *Peer, locked bool) {
	g, ok := s.record(p)
	if !ok {
		return
	}
	g.SetPlayersLocked(locked)
}

func (s *ServerDBService) handleUpdate(p *Peer, m *messages.GameServerUpdateRequest) {
	g, ok := s.record(p)
	if !ok {
		return
	}
	g.SetPublic(m.IsPublic != 0)
	if m.MaxParticipants > 0 {
		g.SetMaxParticipants(int(m.MaxParticipants))
	}
}
