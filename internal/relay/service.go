package relay

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/udisondev/arenarelay/internal/protocol"
)

// Handler обрабатывает одно декодированное сообщение пира.
// Реализуется каждым конкретным сервисом.
type Handler interface {
	HandleMessage(ctx context.Context, p *Peer, msg Message)
}

// PeerDisconnectHandler — синхронный хук отключения. В отличие от
// подписчиков OnPeerDisconnected выполняется до завершения закрытия пира:
// сюда ставится работа, обязанная завершиться раньше close (снятие
// регистрации игрового сервера, укорачивание TTL сессии).
type PeerDisconnectHandler interface {
	HandlePeerDisconnect(p *Peer)
}

// Service — именованный набор обработчиков, привязанный к URL-пути.
// Владеет своими пирами; пиры между сервисами не разделяются.
type Service struct {
	name    string
	path    string
	handler Handler

	mu    sync.RWMutex
	peers map[*Peer]struct{}

	OnPeerConnected     Observers[*Peer]
	OnPeerDisconnected  Observers[*Peer]
	OnPeerAuthenticated Observers[*Peer]
	OnPacketSent        Observers[PacketEvent]
	OnPacketReceived    Observers[PacketEvent]
}

// NewService creates a service bound to path. The handler is attached
// afterwards by the concrete service via SetHandler.
func NewService(name, path string) *Service {
	return &Service{
		name:  name,
		path:  path,
		peers: make(map[*Peer]struct{}),
	}
}

// SetHandler attaches the message handler. Must be called before serving.
func (s *Service) SetHandler(h Handler) { s.handler = h }

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// Path returns the URL path the service is bound to.
func (s *Service) Path() string { return s.path }

// PeerCount returns the number of live peers.
func (s *Service) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

func (s *Service) addPeer(p *Peer) {
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	slog.Info("OnServicePeerConnected", "service", s.name, "peer", p.Address())
	s.OnPeerConnected.Emit(p)
}

func (s *Service) removePeer(p *Peer) {
	s.mu.Lock()
	_, ok := s.peers[p]
	delete(s.peers, p)
	s.mu.Unlock()
	if !ok {
		return
	}
	if h, ok := s.handler.(PeerDisconnectHandler); ok {
		h.HandlePeerDisconnect(p)
	}
	slog.Info("OnServicePeerDisconnected", "service", s.name, "peer", p.Address())
	s.OnPeerDisconnected.Emit(p)
}

// HandlePacket раздаёт сообщения пакета обработчику по одному, в порядке
// прихода. Unknown-сообщения логируются и пропускаются. Паника обработчика
// не валит сервис: логируется и закрывает одного пира.
func (s *Service) HandlePacket(ctx context.Context, p *Peer, msgs []Message) {
	slog.Debug("OnServicePacketReceived", "service", s.name, "peer", p.Address(), "messages", len(msgs))
	s.OnPacketReceived.Emit(PacketEvent{Peer: p, Messages: msgs})
	for _, msg := range msgs {
		if unk, ok := msg.(*protocol.Unknown); ok {
			slog.Debug("unknown message type",
				"service", s.name, "peer", p.Address(),
				"symbol", unk.TypeSymbol.HexString(), "size", len(unk.Payload))
			continue
		}
		s.dispatch(ctx, p, msg)
	}
}

func (s *Service) dispatch(ctx context.Context, p *Peer, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic, closing peer",
				"service", s.name, "peer", p.Address(),
				"symbol", msg.Symbol().HexString(),
				"panic", r, "stack", string(debug.Stack()))
			p.Close()
		}
	}()
	s.handler.HandleMessage(ctx, p, msg)
}
