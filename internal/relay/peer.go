package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/protocol"
)

// Message is the protocol message type handled by services.
type Message = protocol.Message

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
)

// ErrPeerClosed возвращается при отправке в уже закрытый пир.
var ErrPeerClosed = errors.New("peer closed")

// Peer — состояние одного живого подключения к сервису.
// Создаётся на accept, умирает на disconnect; отправка упорядочена
// и идёт через очередь, которую разбирает одна пишущая горутина.
type Peer struct {
	service *Service
	conn    *websocket.Conn
	addr    string

	sendCh    chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	mu            sync.Mutex
	userID        model.XPlatformID
	displayName   string
	authenticated bool
	sessionData   map[string]any
}

func newPeer(svc *Service, conn *websocket.Conn) *Peer {
	return &Peer{
		service:     svc,
		conn:        conn,
		addr:        conn.RemoteAddr().String(),
		sendCh:      make(chan []byte, sendQueueSize),
		closed:      make(chan struct{}),
		sessionData: make(map[string]any),
	}
}

// Address returns the remote endpoint of the connection.
func (p *Peer) Address() string { return p.addr }

// Service returns the service that owns the peer.
func (p *Peer) Service() *Service { return p.service }

// UserID returns the authenticated identity, if any.
func (p *Peer) UserID() (model.XPlatformID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID, p.authenticated
}

// DisplayName returns the display name set at authentication.
func (p *Peer) DisplayName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayName
}

// UpdateUserAuthentication помечает пир аутентифицированным.
// Сервисное событие authenticated стреляет ровно один раз на пир,
// повторные вызовы лишь обновляют identity.
func (p *Peer) UpdateUserAuthentication(userID model.XPlatformID, displayName string) {
	p.mu.Lock()
	first := !p.authenticated
	p.userID = userID
	p.displayName = displayName
	p.authenticated = true
	p.mu.Unlock()
	if first {
		slog.Info("OnServicePeerAuthenticated",
			"service", p.service.Name(), "peer", p.addr, "user_id", userID)
		p.service.OnPeerAuthenticated.Emit(p)
	}
}

// SessionData returns the opaque per-service session slot of the peer.
func (p *Peer) SessionData() (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.sessionData[p.service.Name()]
	return v, ok
}

// SetSessionData stores the opaque per-service session slot.
func (p *Peer) SetSessionData(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionData[p.service.Name()] = v
}

// ClearSessionData drops the per-service session slot.
func (p *Peer) ClearSessionData() {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessionData, p.service.Name())
}

// Send marshals msgs into one packet and enqueues it. Delivery is
// at-most-once and ordered per peer; a full queue closes the peer.
func (p *Peer) Send(msgs ...Message) error {
	data, err := protocol.Marshal(msgs...)
	if err != nil {
		return fmt.Errorf("marshalling packet: %w", err)
	}
	select {
	case <-p.closed:
		return ErrPeerClosed
	case p.sendCh <- data:
	default:
		slog.Warn("peer send queue full, closing", "service", p.service.Name(), "peer", p.addr)
		p.Close()
		return ErrPeerClosed
	}
	slog.Debug("OnServicePacketSent", "service", p.service.Name(), "peer", p.addr, "messages", len(msgs))
	p.service.OnPacketSent.Emit(PacketEvent{Peer: p, Messages: msgs})
	return nil
}

// Close tears the connection down. Safe to call multiple times.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.conn != nil {
			p.conn.Close()
		}
	})
}

// writePump drains the send queue onto the socket in enqueue order.
// Write errors and timeouts close the peer.
func (p *Peer) writePump() {
	for {
		select {
		case <-p.closed:
			return
		case data := <-p.sendCh:
			p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				slog.Debug("peer write failed", "service", p.service.Name(), "peer", p.addr, "error", err)
				p.Close()
				return
			}
		}
	}
}
