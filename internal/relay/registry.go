package relay

import (
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// SessionState — состояние сессии на зарегистрированном игровом сервере.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionLocked
	SessionActive
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionLocked:
		return "session-locked"
	case SessionActive:
		return "session-active"
	default:
		return "unknown"
	}
}

// RegisteredGameServer — запись реестра об одном игровом сервере.
// state переключается атомарно (CAS idle→locked при аллокации);
// остальные изменяемые поля защищены собственным mutex записи.
// Запись ссылается на владеющий ServerDB-пир только для lookup:
// дисконнект пира удаляет запись, обратное неверно.
type RegisteredGameServer struct {
	ServerID        uint64
	InternalAddress string
	ExternalAddress string
	Port            uint16
	RegionSymbol    symbol.Symbol
	VersionLock     symbol.Symbol

	peer  *Peer
	state atomic.Int32

	mu              sync.Mutex
	isPublic        bool
	maxParticipants int
	playersLocked   bool
	sessionGUID     uuid.UUID
	levelSymbol     symbol.Symbol
	modeSymbol      symbol.Symbol
	participants    map[model.XPlatformID]struct{}
}

// Peer returns the ServerDB peer that registered the server.
func (g *RegisteredGameServer) Peer() *Peer { return g.peer }

// State returns the committed session state.
func (g *RegisteredGameServer) State() SessionState {
	return SessionState(g.state.Load())
}

// TryLock выполняет CAS idle→session-locked и, при успехе, записывает
// параметры будущей сессии. Конкуренты, проигравшие CAS, получают false.
func (g *RegisteredGameServer) TryLock(session uuid.UUID, level, mode symbol.Symbol) bool {
	if !g.state.CompareAndSwap(int32(SessionIdle), int32(SessionLocked)) {
		return false
	}
	g.mu.Lock()
	g.sessionGUID = session
	g.levelSymbol = level
	g.modeSymbol = mode
	g.playersLocked = false
	g.mu.Unlock()
	return true
}

// MarkStarted переводит locked→active по подтверждению игрового сервера.
func (g *RegisteredGameServer) MarkStarted(session uuid.UUID) bool {
	g.mu.Lock()
	match := g.sessionGUID == session
	g.mu.Unlock()
	if !match {
		return false
	}
	return g.state.CompareAndSwap(int32(SessionLocked), int32(SessionActive))
}

// EndSession возвращает сервер в idle и стирает параметры сессии.
// Счётчик участников не трогаем: игроки остаются подключёнными к процессу
// сервера и после конца матча, их уход приходит отдельными событиями.
func (g *RegisteredGameServer) EndSession() {
	g.mu.Lock()
	g.sessionGUID = uuid.Nil
	g.levelSymbol = symbol.Nil
	g.modeSymbol = symbol.Nil
	g.playersLocked = false
	g.mu.Unlock()
	g.state.Store(int32(SessionIdle))
}

// Session returns the current session parameters.
func (g *RegisteredGameServer) Session() (guid uuid.UUID, level, mode symbol.Symbol) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionGUID, g.levelSymbol, g.modeSymbol
}

// PlayerJoined adds a participant and returns the new count.
func (g *RegisteredGameServer) PlayerJoined(id model.XPlatformID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.participants == nil {
		g.participants = make(map[model.XPlatformID]struct{})
	}
	g.participants[id] = struct{}{}
	return len(g.participants)
}

// PlayerLeft removes a participant and reports the remaining count.
func (g *RegisteredGameServer) PlayerLeft(id model.XPlatformID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.participants, id)
	return len(g.participants)
}

// ParticipantCount returns the live participant count.
func (g *RegisteredGameServer) ParticipantCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.participants)
}

// SetPlayersLocked toggles admission of new participants.
func (g *RegisteredGameServer) SetPlayersLocked(locked bool) {
	g.mu.Lock()
	g.playersLocked = locked
	g.mu.Unlock()
}

// PlayersLocked reports whether admission is closed.
func (g *RegisteredGameServer) PlayersLocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersLocked
}

// SetPublic publishes or unpublishes the server for matching.
func (g *RegisteredGameServer) SetPublic(public bool) {
	g.mu.Lock()
	g.isPublic = public
	g.mu.Unlock()
}

// IsPublic reports whether the server participates in matching.
func (g *RegisteredGameServer) IsPublic() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isPublic
}

// SetMaxParticipants changes the capacity limit.
func (g *RegisteredGameServer) SetMaxParticipants(n int) {
	g.mu.Lock()
	g.maxParticipants = n
	g.mu.Unlock()
}

// MaxParticipants returns the capacity limit.
func (g *RegisteredGameServer) MaxParticipants() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxParticipants
}

// GameServerRegistry — реестр живых игровых серверов ServerDB-сервиса.
// Индексы под RWMutex: lookups берут читающую блокировку,
// register/unregister — пишущую.
type GameServerRegistry struct {
	mu        sync.RWMutex
	byID      map[uint64]*RegisteredGameServer
	byRegion  map[symbol.Symbol]map[uint64]*RegisteredGameServer
	byVersion map[symbol.Symbol]map[uint64]*RegisteredGameServer
	byPeer    map[*Peer]*RegisteredGameServer

	OnGameServerRegistered   Observers[*RegisteredGameServer]
	OnGameServerUnregistered Observers[*RegisteredGameServer]
}

// NewGameServerRegistry creates an empty registry.
func NewGameServerRegistry() *GameServerRegistry {
	return &GameServerRegistry{
		byID:      make(map[uint64]*RegisteredGameServer),
		byRegion:  make(map[symbol.Symbol]map[uint64]*RegisteredGameServer),
		byVersion: make(map[symbol.Symbol]map[uint64]*RegisteredGameServer),
		byPeer:    make(map[*Peer]*RegisteredGameServer),
	}
}

// Register вносит запись в реестр и индексы.
// false, если server_id занят или пир уже зарегистрирован.
func (r *GameServerRegistry) Register(g *RegisteredGameServer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[g.ServerID]; exists {
		return false
	}
	if _, exists := r.byPeer[g.peer]; exists {
		return false
	}
	r.byID[g.ServerID] = g
	r.byPeer[g.peer] = g
	if r.byRegion[g.RegionSymbol] == nil {
		r.byRegion[g.RegionSymbol] = make(map[uint64]*RegisteredGameServer)
	}
	r.byRegion[g.RegionSymbol][g.ServerID] = g
	if r.byVersion[g.VersionLock] == nil {
		r.byVersion[g.VersionLock] = make(map[uint64]*RegisteredGameServer)
	}
	r.byVersion[g.VersionLock][g.ServerID] = g
	return true
}

// Unregister убирает запись пира из реестра. Возвращает снятую запись.
func (r *GameServerRegistry) Unregister(p *Peer) *RegisteredGameServer {
	r.mu.Lock()
	g, ok := r.byPeer[p]
	if ok {
		delete(r.byPeer, p)
		delete(r.byID, g.ServerID)
		delete(r.byRegion[g.RegionSymbol], g.ServerID)
		delete(r.byVersion[g.VersionLock], g.ServerID)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return g
}

// ByID returns the record registered under server_id.
func (r *GameServerRegistry) ByID(id uint64) (*RegisteredGameServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byID[id]
	return g, ok
}

// ByPeer returns the record owned by the given ServerDB peer.
func (r *GameServerRegistry) ByPeer(p *Peer) (*RegisteredGameServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byPeer[p]
	return g, ok
}

// BySession finds the record currently bound to a game session GUID.
func (r *GameServerRegistry) BySession(session uuid.UUID) (*RegisteredGameServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.byID {
		if g.State() == SessionIdle {
			continue
		}
		guid, _, _ := g.Session()
		if guid == session {
			return g, true
		}
	}
	return nil, false
}

// Snapshot returns every registered record.
func (r *GameServerRegistry) Snapshot() []*RegisteredGameServer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RegisteredGameServer, 0, len(r.byID))
	for _, g := range r.byID {
		out = append(out, g)
	}
	return out
}

// Count returns the number of registered servers.
func (r *GameServerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
