package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// MatchingPolicy выбирает порядок ранжирования кандидатов.
type MatchingPolicy int

const (
	// PolicyPopulation — сперва заполняем частично занятые сессии,
	// пинг — вторичный ключ. Политика по умолчанию.
	PolicyPopulation MatchingPolicy = iota
	// PolicyLowPing — сперва минимальный пинг клиента, население вторично.
	PolicyLowPing
)

// MatchingServiceOptions настраивает движок подбора.
type MatchingServiceOptions struct {
	Policy              MatchingPolicy
	ForceIntoAnySession bool
}

// MatchingOutcomeEvent описывает исход одного запроса подбора.
type MatchingOutcomeEvent struct {
	Peer    *Peer
	Kind    string // create, find, join
	Success bool
}

// MatchingService резолвит запросы клиентов на сессии в конкретные
// зарегистрированные серверы: фильтр кандидатов, ранжирование, атомарная
// аллокация через CAS записи реестра и commit обеим сторонам.
type MatchingService struct {
	*Service
	registry *GameServerRegistry
	opts     MatchingServiceOptions

	OnMatchingOutcome Observers[MatchingOutcomeEvent]
}

// NewMatchingService wires the matching service over the registry.
func NewMatchingService(registry *GameServerRegistry, opts MatchingServiceOptions) *MatchingService {
	s := &MatchingService{
		Service:  NewService("matching", "/matching"),
		registry: registry,
		opts:     opts,
	}
	s.SetHandler(s)
	return s
}

// HandleMessage dispatches matching service messages.
func (s *MatchingService) HandleMessage(ctx context.Context, p *Peer, msg Message) {
	switch m := msg.(type) {
	case *messages.LobbyCreateSessionRequest:
		s.handleCreate(p, m)
	case *messages.LobbyFindSessionRequest:
		s.handleFind(p, m)
	case *messages.LobbyJoinSessionRequest:
		s.handleJoin(p, m)
	case *messages.LobbyPingRequest:
		p.Send(&messages.LobbyPingResponse{Nonce: m.Nonce})
	case *messages.LobbyMatchmakerStatusRequest:
		p.Send(&messages.LobbyMatchmakerStatus{})
	case *messages.LobbyPendingSessionCancel:
		slog.Debug("pending session cancelled", "session", m.Session, "peer", p.Address())
	default:
		slog.Debug("unhandled matching message", "symbol", msg.Symbol().HexString(), "peer", p.Address())
	}
}

// constraints — ограничения клиента; по мере fallback'а ослабляются
// в порядке level → mode → region.
type constraints struct {
	region  symbol.Symbol
	version symbol.Symbol
	mode    symbol.Symbol
	level   symbol.Symbol
}

func (c constraints) relaxed() (constraints, bool) {
	switch {
	case c.level != symbol.Nil:
		c.level = symbol.Nil
	case c.mode != symbol.Nil:
		c.mode = symbol.Nil
	case c.region != symbol.Nil:
		c.region = symbol.Nil
	default:
		return c, false
	}
	return c, true
}

// outOfRegionPingPenalty — оценка пинга до сервера вне региона клиента:
// клиент замеряет только свой регион, остальные считаем заведомо хуже.
const outOfRegionPingPenalty = 500

// pingEstimate оценивает пинг клиента до кандидата по замеру из запроса.
func pingEstimate(g *RegisteredGameServer, region symbol.Symbol, pingMS uint16) int {
	if region == symbol.Nil || g.RegionSymbol == region {
		return int(pingMS)
	}
	return outOfRegionPingPenalty + int(pingMS)
}

// rank упорядочивает кандидатов по выбранной политике.
func (s *MatchingService) rank(list []*RegisteredGameServer, region symbol.Symbol, pingMS uint16) {
	switch s.opts.Policy {
	case PolicyLowPing:
		sort.SliceStable(list, func(i, j int) bool {
			pi, pj := pingEstimate(list[i], region, pingMS), pingEstimate(list[j], region, pingMS)
			if pi != pj {
				return pi < pj
			}
			return list[i].ParticipantCount() > list[j].ParticipantCount()
		})
	default:
		sort.SliceStable(list, func(i, j int) bool {
			ci, cj := list[i].ParticipantCount(), list[j].ParticipantCount()
			if ci != cj {
				return ci > cj
			}
			return pingEstimate(list[i], region, pingMS) < pingEstimate(list[j], region, pingMS)
		})
	}
}

func (s *MatchingService) idleCandidates(c constraints) []*RegisteredGameServer {
	var out []*RegisteredGameServer
	for _, g := range s.registry.Snapshot() {
		if !g.IsPublic() || g.State() != SessionIdle {
			continue
		}
		if c.region != symbol.Nil && g.RegionSymbol != c.region {
			continue
		}
		if g.VersionLock != c.version {
			continue
		}
		out = append(out, g)
	}
	return out
}

func (s *MatchingService) activeCandidates(c constraints) []*RegisteredGameServer {
	var out []*RegisteredGameServer
	for _, g := range s.registry.Snapshot() {
		if !g.IsPublic() || g.State() != SessionActive {
			continue
		}
		if c.region != symbol.Nil && g.RegionSymbol != c.region {
			continue
		}
		if g.VersionLock != c.version {
			continue
		}
		_, level, mode := g.Session()
		if c.level != symbol.Nil && level != c.level {
			continue
		}
		if c.mode != symbol.Nil && mode != c.mode {
			continue
		}
		if g.PlayersLocked() || g.ParticipantCount() >= g.MaxParticipants() {
			continue
		}
		out = append(out, g)
	}
	return out
}

func (s *MatchingService) fail(p *Peer, kind string, code uint64, text string) {
	p.Send(&messages.LobbySessionFailure{ReasonCode: code, Message: text})
	s.OnMatchingOutcome.Emit(MatchingOutcomeEvent{Peer: p, Kind: kind})
}

func (s *MatchingService) succeed(p *Peer, kind string, m *messages.LobbySessionSuccess) {
	p.Send(m)
	s.OnMatchingOutcome.Emit(MatchingOutcomeEvent{Peer: p, Kind: kind, Success: true})
}

func (s *MatchingService) handleCreate(p *Peer, m *messages.LobbyCreateSessionRequest) {
	c := constraints{region: m.RegionSymbol, version: m.VersionLock}
	for {
		list := s.idleCandidates(c)
		s.rank(list, m.RegionSymbol, m.PingMS)

		// Проигравшие CAS пробуют следующего кандидата.
		for _, g := range list {
			session, err := uuid.NewV4()
			if err != nil {
				slog.Error("generating game session guid", "error", err)
				s.fail(p, "create", messages.LobbyFailureInternal, "internal error")
				return
			}
			if !g.TryLock(session, m.LevelSymbol, m.ModeSymbol) {
				continue
			}
			s.commitCreate(p, g, session, m)
			return
		}

		if !s.opts.ForceIntoAnySession {
			break
		}
		var more bool
		if c, more = c.relaxed(); !more {
			break
		}
	}
	s.fail(p, "create", messages.LobbyFailureNoServers, "no servers")
}

// commitCreate отправляет серверу команду на поднятие сессии,
// а клиенту — назначение.
func (s *MatchingService) commitCreate(p *Peer, g *RegisteredGameServer, session uuid.UUID, m *messages.LobbyCreateSessionRequest) {
	settings := m.SessionSettings
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	if err := g.Peer().Send(&messages.GameServerStartSession{
		Session:         session,
		LevelSymbol:     m.LevelSymbol,
		ModeSymbol:      m.ModeSymbol,
		MaxParticipants: uint16(g.MaxParticipants()),
		SessionSettings: settings,
	}); err != nil {
		// Сервер умер между CAS и отправкой — запись вернётся в idle,
		// клиент получает отказ и пробует заново.
		g.EndSession()
		s.fail(p, "create", messages.LobbyFailureNoServers, "no servers")
		return
	}
	s.succeed(p, "create", &messages.LobbySessionSuccess{
		Session:   session,
		ServerID:  g.ServerID,
		Endpoint:  g.ExternalAddress,
		Port:      g.Port,
		TeamIndex: m.TeamIndex,
	})
	slog.Info("session allocated",
		"server_id", g.ServerID, "session", session,
		"level", m.LevelSymbol.HexString(), "mode", m.ModeSymbol.HexString())
}

func (s *MatchingService) handleFind(p *Peer, m *messages.LobbyFindSessionRequest) {
	c := constraints{region: m.RegionSymbol, version: m.VersionLock, mode: m.ModeSymbol, level: m.LevelSymbol}
	for {
		list := s.activeCandidates(c)
		s.rank(list, m.RegionSymbol, m.PingMS)
		if len(list) > 0 {
			g := list[0]
			session, _, _ := g.Session()
			s.succeed(p, "find", &messages.LobbySessionSuccess{
				Session:   session,
				ServerID:  g.ServerID,
				Endpoint:  g.ExternalAddress,
				Port:      g.Port,
				TeamIndex: m.TeamIndex,
			})
			return
		}
		if !s.opts.ForceIntoAnySession {
			break
		}
		var more bool
		if c, more = c.relaxed(); !more {
			break
		}
	}
	s.fail(p, "find", messages.LobbyFailureNoServers, "no servers")
}

func (s *MatchingService) handleJoin(p *Peer, m *messages.LobbyJoinSessionRequest) {
	g, ok := s.registry.BySession(m.Session)
	if !ok || g.State() != SessionActive {
		s.fail(p, "join", messages.LobbyFailureSessionEnded, "session not found")
		return
	}
	// Базовый фильтр is_public действует и на join: снятый с публикации
	// сервер недоступен даже по известному session_guid.
	if !g.IsPublic() {
		s.fail(p, "join", messages.LobbyFailureSessionEnded, "session not found")
		return
	}
	if g.PlayersLocked() || g.ParticipantCount() >= g.MaxParticipants() {
		s.fail(p, "join", messages.LobbyFailureNoServers, "session full")
		return
	}
	s.succeed(p, "join", &messages.LobbySessionSuccess{
		Session:   m.Session,
		ServerID:  g.ServerID,
		Endpoint:  g.ExternalAddress,
		Port:      g.Port,
		TeamIndex: m.TeamIndex,
	})
}
