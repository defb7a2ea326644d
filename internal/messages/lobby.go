package messages

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// Коды причин LobbySessionFailure.
const (
	LobbyFailureUnspecified   uint64 = 0
	LobbyFailureNoServers     uint64 = 1
	LobbyFailureSessionEnded  uint64 = 2
	LobbyFailureNotAuthorized uint64 = 3
	LobbyFailureInternal      uint64 = 4
)

// LobbyCreateSessionRequest — запрос новой игровой сессии.
// PingMS — замер клиента до предпочитаемого региона, участвует в ранжировании.
type LobbyCreateSessionRequest struct {
	RegionSymbol    symbol.Symbol
	VersionLock     symbol.Symbol
	ModeSymbol      symbol.Symbol
	LevelSymbol     symbol.Symbol
	TeamIndex       int16
	PingMS          uint16
	SessionSettings json.RawMessage
}

func (m *LobbyCreateSessionRequest) Symbol() symbol.Symbol { return SymLobbyCreateSessionRequest }

func (m *LobbyCreateSessionRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamSymbol(&m.RegionSymbol) },
		func() error { return s.StreamSymbol(&m.VersionLock) },
		func() error { return s.StreamSymbol(&m.ModeSymbol) },
		func() error { return s.StreamSymbol(&m.LevelSymbol) },
		func() error { return s.StreamI16(&m.TeamIndex) },
		func() error { return s.StreamU16(&m.PingMS) },
		func() error { return s.StreamJSONTail(&m.SessionSettings) },
	})
}

func (m *LobbyCreateSessionRequest) String() string {
	return fmt.Sprintf("LobbyCreateSessionRequest(region=%s, mode=%s, level=%s)",
		m.RegionSymbol.HexString(), m.ModeSymbol.HexString(), m.LevelSymbol.HexString())
}

// LobbyFindSessionRequest — запрос на подбор уже идущей сессии.
type LobbyFindSessionRequest struct {
	RegionSymbol   symbol.Symbol
	VersionLock    symbol.Symbol
	ModeSymbol     symbol.Symbol
	LevelSymbol    symbol.Symbol
	TeamIndex      int16
	PingMS         uint16
	CurrentSession uuid.UUID
}

func (m *LobbyFindSessionRequest) Symbol() symbol.Symbol { return SymLobbyFindSessionRequest }

func (m *LobbyFindSessionRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamSymbol(&m.RegionSymbol) },
		func() error { return s.StreamSymbol(&m.VersionLock) },
		func() error { return s.StreamSymbol(&m.ModeSymbol) },
		func() error { return s.StreamSymbol(&m.LevelSymbol) },
		func() error { return s.StreamI16(&m.TeamIndex) },
		func() error { return s.StreamU16(&m.PingMS) },
		func() error { return s.StreamGUID(&m.CurrentSession) },
	})
}

// LobbyJoinSessionRequest — запрос на вход в конкретную сессию по её GUID.
type LobbyJoinSessionRequest struct {
	Session   uuid.UUID
	TeamIndex int16
	PingMS    uint16
}

func (m *LobbyJoinSessionRequest) Symbol() symbol.Symbol { return SymLobbyJoinSessionRequest }

func (m *LobbyJoinSessionRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return s.StreamI16(&m.TeamIndex) },
		func() error { return s.StreamU16(&m.PingMS) },
	})
}

// LobbySessionSuccess сообщает клиенту назначенный сервер и сессию.
type LobbySessionSuccess struct {
	Session   uuid.UUID
	ServerID  uint64
	Endpoint  string
	Port      uint16
	TeamIndex int16
}

func (m *LobbySessionSuccess) Symbol() symbol.Symbol { return SymLobbySessionSuccess }

func (m *LobbySessionSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return s.StreamU64(&m.ServerID) },
		func() error { return s.StreamStringU16(&m.Endpoint) },
		func() error { return s.StreamU16(&m.Port) },
		func() error { return s.StreamI16(&m.TeamIndex) },
	})
}

func (m *LobbySessionSuccess) String() string {
	return fmt.Sprintf("LobbySessionSuccess(session=%s, server_id=%d, endpoint=%s:%d)",
		m.Session, m.ServerID, m.Endpoint, m.Port)
}

// LobbySessionFailure reports that no session could be allocated or joined.
type LobbySessionFailure struct {
	ReasonCode uint64
	Message    string
}

func (m *LobbySessionFailure) Symbol() symbol.Symbol { return SymLobbySessionFailure }

func (m *LobbySessionFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamU64(&m.ReasonCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}

// LobbyPendingSessionCancel отменяет ожидающий запрос сессии.
type LobbyPendingSessionCancel struct {
	Session uuid.UUID
}

func (m *LobbyPendingSessionCancel) Symbol() symbol.Symbol { return SymLobbyPendingSessionCancel }

func (m *LobbyPendingSessionCancel) Stream(s *protocol.Stream) error {
	return s.StreamGUID(&m.Session)
}

// LobbyPingRequest / LobbyPingResponse — измерение задержки клиентом.
type LobbyPingRequest struct {
	Nonce uint64
}

func (m *LobbyPingRequest) Symbol() symbol.Symbol { return SymLobbyPingRequest }

func (m *LobbyPingRequest) Stream(s *protocol.Stream) error {
	return s.StreamU64(&m.Nonce)
}

// LobbyPingResponse echoes the nonce back.
type LobbyPingResponse struct {
	Nonce uint64
}

func (m *LobbyPingResponse) Symbol() symbol.Symbol { return SymLobbyPingResponse }

func (m *LobbyPingResponse) Stream(s *protocol.Stream) error {
	return s.StreamU64(&m.Nonce)
}

// LobbyMatchmakerStatusRequest asks for the matchmaker state. Empty body.
type LobbyMatchmakerStatusRequest struct{}

func (m *LobbyMatchmakerStatusRequest) Symbol() symbol.Symbol { return SymLobbyMatchmakerStatusReq }

func (m *LobbyMatchmakerStatusRequest) Stream(s *protocol.Stream) error { return nil }

// LobbyMatchmakerStatus reports the matchmaker state.
type LobbyMatchmakerStatus struct {
	StatusCode uint32
}

func (m *LobbyMatchmakerStatus) Symbol() symbol.Symbol { return SymLobbyMatchmakerStatus }

func (m *LobbyMatchmakerStatus) Stream(s *protocol.Stream) error {
	return s.StreamU32(&m.StatusCode)
}
