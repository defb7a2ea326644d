package messages

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// Коды причин отказа в регистрации игрового сервера.
const (
	RegistrationFailureUnspecified         uint64 = 0
	RegistrationFailureInvalidRequest      uint64 = 1
	RegistrationFailureAlreadyRegistered   uint64 = 2
	RegistrationFailureEndpointUnreachable uint64 = 3
	RegistrationFailureDuplicateServerID   uint64 = 4
)

// GameServerRegistrationRequest — заявка выделенного сервера на регистрацию.
// Адреса — строки с u16-префиксом, external обязан быть публичным.
type GameServerRegistrationRequest struct {
	ServerID        uint64
	InternalAddress string
	ExternalAddress string
	Port            uint16
	RegionSymbol    symbol.Symbol
	VersionLock     symbol.Symbol
	IsPublic        byte
	MaxParticipants uint16
}

func (m *GameServerRegistrationRequest) Symbol() symbol.Symbol {
	return SymGameServerRegistrationRequest
}

func (m *GameServerRegistrationRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamU64(&m.ServerID) },
		func() error { return s.StreamStringU16(&m.InternalAddress) },
		func() error { return s.StreamStringU16(&m.ExternalAddress) },
		func() error { return s.StreamU16(&m.Port) },
		func() error { return s.StreamSymbol(&m.RegionSymbol) },
		func() error { return s.StreamSymbol(&m.VersionLock) },
		func() error { return s.StreamByte(&m.IsPublic) },
		func() error { return s.StreamU16(&m.MaxParticipants) },
	})
}

func (m *GameServerRegistrationRequest) String() string {
	return fmt.Sprintf("GameServerRegistrationRequest(server_id=%d, external=%s:%d, region=%s)",
		m.ServerID, m.ExternalAddress, m.Port, m.RegionSymbol.HexString())
}

// GameServerRegistrationSuccess acknowledges a completed registration.
type GameServerRegistrationSuccess struct {
	ServerID        uint64
	ExternalAddress string
}

func (m *GameServerRegistrationSuccess) Symbol() symbol.Symbol {
	return SymGameServerRegistrationSuccess
}

func (m *GameServerRegistrationSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamU64(&m.ServerID) },
		func() error { return s.StreamStringU16(&m.ExternalAddress) },
	})
}

// GameServerRegistrationFailure refuses a registration; the peer is closed after it.
type GameServerRegistrationFailure struct {
	ReasonCode uint64
	Message    string
}

func (m *GameServerRegistrationFailure) Symbol() symbol.Symbol {
	return SymGameServerRegistrationFailure
}

func (m *GameServerRegistrationFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamU64(&m.ReasonCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}

// GameServerStartSession — команда relay игровому серверу поднять сессию.
type GameServerStartSession struct {
	Session         uuid.UUID
	LevelSymbol     symbol.Symbol
	ModeSymbol      symbol.Symbol
	MaxParticipants uint16
	SessionSettings json.RawMessage
}

func (m *GameServerStartSession) Symbol() symbol.Symbol { return SymGameServerStartSession }

func (m *GameServerStartSession) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return s.StreamSymbol(&m.LevelSymbol) },
		func() error { return s.StreamSymbol(&m.ModeSymbol) },
		func() error { return s.StreamU16(&m.MaxParticipants) },
		func() error { return s.StreamJSONTail(&m.SessionSettings) },
	})
}

func (m *GameServerStartSession) String() string {
	return fmt.Sprintf("GameServerStartSession(session=%s, level=%s, mode=%s)",
		m.Session, m.LevelSymbol.HexString(), m.ModeSymbol.HexString())
}

// GameServerSessionStarted — подтверждение игрового сервера, что сессия поднята.
type GameServerSessionStarted struct {
	Session uuid.UUID
}

func (m *GameServerSessionStarted) Symbol() symbol.Symbol { return SymGameServerSessionStarted }

func (m *GameServerSessionStarted) Stream(s *protocol.Stream) error {
	return s.StreamGUID(&m.Session)
}

// GameServerSessionEnded — игровой сервер сообщает о завершении сессии.
type GameServerSessionEnded struct {
	Session uuid.UUID
}

func (m *GameServerSessionEnded) Symbol() symbol.Symbol { return SymGameServerSessionEnded }

func (m *GameServerSessionEnded) Stream(s *protocol.Stream) error {
	return s.StreamGUID(&m.Session)
}

// GameServerPlayerJoined drives the participant counter up.
type GameServerPlayerJoined struct {
	UserID model.XPlatformID
}

func (m *GameServerPlayerJoined) Symbol() symbol.Symbol { return SymGameServerPlayerJoined }

func (m *GameServerPlayerJoined) Stream(s *protocol.Stream) error {
	return m.UserID.Stream(s)
}

// GameServerPlayerLeft drives the participant counter down.
type GameServerPlayerLeft struct {
	UserID model.XPlatformID
}

func (m *GameServerPlayerLeft) Symbol() symbol.Symbol { return SymGameServerPlayerLeft }

func (m *GameServerPlayerLeft) Stream(s *protocol.Stream) error {
	return m.UserID.Stream(s)
}

// GameServerPlayersLocked закрывает сессию для новых участников.
type GameServerPlayersLocked struct{}

func (m *GameServerPlayersLocked) Symbol() symbol.Symbol { return SymGameServerPlayersLocked }

func (m *GameServerPlayersLocked) Stream(s *protocol.Stream) error { return nil }

// GameServerPlayersUnlocked вновь открывает сессию для участников.
type GameServerPlayersUnlocked struct{}

func (m *GameServerPlayersUnlocked) Symbol() symbol.Symbol { return SymGameServerPlayersUnlocked }

func (m *GameServerPlayersUnlocked) Stream(s *protocol.Stream) error { return nil }

// GameServerUpdateRequest publishes/unpublishes the server or changes capacity.
type GameServerUpdateRequest struct {
	IsPublic        byte
	MaxParticipants uint16
}

func (m *GameServerUpdateRequest) Symbol() symbol.Symbol { return SymGameServerUpdateRequest }

func (m *GameServerUpdateRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamByte(&m.IsPublic) },
		func() error { return s.StreamU16(&m.MaxParticipants) },
	})
}
