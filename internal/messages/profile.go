package messages

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// LoggedInUserProfileRequest запрашивает полный профиль владельца сессии.
type LoggedInUserProfileRequest struct {
	Session uuid.UUID
	UserID  model.XPlatformID
}

func (m *LoggedInUserProfileRequest) Symbol() symbol.Symbol { return SymLoggedInUserProfileRequest }

func (m *LoggedInUserProfileRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return m.UserID.Stream(s) },
	})
}

// LoggedInUserProfileSuccess returns both sub-profiles of the account.
type LoggedInUserProfileSuccess struct {
	UserID  model.XPlatformID
	Profile model.AccountProfile
}

func (m *LoggedInUserProfileSuccess) Symbol() symbol.Symbol { return SymLoggedInUserProfileSuccess }

func (m *LoggedInUserProfileSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamJSONTail(&m.Profile) },
	})
}

// LoggedInUserProfileFailure reports a profile fetch failure.
type LoggedInUserProfileFailure struct {
	UserID     model.XPlatformID
	StatusCode uint64
	Message    string
}

func (m *LoggedInUserProfileFailure) Symbol() symbol.Symbol { return SymLoggedInUserProfileFailure }

func (m *LoggedInUserProfileFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamU64(&m.StatusCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}

func (m *LoggedInUserProfileFailure) String() string {
	return fmt.Sprintf("LoggedInUserProfileFailure(user_id=%s, status=%d, message=%q)",
		m.UserID, m.StatusCode, m.Message)
}

// OtherUserProfileRequest запрашивает чужой профиль; сессия не проверяется,
// в ответ уходит только серверная часть.
type OtherUserProfileRequest struct {
	UserID model.XPlatformID
}

func (m *OtherUserProfileRequest) Symbol() symbol.Symbol { return SymOtherUserProfileRequest }

func (m *OtherUserProfileRequest) Stream(s *protocol.Stream) error {
	return m.UserID.Stream(s)
}

// OtherUserProfileSuccess returns the server sub-profile of another account.
type OtherUserProfileSuccess struct {
	UserID        model.XPlatformID
	ServerProfile json.RawMessage
}

func (m *OtherUserProfileSuccess) Symbol() symbol.Symbol { return SymOtherUserProfileSuccess }

func (m *OtherUserProfileSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamJSONTail(&m.ServerProfile) },
	})
}

// OtherUserProfileFailure reports a failed lookup of another account.
type OtherUserProfileFailure struct {
	UserID     model.XPlatformID
	StatusCode uint64
	Message    string
}

func (m *OtherUserProfileFailure) Symbol() symbol.Symbol { return SymOtherUserProfileFailure }

func (m *OtherUserProfileFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamU64(&m.StatusCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}

// UpdateProfileRequest replaces the client sub-profile of the session owner.
type UpdateProfileRequest struct {
	Session       uuid.UUID
	UserID        model.XPlatformID
	ClientProfile json.RawMessage
}

func (m *UpdateProfileRequest) Symbol() symbol.Symbol { return SymUpdateProfileRequest }

func (m *UpdateProfileRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamJSONTail(&m.ClientProfile) },
	})
}

// UpdateProfileSuccess acknowledges a client profile replacement.
type UpdateProfileSuccess struct {
	UserID model.XPlatformID
}

func (m *UpdateProfileSuccess) Symbol() symbol.Symbol { return SymUpdateProfileSuccess }

func (m *UpdateProfileSuccess) Stream(s *protocol.Stream) error {
	return m.UserID.Stream(s)
}

// UpdateProfileFailure reports a rejected client profile replacement.
type UpdateProfileFailure struct {
	UserID     model.XPlatformID
	StatusCode uint64
	Message    string
}

func (m *UpdateProfileFailure) Symbol() symbol.Symbol { return SymUpdateProfileFailure }

func (m *UpdateProfileFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamU64(&m.StatusCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}

// UserServerProfileUpdateRequest — дельта серверного профиля от игрового
// сервера по итогам матча. Накладывается рекурсивным merge.
type UserServerProfileUpdateRequest struct {
	UserID model.XPlatformID
	Delta  json.RawMessage
}

func (m *UserServerProfileUpdateRequest) Symbol() symbol.Symbol { return SymServerProfileUpdateRequest }

func (m *UserServerProfileUpdateRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamJSONTail(&m.Delta) },
	})
}

// UserServerProfileUpdateSuccess acknowledges a server profile merge.
type UserServerProfileUpdateSuccess struct {
	UserID model.XPlatformID
}

func (m *UserServerProfileUpdateSuccess) Symbol() symbol.Symbol { return SymServerProfileUpdateSuccess }

func (m *UserServerProfileUpdateSuccess) Stream(s *protocol.Stream) error {
	return m.UserID.Stream(s)
}
