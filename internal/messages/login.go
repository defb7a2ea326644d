package messages

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// LoginRequest — запрос аутентификации. Session — client_session_guid
// предыдущего подключения (или нулевой), AccountInfo — JSON с данными клиента.
type LoginRequest struct {
	Session     uuid.UUID
	UserID      model.XPlatformID
	AccountInfo json.RawMessage
}

func (m *LoginRequest) Symbol() symbol.Symbol { return SymLoginRequest }

func (m *LoginRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamJSONTail(&m.AccountInfo) },
	})
}

func (m *LoginRequest) String() string {
	return fmt.Sprintf("LoginRequest(session=%s, user_id=%s)", m.Session, m.UserID)
}

// LoginSuccess carries the freshly issued session GUID back to the client.
type LoginSuccess struct {
	Session uuid.UUID
	UserID  model.XPlatformID
}

func (m *LoginSuccess) Symbol() symbol.Symbol { return SymLoginSuccess }

func (m *LoginSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return m.UserID.Stream(s) },
	})
}

func (m *LoginSuccess) String() string {
	return fmt.Sprintf("LoginSuccess(session=%s, user_id=%s)", m.Session, m.UserID)
}

// LoginFailure reports an authentication failure with an HTTP-style status.
// Message — строка с u16-префиксом длины.
type LoginFailure struct {
	UserID     model.XPlatformID
	StatusCode uint64
	Message    string
}

func (m *LoginFailure) Symbol() symbol.Symbol { return SymLoginFailure }

func (m *LoginFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamU64(&m.StatusCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}

func (m *LoginFailure) String() string {
	return fmt.Sprintf("LoginFailure(user_id=%s, status=%d, message=%q)", m.UserID, m.StatusCode, m.Message)
}

// LoginSettings broadcasts the current login settings after a successful login.
type LoginSettings struct {
	Settings model.LoginSettingsResource
}

func (m *LoginSettings) Symbol() symbol.Symbol { return SymLoginSettings }

func (m *LoginSettings) Stream(s *protocol.Stream) error {
	return s.StreamJSONTail(&m.Settings)
}

// TCPConnectionUnrequireEvent — управляющее сообщение, разрешающее транспорту
// продолжать. Тело — один неиспользуемый байт.
type TCPConnectionUnrequireEvent struct {
	Unused byte
}

func (m *TCPConnectionUnrequireEvent) Symbol() symbol.Symbol { return SymTCPConnectionUnrequire }

func (m *TCPConnectionUnrequireEvent) Stream(s *protocol.Stream) error {
	return s.StreamByte(&m.Unused)
}

// ChannelInfoRequest asks for the channel listing. Empty body.
type ChannelInfoRequest struct{}

func (m *ChannelInfoRequest) Symbol() symbol.Symbol { return SymChannelInfoRequest }

func (m *ChannelInfoRequest) Stream(s *protocol.Stream) error { return nil }

// ChannelInfoResponse returns the channel listing as a JSON document.
type ChannelInfoResponse struct {
	ChannelInfo model.ChannelInfoResource
}

func (m *ChannelInfoResponse) Symbol() symbol.Symbol { return SymChannelInfoResponse }

func (m *ChannelInfoResponse) Stream(s *protocol.Stream) error {
	return s.StreamJSONTail(&m.ChannelInfo)
}

// DocumentRequest asks for a localized document. Both fields are
// u16-length-prefixed strings.
type DocumentRequest struct {
	Language string
	Type     string
}

func (m *DocumentRequest) Symbol() symbol.Symbol { return SymDocumentRequest }

func (m *DocumentRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamStringU16(&m.Language) },
		func() error { return s.StreamStringU16(&m.Type) },
	})
}

// DocumentSuccess returns a document: its type symbol plus the JSON body.
type DocumentSuccess struct {
	TypeSymbol symbol.Symbol
	Document   json.RawMessage
}

func (m *DocumentSuccess) Symbol() symbol.Symbol { return SymDocumentSuccess }

func (m *DocumentSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamSymbol(&m.TypeSymbol) },
		func() error { return s.StreamJSONTail(&m.Document) },
	})
}

// DocumentFailure reports a missing or unresolvable document.
type DocumentFailure struct {
	Message string
}

func (m *DocumentFailure) Symbol() symbol.Symbol { return SymDocumentFailure }

func (m *DocumentFailure) Stream(s *protocol.Stream) error {
	return s.StreamStringU16(&m.Message)
}

// RemoteLogSet — пачка клиентских лог-строк. Logs — JSON-массив строк,
// каждая строка сама по себе JSON-документ лог-записи.
type RemoteLogSet struct {
	UserID   model.XPlatformID
	LogLevel uint64
	Logs     []string
}

func (m *RemoteLogSet) Symbol() symbol.Symbol { return SymRemoteLogSet }

func (m *RemoteLogSet) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamU64(&m.LogLevel) },
		func() error { return s.StreamJSONTail(&m.Logs) },
	})
}
