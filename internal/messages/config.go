package messages

import (
	"encoding/json"

	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// ConfigRequest запрашивает конфигурационный ресурс по (type, identifier).
// Оба поля — строки с u16-префиксом длины.
type ConfigRequest struct {
	Type       string
	Identifier string
}

func (m *ConfigRequest) Symbol() symbol.Symbol { return SymConfigRequest }

func (m *ConfigRequest) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamStringU16(&m.Type) },
		func() error { return s.StreamStringU16(&m.Identifier) },
	})
}

// ConfigSuccess returns the resolved resource with its symbol pair.
type ConfigSuccess struct {
	TypeSymbol symbol.Symbol
	IDSymbol   symbol.Symbol
	Config     json.RawMessage
}

func (m *ConfigSuccess) Symbol() symbol.Symbol { return SymConfigSuccess }

func (m *ConfigSuccess) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamSymbol(&m.TypeSymbol) },
		func() error { return s.StreamSymbol(&m.IDSymbol) },
		func() error { return s.StreamJSONTail(&m.Config) },
	})
}

// ConfigFailure reports a missing config resource.
type ConfigFailure struct {
	TypeSymbol symbol.Symbol
	IDSymbol   symbol.Symbol
	StatusCode uint64
	Message    string
}

func (m *ConfigFailure) Symbol() symbol.Symbol { return SymConfigFailure }

func (m *ConfigFailure) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamSymbol(&m.TypeSymbol) },
		func() error { return s.StreamSymbol(&m.IDSymbol) },
		func() error { return s.StreamU64(&m.StatusCode) },
		func() error { return s.StreamStringU16(&m.Message) },
	})
}
