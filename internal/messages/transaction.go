package messages

import (
	"encoding/json"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// ReconcileIAP — транзакционное сообщение покупок. Relay лишь подтверждает
// его нулевым результатом-заглушкой, персистентность транзакций вне задач сервера.
type ReconcileIAP struct {
	Session uuid.UUID
	UserID  model.XPlatformID
}

func (m *ReconcileIAP) Symbol() symbol.Symbol { return SymReconcileIAP }

func (m *ReconcileIAP) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return s.StreamGUID(&m.Session) },
		func() error { return m.UserID.Stream(s) },
	})
}

// ReconcileIAPResult acknowledges a transaction message.
type ReconcileIAPResult struct {
	UserID  model.XPlatformID
	IAPData json.RawMessage
}

func (m *ReconcileIAPResult) Symbol() symbol.Symbol { return SymReconcileIAPResult }

func (m *ReconcileIAPResult) Stream(s *protocol.Stream) error {
	return protocol.RunFuncs([]func() error{
		func() error { return m.UserID.Stream(s) },
		func() error { return s.StreamJSONTail(&m.IAPData) },
	})
}
