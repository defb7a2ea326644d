package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/udisondev/arenarelay/internal/messages"
)

// TransactionService принимает транзакционные сообщения и подтверждает их
// нулевым результатом-заглушкой (balance и transactionid равны 0). Персистентность транзакций вне задач relay.
type TransactionService struct {
	*Service
}

// NewTransactionService creates the placeholder transaction service.
func NewTransactionService() *TransactionService {
	s := &TransactionService{Service: NewService("transaction", "/transaction")}
	s.SetHandler(s)
	return s
}

// HandleMessage dispatches transaction service messages.
func (s *TransactionService) HandleMessage(ctx context.Context, p *Peer, msg Message) {
	m, ok := msg.(*messages.ReconcileIAP)
	if !ok {
		slog.Debug("unhandled transaction message", "symbol", msg.Symbol().HexString(), "peer", p.Address())
		return
	}
	p.Send(&messages.ReconcileIAPResult{
		UserID:  m.UserID,
		IAPData: json.RawMessage(`{"balance":0,"transactionid":0}`),
	})
}
