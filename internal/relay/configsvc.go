package relay

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/storage"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// ConfigService отдаёт конфигурационные ресурсы по (type, identifier).
// Только чтение из хранилища.
type ConfigService struct {
	*Service
	store   storage.Storage
	symbols *symbol.Cache
}

// NewConfigService wires the config service over storage.
func NewConfigService(store storage.Storage, symbols *symbol.Cache) *ConfigService {
	s := &ConfigService{
		Service: NewService("config", "/config"),
		store:   store,
		symbols: symbols,
	}
	s.SetHandler(s)
	return s
}

// HandleMessage dispatches config service messages.
func (s *ConfigService) HandleMessage(ctx context.Context, p *Peer, msg Message) {
	m, ok := msg.(*messages.ConfigRequest)
	if !ok {
		slog.Debug("unhandled config message", "symbol", msg.Symbol().HexString(), "peer", p.Address())
		return
	}

	typeSym := s.symbols.Resolve(m.Type)
	idSym := s.symbols.Resolve(m.Identifier)

	var res model.ConfigResource
	key := m.Type + ":" + m.Identifier
	if err := s.store.GetKeyed(ctx, storage.CollectionConfigs, key, &res); err != nil {
		status := uint64(http.StatusInternalServerError)
		text := "Internal Server Error"
		if errors.Is(err, storage.ErrNotFound) {
			status, text = http.StatusNotFound, "Config Not Found"
		} else {
			slog.Error("loading config resource", "key", key, "error", err)
		}
		p.Send(&messages.ConfigFailure{TypeSymbol: typeSym, IDSymbol: idSym, StatusCode: status, Message: text})
		return
	}
	p.Send(&messages.ConfigSuccess{TypeSymbol: typeSym, IDSymbol: idSym, Config: res.Data})
}
