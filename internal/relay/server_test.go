package relay

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/protocol"
	"github.com/udisondev/arenarelay/internal/storage"
)

type testRelay struct {
	addr     string
	server   *Server
	sessions *SessionCache
	registry *GameServerRegistry
	cancel   context.CancelFunc
}

// startTestRelay поднимает полный relay на локальном listener'е.
func startTestRelay(t *testing.T, apiKeyHash string) *testRelay {
	t.Helper()

	store := storage.NewMemory()
	require.NoError(t, store.Open(context.Background()))
	symbols := testSymbols(t)
	sessions := NewSessionCache(time.Hour)
	registry := NewGameServerRegistry()

	login := NewLoginService(store, symbols, sessions, LoginServiceOptions{
		SessionDisconnectedTTL: time.Minute,
		AutoCreateAccounts:     true,
	})
	configSvc := NewConfigService(store, symbols)
	matching := NewMatchingService(registry, MatchingServiceOptions{Policy: PolicyPopulation})
	serverdb := NewServerDBService(registry, symbols, nil, ServerDBServiceOptions{})
	transaction := NewTransactionService()

	srv := NewServer(ServerOptions{APIKeyHash: apiKeyHash}, messages.NewRegistry(), sessions,
		login.Service, configSvc.Service, matching.Service, serverdb.Service, transaction.Service)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop in time")
		}
	})

	return &testRelay{
		addr:     ln.Addr().String(),
		server:   srv,
		sessions: sessions,
		registry: registry,
		cancel:   cancel,
	}
}

func (tr *testRelay) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+tr.addr+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, msgs ...Message) {
	t.Helper()
	data, err := protocol.Marshal(msgs...)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))
}

func wsRead(t *testing.T, conn *websocket.Conn) []Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msgs, err := protocol.ParsePacket(messages.NewRegistry(), data)
	require.NoError(t, err)
	return msgs
}

// S1 по настоящему транспорту: upgrade, логин, тройной ответ.
func TestServerLoginOverWebSocket(t *testing.T) {
	tr := startTestRelay(t, "")
	conn := tr.dial(t, "/login")
	user := testUser(500)

	wsSend(t, conn, &messages.LoginRequest{
		Session:     uuid.Must(uuid.NewV4()),
		UserID:      user,
		AccountInfo: json.RawMessage(`{}`),
	})

	msgs := wsRead(t, conn)
	require.Len(t, msgs, 3)
	success := msgs[0].(*messages.LoginSuccess)
	assert.Equal(t, user, success.UserID)
	assert.True(t, tr.sessions.Validate(success.Session, user))
}

func TestServerUnknownPathRejected(t *testing.T) {
	tr := startTestRelay(t, "")
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+tr.addr+"/nonexistent", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerDBAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	require.NoError(t, err)
	tr := startTestRelay(t, string(hash))

	// Без ключа и с неверным ключом — 401 до апгрейда.
	for _, path := range []string{"/serverdb", "/serverdb?apikey=wrong"} {
		_, resp, err := websocket.DefaultDialer.Dial("ws://"+tr.addr+path, nil)
		require.Error(t, err, "path %s", path)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// С верным ключом апгрейд проходит.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+tr.addr+"/serverdb?apikey=sekrit", nil)
	require.NoError(t, err)
	conn.Close()

	// Ключ не требуется на клиентских путях.
	tr.dial(t, "/login")
}

// Рассинхронизация фрейминга закрывает соединение без ответа.
func TestServerMalformedFramingClosesPeer(t *testing.T) {
	tr := startTestRelay(t, "")
	conn := tr.dial(t, "/login")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("garbage packet")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// Неизвестный тип сообщения не фатален: соединение живо, сообщение пропущено.
func TestServerUnknownMessageIgnored(t *testing.T) {
	tr := startTestRelay(t, "")
	conn := tr.dial(t, "/login")

	unknown := &protocol.Unknown{TypeSymbol: 0xdeadbeefdeadbeef, Payload: []byte{1, 2, 3}}
	wsSend(t, conn, unknown)

	// Следом обычный логин — сервис отвечает как ни в чём не бывало.
	user := testUser(501)
	wsSend(t, conn, &messages.LoginRequest{UserID: user, AccountInfo: json.RawMessage(`{}`)})
	msgs := wsRead(t, conn)
	require.Len(t, msgs, 3)
	assert.Equal(t, user, msgs[0].(*messages.LoginSuccess).UserID)
}

// S6 через полный цикл: дисконнект ServerDB-пира снимает регистрацию,
// сессия логина клиента не страдает.
func TestServerGameServerDisconnectCleanup(t *testing.T) {
	tr := startTestRelay(t, "")

	// Логиним клиента.
	client := tr.dial(t, "/login")
	user := testUser(502)
	wsSend(t, client, &messages.LoginRequest{UserID: user, AccountInfo: json.RawMessage(`{}`)})
	loginMsgs := wsRead(t, client)
	session := loginMsgs[0].(*messages.LoginSuccess).Session

	// Регистрируем игровой сервер.
	gs := tr.dial(t, "/serverdb")
	wsSend(t, gs, &messages.GameServerRegistrationRequest{
		ServerID:        42,
		InternalAddress: "10.0.0.5",
		ExternalAddress: "203.0.113.7",
		Port:            6792,
		RegionSymbol:    regionUS,
		VersionLock:     versionV1,
		IsPublic:        1,
		MaxParticipants: 12,
	})
	regMsgs := wsRead(t, gs)
	_, ok := regMsgs[0].(*messages.GameServerRegistrationSuccess)
	require.True(t, ok, "got %T", regMsgs[0])

	require.Eventually(t, func() bool { return tr.registry.Count() == 1 }, time.Second, 10*time.Millisecond)

	// Обрываем соединение игрового сервера.
	gs.Close()
	require.Eventually(t, func() bool { return tr.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Сессия клиента жива.
	assert.True(t, tr.sessions.Validate(session, user))
}
