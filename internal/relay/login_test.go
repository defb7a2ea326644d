package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/storage"
)

func newTestLogin(t *testing.T) (*LoginService, *storage.Memory, *SessionCache) {
	t.Helper()
	store := storage.NewMemory()
	sessions := NewSessionCache(time.Hour)
	svc := NewLoginService(store, testSymbols(t), sessions, LoginServiceOptions{
		SessionDisconnectedTTL: 10 * time.Minute,
		AutoCreateAccounts:     true,
	})
	return svc, store, sessions
}

func doLogin(t *testing.T, svc *LoginService, p *Peer, user model.XPlatformID) uuid.UUID {
	t.Helper()
	svc.HandleMessage(context.Background(), p, &messages.LoginRequest{
		Session:     uuid.Must(uuid.NewV4()),
		UserID:      user,
		AccountInfo: json.RawMessage(`{"headsetid":"test"}`),
	})
	msgs := waitSentMessages(t, p)
	require.GreaterOrEqual(t, len(msgs), 3)
	success, ok := msgs[0].(*messages.LoginSuccess)
	require.True(t, ok, "expected LoginSuccess, got %T", msgs[0])
	return success.Session
}

// S1: happy login — success, unrequire, settings; кэш содержит session→user.
func TestLoginHappyPath(t *testing.T) {
	svc, store, sessions := newTestLogin(t)
	p := newFakePeer(svc.Service)
	user := testUser(100)
	clientSession := uuid.Must(uuid.NewV4())

	svc.HandleMessage(context.Background(), p, &messages.LoginRequest{
		Session: clientSession, UserID: user, AccountInfo: json.RawMessage(`{}`),
	})

	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 3)

	success := msgs[0].(*messages.LoginSuccess)
	assert.Equal(t, user, success.UserID)
	assert.NotEqual(t, clientSession, success.Session)
	assert.NotEqual(t, uuid.Nil, success.Session)

	_, ok := msgs[1].(*messages.TCPConnectionUnrequireEvent)
	assert.True(t, ok)
	_, ok = msgs[2].(*messages.LoginSettings)
	assert.True(t, ok)

	assert.True(t, sessions.Validate(success.Session, user))

	// Аккаунт автоздан и сохранён.
	var account model.AccountResource
	require.NoError(t, store.GetKeyed(context.Background(), storage.CollectionAccounts, user.String(), &account))
	id, err := account.ServerProfileID()
	require.NoError(t, err)
	assert.Equal(t, user, id)

	_, authed := p.UserID()
	assert.True(t, authed)
}

// Повторный логин аннулирует прежнюю сессию пира; guid'ы различны.
func TestLoginInvalidatesPriorSession(t *testing.T) {
	svc, _, sessions := newTestLogin(t)
	p := newFakePeer(svc.Service)
	user := testUser(100)

	first := doLogin(t, svc, p, user)
	second := doLogin(t, svc, p, user)

	assert.NotEqual(t, first, second)
	assert.False(t, sessions.Validate(first, user))
	assert.True(t, sessions.Validate(second, user))
}

// Property 6: deny в ACL даёт 403 до какого-либо чтения профиля.
func TestLoginACLDenied(t *testing.T) {
	svc, store, sessions := newTestLogin(t)
	ctx := context.Background()
	user := testUser(666)

	require.NoError(t, store.Set(ctx, storage.ResourceAccessControls, &model.AccessControlList{
		Allow: []string{"*"},
		Deny:  []string{user.String()},
	}))

	p := newFakePeer(svc.Service)
	svc.HandleMessage(ctx, p, &messages.LoginRequest{UserID: user, AccountInfo: json.RawMessage(`{}`)})

	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	failure := msgs[0].(*messages.LoginFailure)
	assert.Equal(t, uint64(http.StatusForbidden), failure.StatusCode)

	select {
	case <-p.closed:
	default:
		t.Fatal("peer must be closed after ACL denial")
	}

	// Профиль не создан: до хранилища дело не дошло.
	exists, err := store.ExistsKeyed(ctx, storage.CollectionAccounts, user.String())
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 0, sessions.Count())
}

// S2: профиль по живой сессии; random guid даёт 401 "Invalid Session".
func TestLoggedInUserProfileSessionCheck(t *testing.T) {
	svc, _, _ := newTestLogin(t)
	p := newFakePeer(svc.Service)
	user := testUser(100)
	session := doLogin(t, svc, p, user)

	svc.HandleMessage(context.Background(), p, &messages.LoggedInUserProfileRequest{
		Session: session, UserID: user,
	})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	success := msgs[0].(*messages.LoggedInUserProfileSuccess)
	assert.Equal(t, user, success.UserID)
	assert.NotEmpty(t, success.Profile.Server)

	svc.HandleMessage(context.Background(), p, &messages.LoggedInUserProfileRequest{
		Session: uuid.Must(uuid.NewV4()), UserID: user,
	})
	msgs = waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	failure := msgs[0].(*messages.LoggedInUserProfileFailure)
	assert.Equal(t, uint64(http.StatusUnauthorized), failure.StatusCode)
	assert.Equal(t, "Invalid Session", failure.Message)
}

func TestOtherUserProfileReturnsServerHalfOnly(t *testing.T) {
	svc, _, _ := newTestLogin(t)
	owner := newFakePeer(svc.Service)
	user := testUser(100)
	doLogin(t, svc, owner, user)

	// Чужой профиль без проверки сессии.
	other := newFakePeer(svc.Service)
	svc.HandleMessage(context.Background(), other, &messages.OtherUserProfileRequest{UserID: user})
	msgs := waitSentMessages(t, other)
	require.Len(t, msgs, 1)
	success := msgs[0].(*messages.OtherUserProfileSuccess)
	assert.Equal(t, user, success.UserID)

	var server model.ServerProfile
	require.NoError(t, json.Unmarshal(success.ServerProfile, &server))
	assert.Equal(t, user, server.XPlatformID)
}

func TestOtherUserProfileNotFound(t *testing.T) {
	svc, _, _ := newTestLogin(t)
	p := newFakePeer(svc.Service)
	svc.HandleMessage(context.Background(), p, &messages.OtherUserProfileRequest{UserID: testUser(404)})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	failure := msgs[0].(*messages.OtherUserProfileFailure)
	assert.Equal(t, uint64(http.StatusNotFound), failure.StatusCode)
}

func TestUpdateProfileReplacesClientProfile(t *testing.T) {
	svc, store, _ := newTestLogin(t)
	ctx := context.Background()
	p := newFakePeer(svc.Service)
	user := testUser(100)
	session := doLogin(t, svc, p, user)

	profile := json.RawMessage(`{"xplatformid":"` + user.String() + `","customization":{"decal":"wolf"}}`)
	svc.HandleMessage(ctx, p, &messages.UpdateProfileRequest{
		Session: session, UserID: user, ClientProfile: profile,
	})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(*messages.UpdateProfileSuccess)
	require.True(t, ok, "got %T", msgs[0])

	var account model.AccountResource
	require.NoError(t, store.GetKeyed(ctx, storage.CollectionAccounts, user.String(), &account))
	assert.JSONEq(t, string(profile), string(account.Profile.Client))

	var server map[string]any
	require.NoError(t, json.Unmarshal(account.Profile.Server, &server))
	assert.Equal(t, server["updatetime"], server["_modifytime"])
	assert.NotZero(t, server["updatetime"])
}

func TestUpdateProfileRejectsForeignIdentity(t *testing.T) {
	svc, _, _ := newTestLogin(t)
	p := newFakePeer(svc.Service)
	user := testUser(100)
	session := doLogin(t, svc, p, user)

	foreign := json.RawMessage(`{"xplatformid":"` + testUser(999).String() + `"}`)
	svc.HandleMessage(context.Background(), p, &messages.UpdateProfileRequest{
		Session: session, UserID: user, ClientProfile: foreign,
	})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	failure := msgs[0].(*messages.UpdateProfileFailure)
	assert.Equal(t, uint64(http.StatusBadRequest), failure.StatusCode)
}

// Property 5: merge дельты серверного профиля.
func TestServerProfileUpdateMerges(t *testing.T) {
	svc, store, _ := newTestLogin(t)
	ctx := context.Background()
	p := newFakePeer(svc.Service)
	user := testUser(100)
	doLogin(t, svc, p, user)
	sentMessages(t, p) // drain

	delta := json.RawMessage(`{"stats":{"arena":{"wins":3}}}`)
	svc.HandleMessage(ctx, p, &messages.UserServerProfileUpdateRequest{UserID: user, Delta: delta})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(*messages.UserServerProfileUpdateSuccess)
	require.True(t, ok, "got %T", msgs[0])

	var account model.AccountResource
	require.NoError(t, store.GetKeyed(ctx, storage.CollectionAccounts, user.String(), &account))
	var server map[string]any
	require.NoError(t, json.Unmarshal(account.Profile.Server, &server))
	// Старые поля на месте, дельта вмёржена.
	assert.Equal(t, user.String(), server["xplatformid"])
	stats := server["stats"].(map[string]any)
	arena := stats["arena"].(map[string]any)
	assert.Equal(t, float64(3), arena["wins"])
}

func TestDocumentLookup(t *testing.T) {
	svc, store, _ := newTestLogin(t)
	ctx := context.Background()
	require.NoError(t, store.SetKeyed(ctx, storage.CollectionDocuments, "eula:en", &model.DocumentResource{
		Type: "eula", Language: "en", Data: json.RawMessage(`{"text":"terms"}`),
	}))

	p := newFakePeer(svc.Service)
	svc.HandleMessage(ctx, p, &messages.DocumentRequest{Language: "en", Type: "eula"})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	success := msgs[0].(*messages.DocumentSuccess)
	assert.JSONEq(t, `{"text":"terms"}`, string(success.Document))

	// Неизвестное имя типа не резолвится в символ — DocumentFailure.
	svc.HandleMessage(ctx, p, &messages.DocumentRequest{Language: "en", Type: "no_such_document"})
	msgs = waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(*messages.DocumentFailure)
	assert.True(t, ok)
}

func TestRemoteLogSetParseErrorSendsNoAck(t *testing.T) {
	svc, _, _ := newTestLogin(t)
	p := newFakePeer(svc.Service)
	user := testUser(100)

	svc.HandleMessage(context.Background(), p, &messages.RemoteLogSet{
		UserID: user,
		Logs:   []string{`{"ok":true}`, `{broken`},
	})
	assert.Empty(t, sentMessages(t, p))

	svc.HandleMessage(context.Background(), p, &messages.RemoteLogSet{
		UserID: user,
		Logs:   []string{`{"ok":true}`},
	})
	msgs := waitSentMessages(t, p)
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(*messages.TCPConnectionUnrequireEvent)
	assert.True(t, ok)
}

func TestDisconnectShortensSessionTTL(t *testing.T) {
	store := storage.NewMemory()
	sessions := NewSessionCache(time.Hour)
	svc := NewLoginService(store, testSymbols(t), sessions, LoginServiceOptions{
		SessionDisconnectedTTL: 20 * time.Millisecond,
		AutoCreateAccounts:     true,
	})
	p := newFakePeer(svc.Service)
	user := testUser(100)
	session := doLogin(t, svc, p, user)

	svc.HandlePeerDisconnect(p)
	assert.True(t, sessions.Validate(session, user))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, sessions.Validate(session, user))
}
