package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/messages"
	"github.com/udisondev/arenarelay/internal/model"
	"github.com/udisondev/arenarelay/internal/storage"
	"github.com/udisondev/arenarelay/internal/symbol"
)

// LoginServiceOptions настраивает сервис логина.
type LoginServiceOptions struct {
	SessionDisconnectedTTL time.Duration
	AutoCreateAccounts     bool
}

// LoginService аутентифицирует клиентов, выдаёт session_guid, отдаёт и
// обновляет профили, рассылает channel info / documents / login settings.
// Единственный сервис, которому позволено менять AccountResource.
type LoginService struct {
	*Service
	store    storage.Storage
	symbols  *symbol.Cache
	sessions *SessionCache
	opts     LoginServiceOptions
}

// NewLoginService wires the login service over storage and the session cache.
func NewLoginService(store storage.Storage, symbols *symbol.Cache, sessions *SessionCache, opts LoginServiceOptions) *LoginService {
	s := &LoginService{
		Service:  NewService("login", "/login"),
		store:    store,
		symbols:  symbols,
		sessions: sessions,
		opts:     opts,
	}
	s.SetHandler(s)
	return s
}

// HandleMessage dispatches login service messages.
func (s *LoginService) HandleMessage(ctx context.Context, p *Peer, msg Message) {
	switch m := msg.(type) {
	case *messages.LoginRequest:
		s.handleLogin(ctx, p, m)
	case *messages.LoggedInUserProfileRequest:
		s.handleLoggedInUserProfile(ctx, p, m)
	case *messages.OtherUserProfileRequest:
		s.handleOtherUserProfile(ctx, p, m)
	case *messages.UpdateProfileRequest:
		s.handleUpdateProfile(ctx, p, m)
	case *messages.UserServerProfileUpdateRequest:
		s.handleServerProfileUpdate(ctx, p, m)
	case *messages.ChannelInfoRequest:
		s.handleChannelInfo(ctx, p, m)
	case *messages.DocumentRequest:
		s.handleDocument(ctx, p, m)
	case *messages.RemoteLogSet:
		s.handleRemoteLogSet(ctx, p, m)
	default:
		slog.Debug("unhandled login message", "symbol", msg.Symbol().HexString(), "peer", p.Address())
	}
}

// HandlePeerDisconnect не удаляет сессию сразу: остаток TTL срезается до
// disconnected-таймаута, чтобы быстрый реконнект мог её переиспользовать.
func (s *LoginService) HandlePeerDisconnect(p *Peer) {
	if v, ok := p.SessionData(); ok {
		if session, ok := v.(uuid.UUID); ok {
			s.sessions.ShortenTTL(session, s.opts.SessionDisconnectedTTL)
		}
	}
}

func (s *LoginService) loadACL(ctx context.Context) *model.AccessControlList {
	var acl model.AccessControlList
	err := s.store.Get(ctx, storage.ResourceAccessControls, &acl)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("loading access controls", "error", err)
		}
		return model.DefaultAccessControlList()
	}
	return &acl
}

func (s *LoginService) handleLogin(ctx context.Context, p *Peer, m *messages.LoginRequest) {
	if !m.UserID.IsValid() {
		p.Send(&messages.LoginFailure{UserID: m.UserID, StatusCode: http.StatusBadRequest, Message: "Invalid User Identifier"})
		return
	}

	// Прежняя сессия этого пира аннулируется до проверки ACL.
	if v, ok := p.SessionData(); ok {
		if prev, ok := v.(uuid.UUID); ok {
			s.sessions.Remove(prev)
		}
		p.ClearSessionData()
	}

	// ACL решает до первого обращения к профилям в хранилище.
	if !s.loadACL(ctx).Authorized(m.UserID) {
		p.Send(&messages.LoginFailure{UserID: m.UserID, StatusCode: http.StatusForbidden, Message: "Forbidden"})
		p.Close()
		return
	}

	account, err := s.loadOrCreateAccount(ctx, m.UserID)
	if err != nil {
		slog.Error("loading account", "user_id", m.UserID, "error", err)
		p.Send(&messages.LoginFailure{UserID: m.UserID, StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"})
		return
	}
	if account.IsBanned() {
		p.Send(&messages.LoginFailure{UserID: m.UserID, StatusCode: http.StatusForbidden, Message: "Banned"})
		p.Close()
		return
	}

	session, err := uuid.NewV4()
	if err != nil {
		slog.Error("generating session guid", "error", err)
		p.Send(&messages.LoginFailure{UserID: m.UserID, StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"})
		return
	}

	s.sessions.Store(session, m.UserID)
	p.SetSessionData(session)

	displayName := m.UserID.String()
	var server model.ServerProfile
	if err := json.Unmarshal(account.Profile.Server, &server); err == nil && server.DisplayName != "" {
		displayName = server.DisplayName
	}
	p.UpdateUserAuthentication(m.UserID, displayName)

	settings := s.loadLoginSettings(ctx)
	p.Send(
		&messages.LoginSuccess{Session: session, UserID: m.UserID},
		&messages.TCPConnectionUnrequireEvent{},
		&messages.LoginSettings{Settings: *settings},
	)
	slog.Info("user logged in", "user_id", m.UserID, "peer", p.Address())
}

func (s *LoginService) loadOrCreateAccount(ctx context.Context, id model.XPlatformID) (*model.AccountResource, error) {
	var account model.AccountResource
	err := s.store.GetKeyed(ctx, storage.CollectionAccounts, id.String(), &account)
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, storage.ErrNotFound) || !s.opts.AutoCreateAccounts {
		return nil, err
	}
	created, err := model.NewAccountResource(id, id.String())
	if err != nil {
		return nil, err
	}
	if err := s.store.SetKeyed(ctx, storage.CollectionAccounts, id.String(), created); err != nil {
		return nil, err
	}
	slog.Info("account auto-created", "user_id", id)
	return created, nil
}

func (s *LoginService) loadLoginSettings(ctx context.Context) *model.LoginSettingsResource {
	var settings model.LoginSettingsResource
	err := s.store.Get(ctx, storage.ResourceLoginSettings, &settings)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("loading login settings", "error", err)
		}
		return model.DefaultLoginSettings()
	}
	return &settings
}

func (s *LoginService) handleLoggedInUserProfile(ctx context.Context, p *Peer, m *messages.LoggedInUserProfileRequest) {
	if !s.sessions.Validate(m.Session, m.UserID) {
		p.Send(&messages.LoggedInUserProfileFailure{UserID: m.UserID, StatusCode: http.StatusUnauthorized, Message: "Invalid Session"})
		return
	}
	var account model.AccountResource
	if err := s.store.GetKeyed(ctx, storage.CollectionAccounts, m.UserID.String(), &account); err != nil {
		status := uint64(http.StatusInternalServerError)
		text := "Internal Server Error"
		if errors.Is(err, storage.ErrNotFound) {
			status, text = http.StatusNotFound, "Account Not Found"
		} else {
			slog.Error("loading account", "user_id", m.UserID, "error", err)
		}
		p.Send(&messages.LoggedInUserProfileFailure{UserID: m.UserID, StatusCode: status, Message: text})
		return
	}
	p.Send(&messages.LoggedInUserProfileSuccess{UserID: m.UserID, Profile: account.Profile})
}

func (s *LoginService) handleOtherUserProfile(ctx context.Context, p *Peer, m *messages.OtherUserProfileRequest) {
	var account model.AccountResource
	if err := s.store.GetKeyed(ctx, storage.CollectionAccounts, m.UserID.String(), &account); err != nil {
		status := uint64(http.StatusInternalServerError)
		text := "Internal Server Error"
		if errors.Is(err, storage.ErrNotFound) {
			status, text = http.StatusNotFound, "Account Not Found"
		} else {
			slog.Error("loading account", "user_id", m.UserID, "error", err)
		}
		p.Send(&messages.OtherUserProfileFailure{UserID: m.UserID, StatusCode: status, Message: text})
		return
	}
	p.Send(&messages.OtherUserProfileSuccess{UserID: m.UserID, ServerProfile: account.Profile.Server})
}

func (s *LoginService) handleUpdateProfile(ctx context.Context, p *Peer, m *messages.UpdateProfileRequest) {
	if !s.sessions.Validate(m.Session, m.UserID) {
		p.Send(&messages.UpdateProfileFailure{UserID: m.UserID, StatusCode: http.StatusUnauthorized, Message: "Invalid Session"})
		return
	}

	// Клиент может менять только собственный профиль.
	var probe struct {
		XPlatformID model.XPlatformID `json:"xplatformid"`
	}
	if err := json.Unmarshal(m.ClientProfile, &probe); err != nil || probe.XPlatformID != m.UserID {
		p.Send(&messages.UpdateProfileFailure{UserID: m.UserID, StatusCode: http.StatusBadRequest, Message: "Profile Identity Mismatch"})
		return
	}

	var account model.AccountResource
	if err := s.store.GetKeyed(ctx, storage.CollectionAccounts, m.UserID.String(), &account); err != nil {
		status := uint64(http.StatusInternalServerError)
		text := "Internal Server Error"
		if errors.Is(err, storage.ErrNotFound) {
			status, text = http.StatusNotFound, "Account Not Found"
		} else {
			slog.Error("loading account", "user_id", m.UserID, "error", err)
		}
		p.Send(&messages.UpdateProfileFailure{UserID: m.UserID, StatusCode: status, Message: text})
		return
	}

	account.Profile.Client = m.ClientProfile
	if err := account.StampServerProfile(time.Now().Unix()); err != nil {
		slog.Error("stamping server profile", "user_id", m.UserID, "error", err)
		p.Send(&messages.UpdateProfileFailure{UserID: m.UserID, StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"})
		return
	}
	if err := s.store.SetKeyed(ctx, storage.CollectionAccounts, m.UserID.String(), &account); err != nil {
		slog.Error("storing account", "user_id", m.UserID, "error", err)
		p.Send(&messages.UpdateProfileFailure{UserID: m.UserID, StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"})
		return
	}
	p.Send(&messages.UpdateProfileSuccess{UserID: m.UserID})
}

// handleServerProfileUpdate накладывает дельту игрового сервера на серверный
// профиль рекурсивным merge: объекты сливаются, массивы и скаляры заменяются.
func (s *LoginService) handleServerProfileUpdate(ctx context.Context, p *Peer, m *messages.UserServerProfileUpdateRequest) {
	var account model.AccountResource
	if err := s.store.GetKeyed(ctx, storage.CollectionAccounts, m.UserID.String(), &account); err != nil {
		slog.Warn("server profile delta for unknown account", "user_id", m.UserID, "error", err)
		return
	}

	merged, err := model.MergeJSON(account.Profile.Server, m.Delta)
	if err != nil {
		slog.Warn("unmergeable server profile delta", "user_id", m.UserID, "error", err)
		return
	}

	var probe struct {
		XPlatformID model.XPlatformID `json:"xplatformid"`
	}
	if err := json.Unmarshal(merged, &probe); err != nil || probe.XPlatformID != m.UserID {
		slog.Warn("server profile delta changes identity, rejected", "user_id", m.UserID)
		return
	}

	account.Profile.Server = merged
	if err := account.StampServerProfile(time.Now().Unix()); err != nil {
		slog.Error("stamping server profile", "user_id", m.UserID, "error", err)
		return
	}
	if err := s.store.SetKeyed(ctx, storage.CollectionAccounts, m.UserID.String(), &account); err != nil {
		slog.Error("storing account", "user_id", m.UserID, "error", err)
		return
	}
	p.Send(&messages.UserServerProfileUpdateSuccess{UserID: m.UserID})
}

func (s *LoginService) handleChannelInfo(ctx context.Context, p *Peer, _ *messages.ChannelInfoRequest) {
	var info model.ChannelInfoResource
	if err := s.store.Get(ctx, storage.ResourceChannelInfo, &info); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("loading channel info", "error", err)
		}
		info = model.ChannelInfoResource{}
	}
	p.Send(&messages.ChannelInfoResponse{ChannelInfo: info})
}

func (s *LoginService) handleDocument(ctx context.Context, p *Peer, m *messages.DocumentRequest) {
	typeSym, ok := s.symbols.Lookup(m.Type)
	if !ok {
		p.Send(&messages.DocumentFailure{Message: "Unknown Document Type"})
		return
	}
	var doc model.DocumentResource
	key := m.Type + ":" + m.Language
	if err := s.store.GetKeyed(ctx, storage.CollectionDocuments, key, &doc); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Error("loading document", "key", key, "error", err)
		}
		p.Send(&messages.DocumentFailure{Message: "Document Not Found"})
		return
	}
	p.Send(&messages.DocumentSuccess{TypeSymbol: typeSym, Document: doc.Data})
}

// handleRemoteLogSet принимает клиентские логи. Каждая запись обязана быть
// JSON-документом; сбой разбора логируется и подтверждение не отправляется.
func (s *LoginService) handleRemoteLogSet(ctx context.Context, p *Peer, m *messages.RemoteLogSet) {
	for _, line := range m.Logs {
		if !json.Valid([]byte(line)) {
			slog.Warn("malformed remote log entry", "user_id", m.UserID, "peer", p.Address())
			return
		}
		slog.Debug("remote log", "user_id", m.UserID, "entry", line)
	}
	p.Send(&messages.TCPConnectionUnrequireEvent{})
}
