package messages

import "github.com/udisondev/arenarelay/internal/protocol"

// NewRegistry возвращает реестр фабрик для всех сообщений протокола.
// Символы вне реестра декодируются как protocol.Unknown и игнорируются.
func NewRegistry() protocol.Registry {
	return protocol.Registry{
		SymLoginRequest:               func() protocol.Message { return &LoginRequest{} },
		SymLoginSuccess:               func() protocol.Message { return &LoginSuccess{} },
		SymLoginFailure:               func() protocol.Message { return &LoginFailure{} },
		SymLoginSettings:              func() protocol.Message { return &LoginSettings{} },
		SymTCPConnectionUnrequire:     func() protocol.Message { return &TCPConnectionUnrequireEvent{} },
		SymLoggedInUserProfileRequest: func() protocol.Message { return &LoggedInUserProfileRequest{} },
		SymLoggedInUserProfileSuccess: func() protocol.Message { return &LoggedInUserProfileSuccess{} },
		SymLoggedInUserProfileFailure: func() protocol.Message { return &LoggedInUserProfileFailure{} },
		SymOtherUserProfileRequest:    func() protocol.Message { return &OtherUserProfileRequest{} },
		SymOtherUserProfileSuccess:    func() protocol.Message { return &OtherUserProfileSuccess{} },
		SymOtherUserProfileFailure:    func() protocol.Message { return &OtherUserProfileFailure{} },
		SymUpdateProfileRequest:       func() protocol.Message { return &UpdateProfileRequest{} },
		SymUpdateProfileSuccess:       func() protocol.Message { return &UpdateProfileSuccess{} },
		SymUpdateProfileFailure:       func() protocol.Message { return &UpdateProfileFailure{} },
		SymServerProfileUpdateRequest: func() protocol.Message { return &UserServerProfileUpdateRequest{} },
		SymServerProfileUpdateSuccess: func() protocol.Message { return &UserServerProfileUpdateSuccess{} },
		SymChannelInfoRequest:         func() protocol.Message { return &ChannelInfoRequest{} },
		SymChannelInfoResponse:        func() protocol.Message { return &ChannelInfoResponse{} },
		SymDocumentRequest:            func() protocol.Message { return &DocumentRequest{} },
		SymDocumentSuccess:            func() protocol.Message { return &DocumentSuccess{} },
		SymDocumentFailure:            func() protocol.Message { return &DocumentFailure{} },
		SymRemoteLogSet:               func() protocol.Message { return &RemoteLogSet{} },

		SymConfigRequest: func() protocol.Message { return &ConfigRequest{} },
		SymConfigSuccess: func() protocol.Message { return &ConfigSuccess{} },
		SymConfigFailure: func() protocol.Message { return &ConfigFailure{} },

		SymLobbyCreateSessionRequest: func() protocol.Message { return &LobbyCreateSessionRequest{} },
		SymLobbyFindSessionRequest:   func() protocol.Message { return &LobbyFindSessionRequest{} },
		SymLobbyJoinSessionRequest:   func() protocol.Message { return &LobbyJoinSessionRequest{} },
		SymLobbySessionSuccess:       func() protocol.Message { return &LobbySessionSuccess{} },
		SymLobbySessionFailure:       func() protocol.Message { return &LobbySessionFailure{} },
		SymLobbyPendingSessionCancel: func() protocol.Message { return &LobbyPendingSessionCancel{} },
		SymLobbyPingRequest:          func() protocol.Message { return &LobbyPingRequest{} },
		SymLobbyPingResponse:         func() protocol.Message { return &LobbyPingResponse{} },
		SymLobbyMatchmakerStatusReq:  func() protocol.Message { return &LobbyMatchmakerStatusRequest{} },
		SymLobbyMatchmakerStatus:     func() protocol.Message { return &LobbyMatchmakerStatus{} },

		SymGameServerRegistrationRequest: func() protocol.Message { return &GameServerRegistrationRequest{} },
		SymGameServerRegistrationSuccess: func() protocol.Message { return &GameServerRegistrationSuccess{} },
		SymGameServerRegistrationFailure: func() protocol.Message { return &GameServerRegistrationFailure{} },
		SymGameServerStartSession:        func() protocol.Message { return &GameServerStartSession{} },
		SymGameServerSessionStarted:      func() protocol.Message { return &GameServerSessionStarted{} },
		SymGameServerSessionEnded:        func() protocol.Message { return &GameServerSessionEnded{} },
		SymGameServerPlayersLocked:       func() protocol.Message { return &GameServerPlayersLocked{} },
		SymGameServerPlayersUnlocked:     func() protocol.Message { return &GameServerPlayersUnlocked{} },
		SymGameServerPlayerJoined:        func() protocol.Message { return &GameServerPlayerJoined{} },
		SymGameServerPlayerLeft:          func() protocol.Message { return &GameServerPlayerLeft{} },
		SymGameServerUpdateRequest:       func() protocol.Message { return &GameServerUpdateRequest{} },

		SymReconcileIAP:       func() protocol.Message { return &ReconcileIAP{} },
		SymReconcileIAPResult: func() protocol.Message { return &ReconcileIAPResult{} },
	}
}
