package messages

import "github.com/udisondev/arenarelay/internal/symbol"

// Типовые символы сообщений. Значения совпадают с символами игрового
// протокола; блок 0x777777777777xxxx зарезервирован под служебные
// сообщения выделенных серверов.
const (
	SymLoginRequest               symbol.Symbol = 0xbdb41ea9e67b200a
	SymLoginSuccess               symbol.Symbol = 0xa5acc1a90d0cce47
	SymLoginFailure               symbol.Symbol = 0xa5b9d5a3021ccf51
	SymLoginSettings              symbol.Symbol = 0xed5be2c3632155f1
	SymTCPConnectionUnrequire     symbol.Symbol = 0x43e6963ac76beee4
	SymLoggedInUserProfileRequest symbol.Symbol = 0xfb772a4221fc8d70
	SymLoggedInUserProfileSuccess symbol.Symbol = 0xfb763a5037fc8d77
	SymLoggedInUserProfileFailure symbol.Symbol = 0xfb632e5a38ec8c61
	SymOtherUserProfileRequest    symbol.Symbol = 0x1231172031050cb2
	SymOtherUserProfileSuccess    symbol.Symbol = 0x1230073227050cb5
	SymOtherUserProfileFailure    symbol.Symbol = 0x1225133828150da3
	SymUpdateProfileRequest       symbol.Symbol = 0x6d54a19a3ff24415
	SymUpdateProfileSuccess       symbol.Symbol = 0xf25491d001cef757
	SymUpdateProfileFailure       symbol.Symbol = 0xf24185da0edef641
	SymServerProfileUpdateRequest symbol.Symbol = 0xd2986849b36b9c72
	SymServerProfileUpdateSuccess symbol.Symbol = 0xd299785ba56b9c75
	SymChannelInfoRequest         symbol.Symbol = 0x90758e58515724e0
	SymChannelInfoResponse        symbol.Symbol = 0x6c8f16cd9f8964c5
	SymDocumentRequest            symbol.Symbol = 0xfcced6f169822bb8
	SymDocumentSuccess            symbol.Symbol = 0xd07ffd782fb7b509
	SymDocumentFailure            symbol.Symbol = 0xd06ae97220a7b41f
	SymRemoteLogSet               symbol.Symbol = 0x244b47685187eae1

	SymConfigRequest symbol.Symbol = 0x82869f0b37eb4378
	SymConfigSuccess symbol.Symbol = 0xb9cdaf586f7bd012
	SymConfigFailure symbol.Symbol = 0x9e687a63dddd3870

	SymLobbyCreateSessionRequest symbol.Symbol = 0x599a6b1bbda3cc13
	SymLobbyFindSessionRequest   symbol.Symbol = 0x312c2a01819aa3f5
	SymLobbyJoinSessionRequest   symbol.Symbol = 0x2f03468f77ffb211
	SymLobbySessionSuccess       symbol.Symbol = 0x6d4de3650ee3110f
	SymLobbySessionFailure       symbol.Symbol = 0x4ae8365ebc45f96c
	SymLobbyPendingSessionCancel symbol.Symbol = 0x8da9eb83ffee9fd6
	SymLobbyPingRequest          symbol.Symbol = 0xfabf5f8719bfebf3
	SymLobbyPingResponse         symbol.Symbol = 0x6047d0043033ae4f
	SymLobbyMatchmakerStatusReq  symbol.Symbol = 0x128b777ae0ebb650
	SymLobbyMatchmakerStatus     symbol.Symbol = 0x8f28cf33dabfbecb

	SymGameServerRegistrationRequest symbol.Symbol = 0x7777777777777777
	SymGameServerRegistrationSuccess symbol.Symbol = 0xb57a31cdd0f6fedf
	SymGameServerRegistrationFailure symbol.Symbol = 0xb56f25c7dfe6ffc9
	SymGameServerStartSession        symbol.Symbol = 0x7777777777770000
	SymGameServerSessionStarted      symbol.Symbol = 0x7777777777770100
	SymGameServerSessionEnded        symbol.Symbol = 0x7777777777770200
	SymGameServerPlayersLocked       symbol.Symbol = 0x7777777777770300
	SymGameServerPlayersUnlocked     symbol.Symbol = 0x7777777777770400
	SymGameServerPlayerJoined        symbol.Symbol = 0x7777777777770500
	SymGameServerPlayerLeft          symbol.Symbol = 0x7777777777770800
	SymGameServerUpdateRequest       symbol.Symbol = 0x7777777777770b00

	SymReconcileIAP       symbol.Symbol = 0x1bd0fc454c85573c
	SymReconcileIAPResult symbol.Symbol = 0x0dabc24265508a82
)
