package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ServerProfile — авторитетная часть профиля аккаунта.
// Меняется только сервисом логина; клиент получает её в готовом виде.
type ServerProfile struct {
	DisplayName string          `json:"displayname"`
	XPlatformID XPlatformID     `json:"xplatformid"`
	CreateTime  int64           `json:"createtime"`
	UpdateTime  int64           `json:"updatetime"`
	ModifyTime  int64           `json:"_modifytime"`
	Loadout     json.RawMessage `json:"loadout,omitempty"`
}

// AccountProfile pairs the owner-mutable client profile with the
// server-authoritative profile. Both are stored as JSON documents: the
// game owns their schema, the relay only brokers and merges them.
type AccountProfile struct {
	Client json.RawMessage `json:"client"`
	Server json.RawMessage `json:"server"`
}

// AccountResource — персистентный ресурс аккаунта, ключ — XPlatformID.
type AccountResource struct {
	Profile         AccountProfile `json:"profile"`
	BannedUntil     int64          `json:"banned_until_ts,omitempty"`
	AccountLockHash string         `json:"account_lock_hash,omitempty"`
	AccountLockSalt string         `json:"account_lock_salt,omitempty"`
}

// NewAccountResource creates an account for id with a freshly stamped
// server profile and an empty client profile.
func NewAccountResource(id XPlatformID, displayName string) (*AccountResource, error) {
	now := time.Now().Unix()
	server, err := json.Marshal(ServerProfile{
		DisplayName: displayName,
		XPlatformID: id,
		CreateTime:  now,
		UpdateTime:  now,
		ModifyTime:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("building server profile: %w", err)
	}
	return &AccountResource{
		Profile: AccountProfile{
			Client: json.RawMessage(`{}`),
			Server: server,
		},
	}, nil
}

// IsBanned reports whether the account ban is still in effect.
func (a *AccountResource) IsBanned() bool {
	return a.BannedUntil > time.Now().Unix()
}

// ServerProfileID extracts the xplatformid field of the stored server profile.
func (a *AccountResource) ServerProfileID() (XPlatformID, error) {
	var probe struct {
		XPlatformID XPlatformID `json:"xplatformid"`
	}
	if err := json.Unmarshal(a.Profile.Server, &probe); err != nil {
		return XPlatformID{}, fmt.Errorf("reading server profile id: %w", err)
	}
	return probe.XPlatformID, nil
}

// StampServerProfile sets updatetime and _modifytime on the server profile
// to the given unix-seconds moment.
func (a *AccountResource) StampServerProfile(now int64) error {
	var tree map[string]json.RawMessage
	if err := json.Unmarshal(a.Profile.Server, &tree); err != nil {
		return fmt.Errorf("reading server profile: %w", err)
	}
	ts, _ := json.Marshal(now)
	tree["updatetime"] = ts
	tree["_modifytime"] = ts
	out, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("writing server profile: %w", err)
	}
	a.Profile.Server = out
	return nil
}
