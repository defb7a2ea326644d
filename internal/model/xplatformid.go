package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/udisondev/arenarelay/internal/protocol"
)

// PlatformCode identifies the account platform of an XPlatformID.
type PlatformCode uint64

const (
	PlatformUnknown     PlatformCode = 0
	PlatformSteam       PlatformCode = 1
	PlatformPlaystation PlatformCode = 2
	PlatformXbox        PlatformCode = 3
	PlatformOculus      PlatformCode = 4
	PlatformOculusOld   PlatformCode = 5
	PlatformBot         PlatformCode = 6
	PlatformDemo        PlatformCode = 7
	PlatformTencent     PlatformCode = 8
)

var platformTokens = map[PlatformCode]string{
	PlatformUnknown:     "UNK",
	PlatformSteam:       "STM",
	PlatformPlaystation: "PSN",
	PlatformXbox:        "XBX",
	PlatformOculus:      "OVR-ORG",
	PlatformOculusOld:   "OVR",
	PlatformBot:         "BOT",
	PlatformDemo:        "DMO",
	PlatformTencent:     "TEN",
}

// Token returns the textual platform code, UNK for unrecognized values.
func (p PlatformCode) Token() string {
	if t, ok := platformTokens[p]; ok {
		return t
	}
	return "UNK"
}

// XPlatformID — идентификатор аккаунта: платформа + номер аккаунта.
// Строковая форма канонична и служит первичным ключом хранилища.
type XPlatformID struct {
	Platform  PlatformCode
	AccountID uint64
}

// String renders the canonical textual key, e.g. "OVR-ORG-3963667097037078".
func (x XPlatformID) String() string {
	return fmt.Sprintf("%s-%d", x.Platform.Token(), x.AccountID)
}

// IsNil reports whether the identity is unset.
func (x XPlatformID) IsNil() bool {
	return x == XPlatformID{}
}

// IsValid reports whether the identity can name an account.
func (x XPlatformID) IsValid() bool {
	return x.Platform != PlatformUnknown && x.AccountID != 0
}

// ParseXPlatformID decodes the canonical textual form.
// The account id follows the final dash; everything before it is the platform token.
func ParseXPlatformID(s string) (XPlatformID, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return XPlatformID{}, fmt.Errorf("invalid platform id %q", s)
	}
	acct, err := strconv.ParseUint(s[i+1:], 10, 64)
	if err != nil {
		return XPlatformID{}, fmt.Errorf("invalid platform id %q: %w", s, err)
	}
	token := s[:i]
	for code, t := range platformTokens {
		if t == token {
			return XPlatformID{Platform: code, AccountID: acct}, nil
		}
	}
	return XPlatformID{}, fmt.Errorf("invalid platform id %q: unknown platform %q", s, token)
}

// Stream transfers the identity as two little-endian u64 values.
func (x *XPlatformID) Stream(s *protocol.Stream) error {
	p := uint64(x.Platform)
	if err := s.StreamU64(&p); err != nil {
		return err
	}
	x.Platform = PlatformCode(p)
	return s.StreamU64(&x.AccountID)
}

// MarshalText renders the canonical form for JSON keys and fields.
func (x XPlatformID) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalText parses the canonical form.
func (x *XPlatformID) UnmarshalText(data []byte) error {
	parsed, err := ParseXPlatformID(string(data))
	if err != nil {
		return err
	}
	*x = parsed
	return nil
}
