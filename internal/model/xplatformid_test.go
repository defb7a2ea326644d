package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/arenarelay/internal/protocol"
)

func TestXPlatformIDCanonicalString(t *testing.T) {
	id := XPlatformID{Platform: PlatformOculus, AccountID: 3963667097037078}
	assert.Equal(t, "OVR-ORG-3963667097037078", id.String())

	parsed, err := ParseXPlatformID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseXPlatformIDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "OVR-ORG-", "-123", "XXX-5", "OVR-ORG-abc"} {
		_, err := ParseXPlatformID(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestXPlatformIDJSONRoundTrip(t *testing.T) {
	id := XPlatformID{Platform: PlatformSteam, AccountID: 42}
	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"STM-42"`, string(data))

	var back XPlatformID
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)
}

func TestXPlatformIDWireRoundTrip(t *testing.T) {
	id := XPlatformID{Platform: PlatformOculus, AccountID: 987654321}
	enc := protocol.NewStream(protocol.EncodeMode, nil)
	require.NoError(t, id.Stream(enc))
	assert.Equal(t, 16, enc.Len())

	var back XPlatformID
	dec := protocol.NewStream(protocol.DecodeMode, enc.Bytes())
	require.NoError(t, back.Stream(dec))
	assert.Equal(t, id, back)
}

func TestXPlatformIDValidity(t *testing.T) {
	assert.False(t, XPlatformID{}.IsValid())
	assert.True(t, XPlatformID{}.IsNil())
	assert.True(t, XPlatformID{Platform: PlatformOculus, AccountID: 1}.IsValid())
	assert.False(t, XPlatformID{Platform: PlatformOculus}.IsValid())
}
