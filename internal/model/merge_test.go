package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMerge(t *testing.T, base, delta string) map[string]any {
	t.Helper()
	out, err := MergeJSON(json.RawMessage(base), json.RawMessage(delta))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	return m
}

func TestMergeLeavesUnmentionedFields(t *testing.T) {
	m := mustMerge(t,
		`{"displayname":"player","wins":3,"loadout":{"arm":"blue"}}`,
		`{"wins":4}`)
	assert.Equal(t, "player", m["displayname"])
	assert.Equal(t, float64(4), m["wins"])
	assert.Equal(t, map[string]any{"arm": "blue"}, m["loadout"])
}

func TestMergeScalarReplaces(t *testing.T) {
	m := mustMerge(t, `{"wins":3}`, `{"wins":"many"}`)
	assert.Equal(t, "many", m["wins"])
}

func TestMergeObjectsRecursively(t *testing.T) {
	m := mustMerge(t,
		`{"stats":{"arena":{"wins":1,"losses":2},"combat":{"wins":9}}}`,
		`{"stats":{"arena":{"wins":5}}}`)
	stats := m["stats"].(map[string]any)
	arena := stats["arena"].(map[string]any)
	assert.Equal(t, float64(5), arena["wins"])
	assert.Equal(t, float64(2), arena["losses"])
	assert.Equal(t, map[string]any{"wins": float64(9)}, stats["combat"])
}

func TestMergeArraysReplaceWhole(t *testing.T) {
	m := mustMerge(t,
		`{"unlocks":["a","b","c"]}`,
		`{"unlocks":["d"]}`)
	assert.Equal(t, []any{"d"}, m["unlocks"])
}

func TestMergeAddsNewKeys(t *testing.T) {
	m := mustMerge(t, `{"a":1}`, `{"b":{"c":2}}`)
	assert.Equal(t, float64(1), m["a"])
	assert.Equal(t, map[string]any{"c": float64(2)}, m["b"])
}

func TestMergeIsPure(t *testing.T) {
	base := json.RawMessage(`{"a":{"b":1}}`)
	delta := json.RawMessage(`{"a":{"c":2}}`)
	_, err := MergeJSON(base, delta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":1}}`, string(base))
	assert.JSONEq(t, `{"a":{"c":2}}`, string(delta))
}

func TestMergeRejectsMalformed(t *testing.T) {
	_, err := MergeJSON(json.RawMessage(`{`), json.RawMessage(`{}`))
	assert.Error(t, err)
	_, err = MergeJSON(json.RawMessage(`{}`), json.RawMessage(`not json`))
	assert.Error(t, err)
}
