package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableKeySortsNestedKeys(t *testing.T) {
	a := map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "y": []any{"x", map[string]any{"d": 1, "c": 2}}},
	}
	b := map[string]any{
		"a": map[string]any{"y": []any{"x", map[string]any{"c": 2, "d": 1}}, "z": true},
		"b": 1,
	}

	ka, err := StableKey(a)
	require.NoError(t, err)
	kb, err := StableKey(b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
	assert.Equal(t, `{"a":{"y":["x",{"c":2,"d":1}],"z":true},"b":1}`, ka)
}

func TestStableKeyKeepsArrayOrder(t *testing.T) {
	k1, err := StableKey([]any{"b", "a"})
	require.NoError(t, err)
	k2, err := StableKey([]any{"a", "b"})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestStableKeyCycleBecomesNull(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["self"] = m

	key, err := StableKey(m)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"loop","self":null}`, key)
}

func TestStableKeyStructUsesJSONNames(t *testing.T) {
	type input struct {
		V          string `json:"v"`
		Transcript string `json:"transcript"`
		SellerID   string `json:"sellerId"`
	}
	key, err := StableKey(input{V: "1", Transcript: "<hi> & bye", SellerID: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, `{"sellerId":"Ana","transcript":"<hi> & bye","v":"1"}`, key)
}

func TestStableKeyRawMessage(t *testing.T) {
	key, err := StableKey(json.RawMessage(`{"b":[3,2.5],"a":null}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":null,"b":[3,2.5]}`, key)
}

func TestStableHashIsHex64(t *testing.T) {
	h1, err := StableHash(map[string]any{"v": "1", "transcript": "hello"})
	require.NoError(t, err)
	h2, err := StableHash(map[string]any{"transcript": "hello", "v": "1"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.Regexp(t, `^[0-9a-f]{64}$`, h1)

	h3, err := StableHash(map[string]any{"v": "2", "transcript": "hello"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestSHA256HexKnownVector(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(""))
}
