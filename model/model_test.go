package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cometsh/drinkup/model"
)

func TestParseDID_Lenient(t *testing.T) {
	d := model.ParseDID("did:plc:abc123xyz")
	assert.True(t, d.Valid)
	assert.Equal(t, "did:plc:abc123xyz", d.String())

	bad := model.ParseDID("not-a-did")
	assert.False(t, bad.Valid)
	assert.Equal(t, "not-a-did", bad.String())
}

func TestParseNSID_Lenient(t *testing.T) {
	n := model.ParseNSID("app.bsky.feed.post")
	assert.True(t, n.Valid)

	bad := model.ParseNSID("!!!")
	assert.False(t, bad.Valid)
	assert.Equal(t, "!!!", bad.String())
}

func TestParseTime_MalformedFailsTotally(t *testing.T) {
	_, err := model.ParseTime("2023-01-01T00:00:00Z")
	require.NoError(t, err)

	_, err = model.ParseTime("not a time")
	require.Error(t, err)
}

func TestAsHelpers(t *testing.T) {
	m := map[string]any{
		"s":  "hello",
		"i":  float64(42),
		"b":  true,
		"m":  map[string]any{"nested": "value"},
	}

	s, ok := model.AsString(m, "s")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	_, ok = model.AsString(m, "missing")
	assert.False(t, ok)

	i, ok := model.AsInt64(m, "i")
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)

	assert.True(t, model.AsBool(m, "b"))
	assert.False(t, model.AsBool(m, "missing"))

	nested, ok := model.AsMap(m, "m")
	assert.True(t, ok)
	assert.Equal(t, "value", nested["nested"])
}

func TestParseRepoOpAction_PreservesUnknown(t *testing.T) {
	assert.Equal(t, model.RepoOpCreate, model.ParseRepoOpAction("create"))
	assert.Equal(t, model.RepoOpAction("future_action"), model.ParseRepoOpAction("future_action"))
}
