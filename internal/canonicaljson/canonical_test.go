package canonicaljson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_OrdersKeys(t *testing.T) {
	type doc struct {
		Zeta  string `json:"zeta"`
		Alpha string `json:"alpha"`
	}

	out, err := Canonicalize(doc{Zeta: "z", Alpha: "a"})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","zeta":"z"}`, string(out))
}

func TestCanonicalize_Deterministic(t *testing.T) {
	m := map[string]any{"b": 1, "a": 2, "c": map[string]any{"y": 1, "x": 2}}

	out1, err := Canonicalize(m)
	require.NoError(t, err)
	out2, err := Canonicalize(m)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Equal(t, `{"a":2,"b":1,"c":{"x":2,"y":1}}`, string(out1))
}

func TestCanonicalizeRaw_MatchesCanonicalize(t *testing.T) {
	raw := []byte(`{"z": 1, "a": 2}`)

	fromRaw, err := CanonicalizeRaw(raw)
	require.NoError(t, err)

	var v any
	require.NoError(t, json.Unmarshal(raw, &v))
	fromValue, err := Canonicalize(v)
	require.NoError(t, err)

	assert.Equal(t, fromValue, fromRaw)
}
