package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleRules(t *testing.T) {
	for _, kind := range []Kind{KindCreate, KindDelete, KindModify, KindAllow, KindDisallow, KindRequire} {
		r, err := Parse([]string{string(kind), "*.tar.gz"})
		require.NoError(t, err)
		assert.Equal(t, kind, r.Kind)
		assert.Equal(t, "*.tar.gz", r.Pattern)
	}
}

func TestParse_RejectsEmptyAndUnknown(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)

	_, err = Parse([]string{"FROBNICATE", "*"})
	assert.Error(t, err)

	_, err = Parse([]string{"CREATE", "a", "b"})
	assert.Error(t, err, "CREATE takes exactly one pattern")
}

func TestParse_Match_Full(t *testing.T) {
	r, err := Parse([]string{"MATCH", "foo.py", "IN", "src", "WITH", "PRODUCTS", "IN", "dst", "FROM", "build"})
	require.NoError(t, err)
	assert.Equal(t, KindMatch, r.Kind)
	assert.Equal(t, "foo.py", r.Pattern)
	assert.Equal(t, "src", r.SrcPrefix)
	assert.Equal(t, "dst", r.DstPrefix)
	assert.Equal(t, SourceProducts, r.MatchOn)
	assert.Equal(t, "build", r.FromStep)
}

func TestParse_Match_Minimal(t *testing.T) {
	r, err := Parse([]string{"MATCH", "foo.py", "WITH", "MATERIALS", "FROM", "clone"})
	require.NoError(t, err)
	assert.Equal(t, "", r.SrcPrefix)
	assert.Equal(t, "", r.DstPrefix)
	assert.Equal(t, SourceMaterials, r.MatchOn)
	assert.Equal(t, "clone", r.FromStep)
}

func TestParse_Match_TrailingSlashNormalized(t *testing.T) {
	r, err := Parse([]string{"MATCH", "*", "IN", "src/", "WITH", "PRODUCTS", "FROM", "build"})
	require.NoError(t, err)
	assert.Equal(t, "src", r.SrcPrefix)
}

func TestParse_Match_MalformedRejected(t *testing.T) {
	cases := [][]string{
		{"MATCH", "foo.py", "WITH", "FROM", "clone"},                   // missing MATERIALS|PRODUCTS
		{"MATCH", "foo.py", "WITH", "MATERIALS"},                       // missing FROM
		{"MATCH", "foo.py", "WITH", "MATERIALS", "FROM"},               // missing step name
		{"MATCH", "foo.py", "WITH", "MATERIALS", "FROM", "clone", "x"}, // trailing tokens
	}
	for _, tokens := range cases {
		_, err := Parse(tokens)
		assert.Error(t, err, "%v", tokens)
	}
}

func TestParseList(t *testing.T) {
	list, err := ParseList([][]string{
		{"DELETE", "*"},
		{"CREATE", "*"},
		{"ALLOW", "*"},
	})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = ParseList([][]string{{"BOGUS", "*"}})
	assert.Error(t, err)
}
