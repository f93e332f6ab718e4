package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		access  string
		refresh string
	}{
		{"flat access/refresh", `{"access":"a1","refresh":"r1"}`, "a1", "r1"},
		{"access_token synonyms", `{"access_token":"a2","refresh_token":"r2"}`, "a2", "r2"},
		{"bare token", `{"token":"a3"}`, "a3", ""},
		{"nested under tokens", `{"user":{"id":1},"tokens":{"access":"a4","refresh":"r4"}}`, "a4", "r4"},
		{"nested under data", `{"data":{"access_token":"a5"}}`, "a5", ""},
		{"nested under data.tokens", `{"data":{"tokens":{"token":"a6","refresh":"r6"}}}`, "a6", "r6"},
		{"access wins over token", `{"token":"x","access":"a7"}`, "a7", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := Tokens([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.access, pair.Access)
			assert.Equal(t, tt.refresh, pair.Refresh)
		})
	}
}

func TestTokens_NoMatch(t *testing.T) {
	for _, body := range []string{`{}`, `{"detail":"ok"}`, `[]`, `not json`, `{"access":""}`} {
		_, err := Tokens([]byte(body))
		assert.ErrorIs(t, err, ErrNoMatch, body)
	}
}

func TestChain_ReportsStrategy(t *testing.T) {
	_, name, err := TokenChain.Extract([]byte(`{"data":{"access":"a"}}`))
	require.NoError(t, err)
	assert.Equal(t, "data", name)
}

type item struct {
	ID int `json:"id"`
}

func TestList_Shapes(t *testing.T) {
	for _, body := range []string{
		`[{"id":1},{"id":2}]`,
		`{"count":2,"next":null,"results":[{"id":1},{"id":2}]}`,
		`{"data":[{"id":1},{"id":2}]}`,
		`{"items":[{"id":1},{"id":2}]}`,
	} {
		items, err := List[item]([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, []item{{1}, {2}}, items, body)
	}
}

func TestList_Empty(t *testing.T) {
	for _, body := range []string{``, `null`, `[]`, `{"results":[]}`} {
		items, err := List[item]([]byte(body))
		require.NoError(t, err, body)
		assert.Empty(t, items)
		assert.NotNil(t, items)
	}
}

func TestList_NoMatch(t *testing.T) {
	_, err := List[item]([]byte(`{"detail":"nope"}`))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestObject(t *testing.T) {
	got, err := Object[item]([]byte(`{"id":5}`))
	require.NoError(t, err)
	assert.Equal(t, 5, got.ID)

	got, err = Object[item]([]byte(`{"data":{"id":6}}`))
	require.NoError(t, err)
	assert.Equal(t, 6, got.ID)

	_, err = Object[item]([]byte(`[1]`))
	assert.ErrorIs(t, err, ErrNoMatch)
}
