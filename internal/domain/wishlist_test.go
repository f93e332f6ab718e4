package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistItem_DecodeNestedProduct(t *testing.T) {
	var w WishlistItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"product":{"id":42,"name":"Dupatta"},"created_at":"2024-05-01T10:00:00Z"}`), &w))

	assert.Equal(t, FlexID("7"), w.ID)
	require.NotNil(t, w.Product)
	assert.Equal(t, "42", w.ProductKey())
	assert.False(t, w.CreatedAt.IsZero())
}

func TestWishlistItem_DecodeProductAsBareID(t *testing.T) {
	var w WishlistItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"product":42}`), &w))

	assert.Nil(t, w.Product)
	assert.Equal(t, FlexID("42"), w.ProductID)
	assert.Equal(t, "42", w.ProductKey())
}

func TestWishlistItem_ProductKeyPriority(t *testing.T) {
	tests := []struct {
		name string
		item WishlistItem
		want string
	}{
		{"nested wins", WishlistItem{ID: "1", ProductID: "2", Product: &Product{ID: "3"}}, "3"},
		{"flat next", WishlistItem{ID: "1", ProductID: "2", Product: &Product{}}, "2"},
		{"own id last", WishlistItem{ID: "1"}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.ProductKey())
			assert.True(t, tt.item.Matches(tt.want))
		})
	}
}

func TestWishlistItem_RemoteID(t *testing.T) {
	assert.Equal(t, "9", WishlistItem{ID: "9", ProductID: "42"}.RemoteID())
	assert.Equal(t, "42", WishlistItem{ProductID: "42"}.RemoteID())
	assert.False(t, WishlistItem{ID: "9"}.Matches(""))
}

func TestWishlistItem_RoundTripThroughCache(t *testing.T) {
	in := WishlistItem{ID: "local-1", ProductID: "42", Product: &Product{ID: "42", Name: "Dupatta"}}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out WishlistItem
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in.ProductKey(), out.ProductKey())
	assert.Equal(t, "Dupatta", out.Product.Name)
}
