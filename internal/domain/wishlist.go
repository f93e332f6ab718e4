package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// WishlistItem is a favorited product. The backend has been seen to send
// "product" either as a nested object or as a bare id, and to sometimes add
// a flat "product_id"; UnmarshalJSON accepts all of these.
type WishlistItem struct {
	ID        FlexID    `json:"id"`
	ProductID FlexID    `json:"product_id,omitempty"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON decodes the heterogeneous item shapes.
func (w *WishlistItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        FlexID          `json:"id"`
		ProductID FlexID          `json:"product_id"`
		Product   json.RawMessage `json:"product"`
		CreatedAt *time.Time      `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode wishlist item: %w", err)
	}

	*w = WishlistItem{ID: raw.ID, ProductID: raw.ProductID}
	if raw.CreatedAt != nil {
		w.CreatedAt = *raw.CreatedAt
	}

	product := bytes.TrimSpace(raw.Product)
	switch {
	case len(product) == 0 || bytes.Equal(product, []byte("null")):
	case product[0] == '{':
		var p Product
		if err := json.Unmarshal(product, &p); err != nil {
			return fmt.Errorf("decode wishlist product: %w", err)
		}
		w.Product = &p
	default:
		var id FlexID
		if err := json.Unmarshal(product, &id); err != nil {
			return fmt.Errorf("decode wishlist product id: %w", err)
		}
		if w.ProductID == "" {
			w.ProductID = id
		}
	}
	return nil
}

// ProductKey resolves the product identity of the item. Priority: nested
// product id, then flat product_id, then the item's own id.
func (w WishlistItem) ProductKey() string {
	if w.Product != nil && w.Product.ID != "" {
		return string(w.Product.ID)
	}
	if w.ProductID != "" {
		return string(w.ProductID)
	}
	return string(w.ID)
}

// Matches reports whether the item refers to productID.
func (w WishlistItem) Matches(productID string) bool {
	return productID != "" && w.ProductKey() == productID
}

// RemoteID is the identifier used to delete the item: its own id when known,
// otherwise the product id.
func (w WishlistItem) RemoteID() string {
	if w.ID != "" {
		return string(w.ID)
	}
	return w.ProductKey()
}
