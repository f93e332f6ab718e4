package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexID is an identifier the backend may send as a JSON number or string.
type FlexID string

// UnmarshalJSON accepts 42, "42" and null.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers so payloads match what the
// backend originally sent.
func (id FlexID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id FlexID) String() string { return string(id) }

// Amount is a money value the backend may send as a number or a decimal string.
type Amount float64

// UnmarshalJSON accepts 25.5, "25.50", "" and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = Amount(f)
	return nil
}

// Category is sent either as a plain name or as {"name": ...}.
type Category string

// UnmarshalJSON accepts "Shirts", {"name":"Shirts"} and null.
func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Category(s)
		return nil
	}
	var obj struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("category must be a string or object: %w", err)
	}
	if obj.Name != "" {
		*c = Category(obj.Name)
	} else {
		*c = Category(obj.Title)
	}
	return nil
}

// ProductImage is one entry of a product's image gallery.
type ProductImage struct {
	Image string `json:"image"`
}

// Product is the catalog snapshot the client keeps with cart and wishlist
// entries. Only the fields those features need are modeled.
type Product struct {
	ID         FlexID         `json:"id"`
	Name       string         `json:"name"`
	StartPrice Amount         `json:"start_price,omitempty"`
	Price      Amount         `json:"price,omitempty"`
	Image      string         `json:"image,omitempty"`
	Images     []ProductImage `json:"images,omitempty"`
	Category   Category       `json:"category,omitempty"`
}

// UnitPrice is the price charged per unit: start_price when set, else price.
func (p Product) UnitPrice() float64 {
	if p.StartPrice > 0 {
		return float64(p.StartPrice)
	}
	return float64(p.Price)
}

// PrimaryImage returns the main image URL, or "" when the product has none.
func (p Product) PrimaryImage() string {
	if p.Image != "" {
		return p.Image
	}
	for _, img := range p.Images {
		if img.Image != "" {
			return img.Image
		}
	}
	return ""
}
