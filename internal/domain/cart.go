package domain

// CartItem is one line of the client-side cart. Product details are a
// snapshot taken when the line was first added.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Category  string  `json:"category"`
}

// CartItemKey builds the composite key of a cart line.
func CartItemKey(productID, size string) string {
	return productID + "-" + size
}

// Subtotal is price times quantity for the line.
func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is an ordered collection of cart lines.
type Cart struct {
	Items []CartItem `json:"items"`
}

// TotalPrice sums the subtotals of all lines.
func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line with the given key, or -1.
func (c *Cart) FindItemIndex(key string) int {
	for i := range c.Items {
		if c.Items[i].ID == key {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return &Cart{Items: items}
}
