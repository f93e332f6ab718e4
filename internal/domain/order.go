package domain

import "time"

// OrderItem is one purchased line of an order.
type OrderItem struct {
	ProductID FlexID `json:"product" validate:"required"`
	Name      string `json:"product_name,omitempty"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Price     Amount `json:"price" validate:"gte=0"`
}

// Order is a placed order as reported by the backend.
type Order struct {
	ID        FlexID      `json:"id"`
	Status    string      `json:"status"`
	Total     Amount      `json:"total_amount"`
	AddressID FlexID      `json:"address,omitempty"`
	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}
