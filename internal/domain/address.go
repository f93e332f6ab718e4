package domain

// Address is a saved shipping address.
type Address struct {
	ID        FlexID `json:"id,omitempty"`
	Name      string `json:"name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,numeric,min=10,max=15"`
	Line1     string `json:"address_line1" validate:"required,max=255"`
	Line2     string `json:"address_line2,omitempty" validate:"max=255"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state" validate:"required,max=100"`
	Pincode   string `json:"pincode" validate:"required,numeric,len=6"`
	Country   string `json:"country,omitempty"`
	IsDefault bool   `json:"is_default"`
}
