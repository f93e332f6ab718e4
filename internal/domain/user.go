package domain

// User is the best-effort identity shown for the signed-in customer. When no
// profile is available it is a placeholder derived from local state.
type User struct {
	ID          FlexID `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Placeholder bool   `json:"-"`
}

// Session is the derived authentication state. It is never persisted.
type Session struct {
	LoggedIn bool
	User     *User
}
