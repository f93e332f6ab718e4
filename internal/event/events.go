package event

import "github.com/KavinT06/anigas-attire-sub000/internal/domain"

// AuthChanged is broadcast after every login or logout.
type AuthChanged struct {
	LoggedIn bool
	User     *domain.User
}

// SessionExpired is published when the refresh protocol gives up. Cause is
// the refresh error.
type SessionExpired struct {
	Cause error
}

// CartChanged is published after every successful cart mutation.
type CartChanged struct {
	ItemCount int
	Total     float64
}

// WishlistChanged is published whenever the wishlist contents or mode change.
type WishlistChanged struct {
	Count    int
	Fallback bool
}

// NoticeLevel classifies a Notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is an informational message for the user.
type Notice struct {
	ID      string
	Level   NoticeLevel
	Message string
}

// Hub groups the buses shared by the storefront services.
type Hub struct {
	Auth           *Bus[AuthChanged]
	SessionExpired *Bus[SessionExpired]
	Cart           *Bus[CartChanged]
	Wishlist       *Bus[WishlistChanged]
	Notices        *Bus[Notice]
}

// NewHub creates a hub with empty buses.
func NewHub() *Hub {
	return &Hub{
		Auth:           NewBus[AuthChanged](),
		SessionExpired: NewBus[SessionExpired](),
		Cart:           NewBus[CartChanged](),
		Wishlist:       NewBus[WishlistChanged](),
		Notices:        NewBus[Notice](),
	}
}
