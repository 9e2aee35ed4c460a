package session

import "fmt"

const guestStorageKey = "guest_cart"

// Scope identifies who owns a cart: the anonymous visitor or a signed-in
// user. Guest carts live only in the durable local store; user carts are
// mirrored to the remote store.
type Scope struct {
	userID string
}

// Guest returns the anonymous ownership scope.
func Guest() Scope {
	return Scope{}
}

// ForUser returns the ownership scope bound to a signed-in identity.
func ForUser(userID string) Scope {
	return Scope{userID: userID}
}

func (s Scope) IsGuest() bool {
	return s.userID == ""
}

func (s Scope) UserID() string {
	return s.userID
}

// StorageKey derives the durable local store key for this scope.
func (s Scope) StorageKey() string {
	if s.IsGuest() {
		return guestStorageKey
	}
	return "cart_" + s.userID
}

func (s Scope) String() string {
	if s.IsGuest() {
		return "guest"
	}
	return fmt.Sprintf("user:%s", s.userID)
}

// Binding is the active ownership scope plus the opaque credential used to
// authorize remote cart calls. Guest bindings carry no credential.
type Binding struct {
	Scope      Scope
	Credential string
}

// GuestBinding returns the unauthenticated session binding.
func GuestBinding() Binding {
	return Binding{Scope: Guest()}
}
