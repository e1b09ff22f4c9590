package models

// Identity is either [Anonymous] or [Authenticated]. The set of
// implementations is closed.
type Identity interface {
	isIdentity()
}

// Anonymous is the identity of a client without a session.
type Anonymous struct{}

func (Anonymous) isIdentity() {}

// Authenticated is the identity published after a successful challenge.
type Authenticated struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Verified    bool   `json:"verified"`
	AccountType int    `json:"accountType"`
}

func (Authenticated) isIdentity() {}

// AsAuthenticated reports whether id is an authenticated identity and
// returns it.
func AsAuthenticated(id Identity) (Authenticated, bool) {
	a, ok := id.(Authenticated)
	return a, ok
}
