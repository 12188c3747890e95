package model

import "time"

// AccountClass partitions credential records into two disjoint collections.
// Records in one class are never visible through the other.
type AccountClass string

const (
	AccountClassMessage AccountClass = "message"
	AccountClassTrading AccountClass = "trading"
)

// Valid reports whether c is one of the known account classes.
func (c AccountClass) Valid() bool {
	return c == AccountClassMessage || c == AccountClassTrading
}

// ParseAccountClass converts a path or body value into an AccountClass.
func ParseAccountClass(s string) (AccountClass, bool) {
	c := AccountClass(s)
	return c, c.Valid()
}

// Account is a named credential set for the licensed quote provider.
// Secrets are held in plaintext; see DESIGN.md for the at-rest limitation.
type Account struct {
	ID          string
	Class       AccountClass
	Name        string
	AppKey      string
	AppSecret   string
	AccessToken string
	CreatedAt   time.Time
}

// Credentials returns the three secrets needed to open a licensed session.
func (a Account) Credentials() Credentials {
	return Credentials{
		AppKey:      a.AppKey,
		AppSecret:   a.AppSecret,
		AccessToken: a.AccessToken,
	}
}

// AccountFields is the complete set of mutable account fields. Create and
// Update both take the full set; there is no partial patch.
type AccountFields struct {
	Name        string `json:"name" validate:"required"`
	AppKey      string `json:"appKey" validate:"required"`
	AppSecret   string `json:"appSecret" validate:"required"`
	AccessToken string `json:"accessToken" validate:"required"`
}

// Credentials is the secret triple used by the licensed provider.
type Credentials struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}
