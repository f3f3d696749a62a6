package domain

import "time"

// Account is the persisted representation of a credential holder in the
// accounts collection. Email is unique across the collection.
type Account struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

// Sanitized returns a copy safe for API responses and event payloads.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}
