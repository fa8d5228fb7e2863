package models

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Name is the display name of the user.
	Name string

	// Email is the user's email address (unique). Used for login.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized in API responses.
	PasswordHash string

	// UPIID is the user's UPI handle (e.g. "name@bank"), used to build
	// payment deep links. Empty until the user sets it up.
	UPIID string

	// Avatar is an optional profile picture URL.
	Avatar string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a user with the given identity and hashed credential.
// The ID and CreatedAt are assigned by the store on create.
func NewUser(email, name, passwordHash string) *User {
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
}
