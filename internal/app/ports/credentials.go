package ports

import "context"

// Account is what the game server expects at login: the web account name, the
// numeric user id and the server-side password hash.
type Account struct {
	Username     string
	UserID       string
	HashPassword string
}

// Authenticator resolves a username/password pair to game credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Account, error)
}
