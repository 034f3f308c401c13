package stdio

import (
	"os/user"
)

// UserProvider provides a string user ID to associate with the stdio peer.
// The peer is not authenticated; the id only labels the session in logs and
// in the session view handed to tools.
type UserProvider interface {
	CurrentUserID() (string, error)
}

// OSUserProvider resolves the user ID using the operating system's current user.
// The returned ID is user.Username when available; falling back to user.Uid.
type OSUserProvider struct{}

func (OSUserProvider) CurrentUserID() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if u.Username != "" {
		return u.Username, nil
	}
	return u.Uid, nil
}

// StaticUser is a UserProvider that always reports the same id.
type StaticUser string

func (s StaticUser) CurrentUserID() (string, error) { return string(s), nil }

// anonymousUserID labels sessions whose user could not be resolved.
const anonymousUserID = "anonymous"
