package models

// Identity is the visitor a request acts for: an authenticated user or an
// anonymous session. A user id takes precedence over a session key.
type Identity struct {
	UserID     int64
	SessionKey string
}

func UserIdentity(userID int64) Identity {
	return Identity{UserID: userID}
}

func SessionIdentity(key string) Identity {
	return Identity{SessionKey: key}
}

func (i Identity) Authenticated() bool {
	return i.UserID > 0
}

func (i Identity) Anonymous() bool {
	return !i.Authenticated() && i.SessionKey != ""
}

func (i Identity) Valid() bool {
	return i.Authenticated() || i.SessionKey != ""
}
