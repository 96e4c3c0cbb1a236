package model

// Session identifies the acting user. It is threaded explicitly through
// every engine and service call; there is no ambient current-user state.
type Session struct {
	UserID string
	Email  string
}

// Valid reports whether the session carries a usable user id.
func (s Session) Valid() bool {
	return s.UserID != ""
}
