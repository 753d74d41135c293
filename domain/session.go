package domain

// Session is one live client connection belonging to a user.
// A user may hold several sessions at once (multi-device).
type Session struct {
	ID     string
	UserID string
}
