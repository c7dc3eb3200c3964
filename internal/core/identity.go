package core

// Identity is the authenticated user snapshot attached to a connection at
// handshake. It stays fixed for the connection's lifetime; profile or role
// changes require reconnecting.
type Identity struct {
	UserID      int64
	Username    string
	DisplayName string
	AvatarURL   string
	Role        string
}
