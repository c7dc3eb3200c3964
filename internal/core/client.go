package core

// Client is a live connection as seen by the gateway core.
//
// activeRoom and the command handlers that touch it run only on the client's
// session goroutine, so it needs no locking. Channel membership is tracked by
// the hub under its own lock.
type Client struct {
	ID       string
	Identity Identity
	Commands chan *Command
	Events   chan *Event

	// activeRoom is the single room the connection is "currently in" for
	// leave/typing gating. Zero means none.
	activeRoom int64
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, identity Identity) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
	}
}
