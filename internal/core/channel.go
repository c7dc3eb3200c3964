package core

import "strconv"

// Channel name prefixes keep the three addressing spaces disjoint.
func roomChannel(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10)
}

func chatChannel(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

func userChannel(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Channel groups clients subscribed to the same broadcast target.
// All access goes through the hub's lock.
type Channel struct {
	name    string
	clients map[*Client]struct{}
}

// NewChannel constructs a channel with no clients.
func NewChannel(name string) *Channel {
	return &Channel{
		name:    name,
		clients: make(map[*Client]struct{}),
	}
}

// Add inserts a client into the channel. Returns true if newly added.
func (ch *Channel) Add(c *Client) bool {
	if _, exists := ch.clients[c]; exists {
		return false
	}
	ch.clients[c] = struct{}{}
	return true
}

// Remove deletes a client from the channel. Returns true if removed.
func (ch *Channel) Remove(c *Client) bool {
	if _, exists := ch.clients[c]; !exists {
		return false
	}
	delete(ch.clients, c)
	return true
}

// Contains reports whether the client is subscribed.
func (ch *Channel) Contains(c *Client) bool {
	_, exists := ch.clients[c]
	return exists
}

// Broadcast sends an event to all clients in the channel.
func (ch *Channel) Broadcast(event *Event) {
	ch.BroadcastExcept(event, nil)
}

// BroadcastExcept sends an event to all clients except the given one.
func (ch *Channel) BroadcastExcept(event *Event, except *Client) {
	for client := range ch.clients {
		if client == except {
			continue
		}
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// Empty returns true if no clients are in the channel.
func (ch *Channel) Empty() bool {
	return len(ch.clients) == 0
}
