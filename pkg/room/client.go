// Package room connects authenticated websocket sessions to the game
// engine and routes their messages.
package room

import (
	"fmt"

	"badugi-server/pkg/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is a player connected to the server via websockets
type Client struct {
	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// PlayerID is the authenticated player identifier
	PlayerID int64

	// Name is the player's display name
	Name string

	// IsRobot is true for bot accounts
	IsRobot bool

	// send is a channel for sending messages to the client
	send chan *game.Response

	// Close is a channel for closing the client
	Close chan string

	// CloseError contains the reason why the connection was closed
	CloseError error

	uuid string
}

// NewClient returns a new client object
func NewClient(conn *websocket.Conn, playerID int64, name string, isRobot bool) *Client {
	return &Client{
		Conn:     conn,
		PlayerID: playerID,
		Name:     name,
		IsRobot:  isRobot,
		send:     make(chan *game.Response, 256),
		Close:    make(chan string),
		uuid:     uuid.New().String(),
	}
}

// Send sends a message to the web client. If the client's buffer is
// full the message is dropped and false is returned.
func (c *Client) Send(msg *game.Response) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendChan returns a read-only channel
func (c *Client) SendChan() <-chan *game.Response {
	return c.send
}

// String returns a traceable identifier for the client
func (c *Client) String() string {
	return fmt.Sprintf("%d:%s:%s", c.PlayerID, c.Name, c.uuid)
}
