package room

import (
	"sync"

	"badugi-server/pkg/game"

	"github.com/sirupsen/logrus"
)

// inbound actions
const (
	actionGetRooms    = "getRooms"
	actionGetRoomInfo = "getRoomInfo"
	actionCreateRoom  = "createRoom"
	actionJoinRoom    = "joinRoom"
	actionLeaveRoom   = "leaveRoom"
	actionReserve     = "reserveLeaveRoom"
	actionCancel      = "cancelLeaveRoom"
	actionStartGame   = "startGame"
	actionPlayer      = "playerAction"
)

// PayloadIn is a message from a connected client
type PayloadIn struct {
	Action  string `json:"action"`
	Context string `json:"context"`

	RoomID       int64  `json:"roomId"`
	Name         string `json:"name"`
	BetAmount    int    `json:"betAmount"`
	MaxPlayers   int    `json:"maxPlayers"`
	Password     string `json:"password"`
	InitialChips int    `json:"initialChips"`

	// fields for playerAction
	GameAction      string   `json:"gameAction"`
	Amount          int      `json:"amount"`
	CardsToExchange []string `json:"cardsToExchange"`
}

// Gateway tracks every connected client and routes their messages into
// the game engine. It is the engine's lobby broadcaster.
type Gateway struct {
	service *game.Service

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewGateway returns a gateway running a fresh game engine
func NewGateway(opts game.Options) *Gateway {
	g := &Gateway{
		clients: make(map[*Client]bool),
	}

	g.service = game.NewService(g, opts)
	return g
}

// Broadcast sends the message to every connected client, seated or not
func (g *Gateway) Broadcast(msg *game.Response) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for client := range g.clients {
		client.Send(msg)
	}
}

// ClientConnected registers the client and sends it the room list
func (g *Gateway) ClientConnected(c *Client) {
	g.mu.Lock()
	g.clients[c] = true
	g.mu.Unlock()

	logrus.WithField("client", c.String()).Info("client connected")

	c.Send(&game.Response{
		Key:  game.KeyRooms,
		Data: g.service.Rooms(),
	})
}

// ClientDisconnected unregisters the client and tells the engine its
// session dropped
func (g *Gateway) ClientDisconnected(c *Client) {
	g.mu.Lock()
	delete(g.clients, c)
	g.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"client": c.String(),
		"error":  c.CloseError,
	}).Info("client disconnected")

	g.service.HandleDisconnect(c)
}

// ReceivedMessage dispatches an inbound payload
func (g *Gateway) ReceivedMessage(c *Client, msg *PayloadIn) {
	var err error
	switch msg.Action {
	case actionGetRooms:
		c.Send(&game.Response{
			Key:     game.KeyRooms,
			Context: msg.Context,
			Data:    g.service.Rooms(),
		})
		return
	case actionGetRoomInfo:
		var state *game.State
		if state, err = g.service.RoomState(msg.RoomID); err == nil {
			c.Send(&game.Response{
				Key:     game.KeyRoom,
				Context: msg.Context,
				Data:    state,
			})
			return
		}
	case actionCreateRoom:
		var state *game.State
		if state, err = g.service.CreateRoom(c.PlayerID, msg.Name, msg.BetAmount, msg.MaxPlayers, msg.Password); err == nil {
			c.Send(&game.Response{
				Key:     game.KeyRoom,
				Context: msg.Context,
				Data:    state,
			})
			return
		}
	case actionJoinRoom:
		var state *game.State
		if state, err = g.service.JoinRoom(c.PlayerID, c.Name, c, msg.RoomID, msg.Password, msg.InitialChips); err == nil {
			c.Send(&game.Response{
				Key:     game.KeyRoom,
				Context: msg.Context,
				Data:    state,
			})
			return
		}
	case actionLeaveRoom:
		err = g.service.LeaveRoom(c.PlayerID, msg.RoomID)
	case actionReserve:
		err = g.service.ReserveLeave(c.PlayerID, msg.RoomID)
	case actionCancel:
		err = g.service.CancelLeave(c.PlayerID, msg.RoomID)
	case actionStartGame:
		err = g.service.StartGame(msg.RoomID, c.PlayerID)
	case actionPlayer:
		err = g.playerAction(c, msg)
	default:
		err = game.ErrUnknownAction
	}

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"client": c.String(),
			"action": msg.Action,
		}).WithError(err).Debug("request failed")

		c.Send(game.ErrorResponse(msg.Context, err))
		return
	}

	c.Send(game.OK(msg.Context))
}

func (g *Gateway) playerAction(c *Client, msg *PayloadIn) error {
	switch game.Action(msg.GameAction) {
	case game.ActionCheck, game.ActionCall, game.ActionBet, game.ActionRaise, game.ActionDie:
		return g.service.HandleBettingAction(msg.RoomID, c.PlayerID, game.Action(msg.GameAction), msg.Amount)
	case "exchange", "stay":
		return g.service.HandleCardExchange(msg.RoomID, c.PlayerID, msg.CardsToExchange)
	default:
		return game.ErrUnknownAction
	}
}
