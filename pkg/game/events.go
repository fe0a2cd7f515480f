package game

import (
	"badugi-server/pkg/badugi"
	"badugi-server/pkg/deck"
)

// outbound message keys
const (
	KeyRooms         = "roomsUpdated"
	KeyRoom          = "roomUpdated"
	KeyGameStarted   = "gameStarted"
	KeyTurnChanged   = "turnChanged"
	KeyTimerUpdate   = "timerUpdate"
	KeyPlayerAction  = "playerAction"
	KeyHandUpdated   = "myHandUpdated"
	KeyPhaseChanged  = "phaseChanged"
	KeyRoundStarted  = "roundStarted"
	KeyGameEnded     = "gameEnded"
	KeyForceLeave    = "forceLeaveRoom"
	KeyError         = "error"
	KeyStatusOK      = "status"
)

// Response is the envelope for all outbound messages
type Response struct {
	Key     string      `json:"key"`
	Value   string      `json:"value,omitempty"`
	Context string      `json:"context,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// OK returns a success response for the given request context
func OK(ctx string) *Response {
	return &Response{
		Key:     KeyStatusOK,
		Value:   "success",
		Context: ctx,
	}
}

// ErrorResponse returns an error response for the given request context
func ErrorResponse(ctx string, err error) *Response {
	return &Response{
		Key:     KeyError,
		Context: ctx,
		Data: map[string]string{
			"message": err.Error(),
		},
	}
}

// Session is an authenticated player connection capable of receiving
// outbound messages. Send must never block.
type Session interface {
	Send(msg *Response) bool
}

// Lobby receives messages addressed to every connected session,
// seated or not
type Lobby interface {
	Broadcast(msg *Response)
}

// TurnChanged announces the new action holder
type TurnChanged struct {
	CurrentPlayerID int64 `json:"currentPlayerId"`
	TimeLeft        int   `json:"timeLeft"`
}

// TimerUpdate is the once-per-second countdown tick
type TimerUpdate struct {
	CurrentPlayerID int64 `json:"currentPlayerId"`
	TimeLeft        int   `json:"timeLeft"`
}

// PlayerAction narrates an applied action to the whole room
type PlayerAction struct {
	PlayerID   int64  `json:"playerId"`
	PlayerName string `json:"playerName"`
	Action     string `json:"action"`
	Amount     int    `json:"amount,omitempty"`
	Count      int    `json:"count,omitempty"`
	Message    string `json:"message"`
}

// GameStarted is sent privately to each seated player when a hand begins
type GameStarted struct {
	Room            *State         `json:"room"`
	Hand            []*deck.Card   `json:"myHand"`
	Best            *badugi.Result `json:"bestHand"`
	CurrentPlayerID int64          `json:"currentPlayerId"`
	MaxRounds       int            `json:"maxBettingRounds"`
	MaxExchanges    int            `json:"maxExchanges"`
}

// HandUpdated is sent privately after an exchange
type HandUpdated struct {
	Hand []*deck.Card   `json:"myHand"`
	Best *badugi.Result `json:"bestHand"`
}

// PhaseChanged announces a betting to exchange transition
type PhaseChanged struct {
	Phase          Phase `json:"phase"`
	ExchangesTaken int   `json:"exchangesTaken"`
	MaxExchanges   int   `json:"maxExchanges"`
}

// RoundStarted announces a new betting round after an exchange phase
type RoundStarted struct {
	Round     int    `json:"bettingRound"`
	RoundName string `json:"roundName"`
	Pot       int    `json:"pot"`
}

// WinnerHand describes a winner's revealed badugi at showdown
type WinnerHand struct {
	PlayerID int64          `json:"playerId"`
	Name     string         `json:"playerName"`
	Hand     []*deck.Card   `json:"hand"`
	Best     *badugi.Result `json:"bestHand"`
	Winnings int            `json:"winnings"`
}

// RevealedHand is a non-folded player's hand shown at showdown
type RevealedHand struct {
	PlayerID int64          `json:"playerId"`
	Name     string         `json:"playerName"`
	Hand     []*deck.Card   `json:"hand"`
	Best     *badugi.Result `json:"bestHand"`
}

// GameEnded announces the conclusion of a hand
type GameEnded struct {
	Reason       string          `json:"reason"`
	WinnerIDs    []int64         `json:"winnerIds"`
	WinnerNames  []string        `json:"winnerNames"`
	Winners      []*WinnerHand   `json:"winners"`
	FinalHands   []*RevealedHand `json:"finalHands"`
	FinalPlayers []*Player       `json:"finalPlayers"`
	Pot          int             `json:"pot"`
}

// ForceLeave is sent privately to a player being evicted from a room
type ForceLeave struct {
	RoomID  int64  `json:"roomId"`
	Message string `json:"message"`
}
