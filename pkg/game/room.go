package game

import (
	"sync"

	"badugi-server/pkg/deck"
)

// Status is the coarse room lifecycle state
type Status string

// room statuses
const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusShowdown Status = "showdown"
	StatusEnded    Status = "ended"
)

// Phase is the fine-grained state while a hand is in progress
type Phase string

// phases
const (
	PhaseWaiting  Phase = "waiting"
	PhaseBetting  Phase = "betting"
	PhaseExchange Phase = "exchange"
	PhaseShowdown Phase = "showdown"
)

// hand structure constants
const (
	MaxBettingRounds = 4
	MaxExchanges     = 3
	MaxPlayerDefault = 5

	// MaxPlayerLimit is the most seats a room may be created with. A
	// 52-card deck deals four cards to at most 13 players.
	MaxPlayerLimit = 13
)

var roundNames = [MaxBettingRounds]string{"morning", "lunch", "dinner", "final"}

// RoundName returns the display name of a betting round (0-based)
func RoundName(round int) string {
	if round < 0 || round >= MaxBettingRounds {
		return ""
	}

	return roundNames[round]
}

// Room holds all state for a single table. All mutation happens with mu
// held; the engine's exported methods take the lock, internal helpers
// assume it.
type Room struct {
	mu sync.Mutex

	ID         int64
	Name       string
	CreatorID  int64
	BetAmount  int
	MaxPlayers int
	password   string

	Status Status
	Phase  Phase

	BettingRound   int // 0-based, 0..MaxBettingRounds-1
	ExchangesTaken int // how many exchange phases have begun, 0..MaxExchanges

	Pot        int
	CurrentBet int

	DealerID     int64
	SmallBlindID int64
	BigBlindID   int64

	// prevDealerID tracks the dealer across hands so the button rotates
	// even when seats shift between hands
	prevDealerID int64

	turnIndex       int
	currentTurnID   int64
	lastBettor      *Player
	lastActor       *Player
	timeoutHandling bool

	players []*Player
	hands   map[int64][]*deck.Card
	deck    *deck.Deck
}

// Summary is the lobby projection of a room
type Summary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	BetAmount  int    `json:"betAmount"`
	MaxPlayers int    `json:"maxPlayers"`
	Players    int    `json:"players"`
	Status     Status `json:"status"`
	IsPrivate  bool   `json:"isPrivate"`
}

// State is the full public projection of a room. Hands are never
// included; they travel only in private messages.
type State struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CreatorID       int64     `json:"creatorId"`
	BetAmount       int       `json:"betAmount"`
	MaxPlayers      int       `json:"maxPlayers"`
	IsPrivate       bool      `json:"isPrivate"`
	Status          Status    `json:"status"`
	Phase           Phase     `json:"phase"`
	BettingRound    int       `json:"bettingRound"`
	RoundName       string    `json:"roundName"`
	ExchangesTaken  int       `json:"exchangesTaken"`
	Pot             int       `json:"pot"`
	CurrentBet      int       `json:"currentBet"`
	CurrentPlayerID int64     `json:"currentPlayerId"`
	DealerID        int64     `json:"dealerId"`
	SmallBlindID    int64     `json:"smallBlindId"`
	BigBlindID      int64     `json:"bigBlindId"`
	Players         []*Player `json:"players"`
}

// Summary returns the lobby projection. Safe to call without the lock.
func (r *Room) Summary() *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &Summary{
		ID:         r.ID,
		Name:       r.Name,
		BetAmount:  r.BetAmount,
		MaxPlayers: r.MaxPlayers,
		Players:    len(r.players),
		Status:     r.Status,
		IsPrivate:  r.password != "",
	}
}

// publicPlayers returns value copies of the seated players. Responses
// are marshaled on client write goroutines after the lock is released,
// so they must never share mutable records with the engine. Private
// hand information is stripped; it travels in per-player messages.
func publicPlayers(players []*Player) []*Player {
	out := make([]*Player, len(players))
	for i, p := range players {
		cp := *p
		cp.session = nil
		cp.Best = nil
		out[i] = &cp
	}

	return out
}

// stateLocked builds the public projection. Lock must be held.
func (r *Room) stateLocked() *State {
	players := publicPlayers(r.players)

	return &State{
		ID:              r.ID,
		Name:            r.Name,
		CreatorID:       r.CreatorID,
		BetAmount:       r.BetAmount,
		MaxPlayers:      r.MaxPlayers,
		IsPrivate:       r.password != "",
		Status:          r.Status,
		Phase:           r.Phase,
		BettingRound:    r.BettingRound,
		RoundName:       RoundName(r.BettingRound),
		ExchangesTaken:  r.ExchangesTaken,
		Pot:             r.Pot,
		CurrentBet:      r.CurrentBet,
		CurrentPlayerID: r.currentTurnID,
		DealerID:        r.DealerID,
		SmallBlindID:    r.SmallBlindID,
		BigBlindID:      r.BigBlindID,
		Players:         players,
	}
}

// player returns the seated player with the given ID, or nil
func (r *Room) player(id int64) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}

	return nil
}

// seatIndex returns the seat of the given player, or -1
func (r *Room) seatIndex(id int64) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}

	return -1
}

// activePlayers returns the players still taking turns this hand
func (r *Room) activePlayers() []*Player {
	active := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.Active() {
			active = append(active, p)
		}
	}

	return active
}

// nextActiveSeat returns the first active seat strictly after from,
// wrapping around; -1 when no seat qualifies. During the exchange phase
// players who already exchanged are skipped as well.
func (r *Room) nextActiveSeat(from int) int {
	n := len(r.players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		p := r.players[idx]
		if !p.Active() {
			continue
		}

		if r.Phase == PhaseExchange && !p.CanExchange {
			continue
		}

		return idx
	}

	return -1
}

// sessionsLocked snapshots the sessions of every seated player.
// Lock must be held.
func (r *Room) sessionsLocked() []Session {
	sessions := make([]Session, 0, len(r.players))
	for _, p := range r.players {
		if p.session != nil {
			sessions = append(sessions, p.session)
		}
	}

	return sessions
}

// bettingClosed reports whether the current betting round is complete.
// Lock must be held.
func (r *Room) bettingClosed() bool {
	active := r.activePlayers()

	if r.CurrentBet > 0 {
		for _, p := range active {
			if p.RoundBet == r.CurrentBet {
				continue
			}

			// an all-in player can be short of the bet
			if p.Chips == 0 && p.RoundBet < r.CurrentBet {
				continue
			}

			return false
		}

		if r.lastBettor == nil {
			return false
		}

		// a last-bettor who folded or reserved to leave can never see
		// the action return to them
		return r.currentTurnID == r.lastBettor.ID || !r.lastBettor.Active()
	}

	for _, p := range active {
		if !p.HasActed {
			return false
		}
	}

	return true
}

// exchangeClosed reports whether every active player has used or
// declined their exchange. Lock must be held.
func (r *Room) exchangeClosed() bool {
	for _, p := range r.activePlayers() {
		if p.CanExchange {
			return false
		}
	}

	return true
}
