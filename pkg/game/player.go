package game

import "badugi-server/pkg/badugi"

// Player is a seated participant in a room
type Player struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Chips         int            `json:"chips"`
	IsCreator     bool           `json:"isCreator"`
	Folded        bool           `json:"folded"`
	RoundBet      int            `json:"currentRoundBet"`
	HasActed      bool           `json:"hasActed"`
	CanExchange   bool           `json:"canExchange"`
	LeaveReserved bool           `json:"leaveReserved"`
	Best          *badugi.Result `json:"bestHand,omitempty"`

	session Session
}

// Active returns true if the player still takes turns this hand
func (p *Player) Active() bool {
	return !p.Folded && !p.LeaveReserved
}

// resetForHand clears all per-hand state
func (p *Player) resetForHand() {
	p.Folded = false
	p.RoundBet = 0
	p.HasActed = false
	p.CanExchange = false
	p.Best = nil
}

// resetForRound clears per-betting-round state
func (p *Player) resetForRound() {
	p.RoundBet = 0
	p.HasActed = false
	p.CanExchange = false
}

func (p *Player) send(msg *Response) {
	if p.session != nil {
		p.session.Send(msg)
	}
}
