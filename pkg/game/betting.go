package game

import (
	"fmt"
)

// Action is a player decision
type Action string

// player actions
const (
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionBet   Action = "bet"
	ActionRaise Action = "raise"
	ActionDie   Action = "die"
)

// HandleBettingAction validates and applies a betting decision for the
// player, then advances the turn
func (s *Service) HandleBettingAction(roomID, playerID int64, action Action, amount int) error {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// an invalid attempt does not consume the turn or reset the clock;
	// the timer is only disarmed once the action is applied, inside
	// advanceTurn
	return s.bettingAction(room, playerID, action, amount)
}

// bettingAction applies a single decision. Lock must be held.
func (s *Service) bettingAction(room *Room, playerID int64, action Action, amount int) error {
	p, err := s.actor(room, playerID)
	if err != nil {
		return err
	}

	if room.Phase != PhaseBetting {
		return ErrNotBettingPhase
	}

	if p.Chips <= 0 && action != ActionDie && action != ActionCall {
		return ErrNoChips
	}

	switch action {
	case ActionCheck:
		if err := s.applyCheck(room, p); err != nil {
			return err
		}
	case ActionBet:
		if err := s.applyBet(room, p, amount); err != nil {
			return err
		}
	case ActionRaise:
		if err := s.applyRaise(room, p, amount); err != nil {
			return err
		}
	case ActionCall:
		if err := s.applyCall(room, p); err != nil {
			return err
		}
	case ActionDie:
		p.Folded = true
		s.narrate(room, p, string(ActionDie), 0, 0, p.Name+" folds")
	default:
		return ErrUnknownAction
	}

	p.HasActed = true
	room.lastActor = p

	s.advanceTurn(room)
	return nil
}

// actor validates that the player exists, holds the turn, and can act.
// Lock must be held.
func (s *Service) actor(room *Room, playerID int64) (*Player, error) {
	if room.Status != StatusPlaying {
		return nil, ErrGameNotInProgress
	}

	p := room.player(playerID)
	if p == nil {
		return nil, ErrNotInRoom
	}

	if room.currentTurnID != playerID {
		return nil, ErrNotYourTurn
	}

	if p.Folded {
		return nil, ErrPlayerFolded
	}

	if p.LeaveReserved {
		return nil, ErrLeaveReserved
	}

	return p, nil
}

func (s *Service) applyCheck(room *Room, p *Player) error {
	if room.CurrentBet > p.RoundBet {
		return fmt.Errorf("you cannot check, the bet to you is %d", room.CurrentBet-p.RoundBet)
	}

	s.narrate(room, p, string(ActionCheck), 0, 0, p.Name+" checks")
	return nil
}

func (s *Service) applyBet(room *Room, p *Player, amount int) error {
	if room.CurrentBet == 0 {
		if amount != room.BetAmount {
			return fmt.Errorf("the opening bet must be exactly %d", room.BetAmount)
		}
	} else if amount < room.CurrentBet+room.BetAmount {
		return fmt.Errorf("a re-bet must total at least %d", room.CurrentBet+room.BetAmount)
	}

	return s.commitWager(room, p, string(ActionBet), amount)
}

func (s *Service) applyRaise(room *Room, p *Player, amount int) error {
	minimum := room.BetAmount
	if room.CurrentBet > 0 {
		minimum = room.CurrentBet + room.BetAmount
	}

	if amount < minimum {
		return fmt.Errorf("a raise must total at least %d", minimum)
	}

	return s.commitWager(room, p, string(ActionRaise), amount)
}

// commitWager moves the player's contribution for this round up to
// amount, which becomes the new current bet. Going all-in through a bet
// or raise is not allowed; a short stack must call or fold instead.
func (s *Service) commitWager(room *Room, p *Player, action string, amount int) error {
	delta := amount - p.RoundBet
	if delta <= 0 {
		return fmt.Errorf("you have already put in %d this round", p.RoundBet)
	}

	if delta > p.Chips {
		return fmt.Errorf("you only have %d chips, call or fold instead", p.Chips)
	}

	p.Chips -= delta
	p.RoundBet = amount
	room.Pot += delta
	room.CurrentBet = amount
	room.lastBettor = p

	s.narrate(room, p, action, amount, 0, fmt.Sprintf("%s %ss %d", p.Name, action, amount))
	return nil
}

func (s *Service) applyCall(room *Room, p *Player) error {
	if room.CurrentBet == 0 {
		// nothing to call; treat as a check
		s.narrate(room, p, string(ActionCheck), 0, 0, p.Name+" checks")
		return nil
	}

	needed := room.CurrentBet - p.RoundBet
	if needed <= 0 {
		return fmt.Errorf("you have already matched the bet of %d", room.CurrentBet)
	}

	if needed >= p.Chips {
		// all-in for less
		paid := p.Chips
		p.Chips = 0
		p.RoundBet += paid
		room.Pot += paid
		room.lastBettor = p

		s.narrate(room, p, "allIn", paid, 0, fmt.Sprintf("%s is all in for %d", p.Name, paid))
		return nil
	}

	p.Chips -= needed
	p.RoundBet = room.CurrentBet
	room.Pot += needed
	room.lastBettor = p

	s.narrate(room, p, string(ActionCall), needed, 0, fmt.Sprintf("%s calls %d", p.Name, needed))
	return nil
}
