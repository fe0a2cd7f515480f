package game

import (
	"badugi-server/pkg/badugi"

	"github.com/sirupsen/logrus"
)

// hand-end reasons carried in the gameEnded payload so clients can tell
// a regular showdown from an abnormal termination
const (
	reasonShowdown      = "showdown"
	reasonForfeit       = "all opponents folded or left"
	reasonDeckExhausted = "deck exhausted"
	reasonStalled       = "no actionable player"
	reasonNoPlayers     = "no eligible players remained"
)

// showdown settles the hand and returns the room to waiting. When a
// forfeit leaves a single active player, they take the pot without a
// comparison. Lock must be held.
func (s *Service) showdown(room *Room, reason string) {
	s.timers.Disarm(room.ID)
	room.Status = StatusShowdown
	room.Phase = PhaseShowdown

	active := room.activePlayers()

	var ended *GameEnded
	switch {
	case reason == reasonForfeit && len(active) == 1:
		ended = s.settleForcedWin(room, active[0])
	case len(active) >= 1:
		ended = s.settleComparison(room, active, reason)
	default:
		// everyone folded or left; the pot has no owner and is returned
		// to no one
		s.logger.WithField("room", room.ID).Warn("hand ended with no eligible players")
		ended = &GameEnded{
			Reason:     reasonNoPlayers,
			Winners:    []*WinnerHand{},
			FinalHands: []*RevealedHand{},
			Pot:        room.Pot,
		}
		room.Pot = 0
	}

	for _, w := range ended.Winners {
		ended.WinnerIDs = append(ended.WinnerIDs, w.PlayerID)
		ended.WinnerNames = append(ended.WinnerNames, w.Name)
	}
	ended.FinalPlayers = publicPlayers(room.players)

	room.Status = StatusEnded
	s.broadcastRoom(room, &Response{
		Key:  KeyGameEnded,
		Data: ended,
	})

	s.cleanupHand(room)
}

func (s *Service) settleForcedWin(room *Room, winner *Player) *GameEnded {
	pot := room.Pot
	winner.Chips += pot
	room.Pot = 0

	s.logger.WithFields(logrus.Fields{
		"room":   room.ID,
		"winner": winner.ID,
		"pot":    pot,
	}).Info("hand ended by forfeit")

	return &GameEnded{
		Reason: reasonForfeit,
		Winners: []*WinnerHand{{
			PlayerID: winner.ID,
			Name:     winner.Name,
			Hand:     room.hands[winner.ID],
			Best:     winner.Best,
			Winnings: pot,
		}},
		FinalHands: s.revealedHands(room),
		Pot:        pot,
	}
}

func (s *Service) settleComparison(room *Room, active []*Player, reason string) *GameEnded {
	entries := make([]*badugi.PlayerHand, 0, len(active))
	for _, p := range active {
		if p.Best == nil {
			// hands are evaluated at deal and exchange; missing one is a bug
			best, err := badugi.Evaluate(room.hands[p.ID])
			if err != nil {
				s.logger.WithField("player", p.ID).WithError(err).Error("could not evaluate hand at showdown")
				continue
			}

			p.Best = best
		}

		entries = append(entries, &badugi.PlayerHand{
			PlayerID: p.ID,
			Result:   p.Best,
		})
	}

	winners := badugi.Compare(entries)
	pot := room.Pot

	share := 0
	remainder := 0
	if len(winners) > 0 {
		share = pot / len(winners)
		remainder = pot % len(winners)
	}

	winnerHands := make([]*WinnerHand, 0, len(winners))
	for i, w := range winners {
		p := room.player(w.PlayerID)
		if p == nil {
			continue
		}

		winnings := share
		if i < remainder {
			winnings++
		}

		p.Chips += winnings
		winnerHands = append(winnerHands, &WinnerHand{
			PlayerID: p.ID,
			Name:     p.Name,
			Hand:     room.hands[p.ID],
			Best:     p.Best,
			Winnings: winnings,
		})
	}

	room.Pot = 0

	s.logger.WithFields(logrus.Fields{
		"room":    room.ID,
		"winners": len(winnerHands),
		"pot":     pot,
		"reason":  reason,
	}).Info("hand ended at showdown")

	return &GameEnded{
		Reason:     reason,
		Winners:    winnerHands,
		FinalHands: s.revealedHands(room),
		Pot:        pot,
	}
}

// revealedHands lists every non-folded player's cards. Folded hands
// stay hidden.
func (s *Service) revealedHands(room *Room) []*RevealedHand {
	revealed := make([]*RevealedHand, 0, len(room.players))
	for _, p := range room.players {
		if p.Folded {
			continue
		}

		revealed = append(revealed, &RevealedHand{
			PlayerID: p.ID,
			Name:     p.Name,
			Hand:     room.hands[p.ID],
			Best:     p.Best,
		})
	}

	return revealed
}

// cleanupHand resets the room to waiting: leave-reserved players are
// evicted, the creator role is reassigned if its holder left, and an
// empty room is destroyed. Lock must be held.
func (s *Service) cleanupHand(room *Room) {
	s.timers.Disarm(room.ID)

	remaining := make([]*Player, 0, len(room.players))
	for _, p := range room.players {
		if p.LeaveReserved {
			p.send(&Response{
				Key: KeyForceLeave,
				Data: &ForceLeave{
					RoomID:  room.ID,
					Message: "you left the room at the end of the hand",
				},
			})
			continue
		}

		remaining = append(remaining, p)
	}

	room.players = remaining

	room.Status = StatusWaiting
	room.Phase = PhaseWaiting
	room.BettingRound = 0
	room.ExchangesTaken = 0
	room.Pot = 0
	room.CurrentBet = 0
	room.DealerID = 0
	room.SmallBlindID = 0
	room.BigBlindID = 0
	room.currentTurnID = 0
	room.turnIndex = 0
	room.lastBettor = nil
	room.lastActor = nil
	room.timeoutHandling = false
	room.deck = nil
	room.hands = nil

	for _, p := range room.players {
		p.Folded = false
		p.RoundBet = 0
		p.HasActed = false
		p.CanExchange = false
	}

	if len(room.players) == 0 {
		s.registry.Delete(room.ID)
		s.refreshLobby()
		return
	}

	s.promoteCreator(room)
	s.broadcastRoomState(room)
	s.refreshLobby()
}

// promoteCreator hands the creator role to the first seated player if
// the current creator is gone. Lock must be held.
func (s *Service) promoteCreator(room *Room) {
	if room.player(room.CreatorID) != nil {
		return
	}

	next := room.players[0]
	room.CreatorID = next.ID
	for _, p := range room.players {
		p.IsCreator = p.ID == next.ID
	}

	s.logger.WithFields(logrus.Fields{
		"room":    room.ID,
		"creator": next.ID,
	}).Info("creator role reassigned")
}
