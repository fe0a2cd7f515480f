package game

import (
	"fmt"
	"sort"

	"badugi-server/pkg/badugi"
	"badugi-server/pkg/deck"
)

// HandleCardExchange swaps the identified cards out of the player's
// hand for fresh ones. An empty selection stands pat. Advances the turn
// on success.
func (s *Service) HandleCardExchange(roomID, playerID int64, cardIDs []string) error {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if err := s.exchangeCards(room, playerID, cardIDs); err != nil {
		return err
	}

	p := room.player(playerID)
	if p != nil {
		if len(cardIDs) == 0 {
			s.narrate(room, p, "stay", 0, 0, p.Name+" stays")
		} else {
			s.narrate(room, p, "exchange", 0, len(cardIDs), fmt.Sprintf("%s exchanges %d cards", p.Name, len(cardIDs)))
		}
	}

	return nil
}

// exchangeCards applies the swap. Lock must be held. Narration is left
// to the caller so timeouts can report differently.
func (s *Service) exchangeCards(room *Room, playerID int64, cardIDs []string) error {
	p, err := s.actor(room, playerID)
	if err != nil {
		return err
	}

	if room.Phase != PhaseExchange {
		return ErrNotExchangePhase
	}

	if !p.CanExchange {
		return ErrAlreadyExchanged
	}

	if len(cardIDs) > badugi.HandSize {
		return fmt.Errorf("you can exchange at most %d cards", badugi.HandSize)
	}

	if len(cardIDs) == 0 {
		p.CanExchange = false
		p.HasActed = true
		room.lastActor = p
		s.advanceTurn(room)
		return nil
	}

	hand := room.hands[playerID]

	seen := make(map[string]bool)
	discards := make(map[string]bool)
	for _, id := range cardIDs {
		if seen[id] {
			return fmt.Errorf("card %s selected twice", id)
		}
		seen[id] = true

		found := false
		for _, card := range hand {
			if card.ID() == id {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("card %s is not in your hand", id)
		}

		discards[id] = true
	}

	if !room.deck.CanDraw(len(cardIDs)) {
		// nothing sensible can continue this hand
		s.logger.WithField("room", room.ID).Error("deck exhausted during exchange")
		s.showdown(room, reasonDeckExhausted)
		return ErrDeckExhausted
	}

	kept := make([]*deck.Card, 0, badugi.HandSize)
	for _, card := range hand {
		if !discards[card.ID()] {
			kept = append(kept, card)
		}
	}

	for len(kept) < badugi.HandSize {
		card, err := room.deck.Draw()
		if err != nil {
			// CanDraw above makes this unreachable
			s.showdown(room, reasonDeckExhausted)
			return ErrDeckExhausted
		}

		kept = append(kept, card)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Rank < kept[j].Rank
	})

	room.hands[playerID] = kept

	best, err := badugi.Evaluate(kept)
	if err != nil {
		return err
	}
	p.Best = best

	p.send(&Response{
		Key: KeyHandUpdated,
		Data: &HandUpdated{
			Hand: kept,
			Best: best,
		},
	})

	p.CanExchange = false
	p.HasActed = true
	room.lastActor = p

	s.advanceTurn(room)
	return nil
}
