package game

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"badugi-server/pkg/badugi"
	"badugi-server/pkg/deck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLobby struct {
	mu   sync.Mutex
	msgs []*Response
}

func (l *stubLobby) Broadcast(msg *Response) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

type stubSession struct {
	mu   sync.Mutex
	msgs []*Response
}

func (s *stubSession) Send(msg *Response) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return true
}

// received returns the messages with the given key, oldest first
func (s *stubSession) received(key string) []*Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Response
	for _, msg := range s.msgs {
		if msg.Key == key {
			out = append(out, msg)
		}
	}

	return out
}

func newTestService(turnTime time.Duration) *Service {
	return NewService(&stubLobby{}, Options{
		TurnTime:     turnTime,
		DefaultChips: 1000,
		Seed:         42,
	})
}

// startedGame creates a room with the given players seated and a hand
// under way. Player IDs are 1..n; player 1 is the creator. The ante is
// 100 and every player starts with 1000 chips.
func startedGame(t *testing.T, s *Service, players int) (*Room, []*stubSession) {
	t.Helper()

	state, err := s.CreateRoom(1, "table", 100, 5, "")
	require.NoError(t, err)

	sessions := make([]*stubSession, players)
	for i := 0; i < players; i++ {
		sessions[i] = &stubSession{}
		_, err := s.JoinRoom(int64(i+1), fmt.Sprintf("player-%d", i+1), sessions[i], state.ID, "", 0)
		require.NoError(t, err)
	}

	require.NoError(t, s.StartGame(state.ID, 1))

	room, ok := s.registry.Get(state.ID)
	require.True(t, ok)
	return room, sessions
}

func roomSnapshot(room *Room) *State {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.stateLocked()
}

func TestService_StartGame(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 2)

	state := roomSnapshot(room)
	a.Equal(StatusPlaying, state.Status)
	a.Equal(PhaseBetting, state.Phase)
	a.Equal(0, state.BettingRound)
	a.Equal("morning", state.RoundName)
	a.Equal(200, state.Pot)
	a.Equal(0, state.CurrentBet)

	// creator sits at seat 0, so the button lands on seat 1 and the
	// first action returns to seat 0
	a.Equal(int64(2), state.DealerID)
	a.Equal(int64(1), state.CurrentPlayerID)

	for _, p := range state.Players {
		a.Equal(900, p.Chips)
		a.False(p.Folded)

		// hole-card information never rides the public projection
		a.Nil(p.Best)
	}

	room.mu.Lock()
	for _, p := range room.players {
		a.Equal(4, len(room.hands[p.ID]))
		a.NotNil(p.Best)
	}
	a.Equal(44, room.deck.CardsLeft())
	room.mu.Unlock()

	for _, sess := range sessions {
		a.Equal(1, len(sess.received(KeyGameStarted)))
		a.NotEmpty(sess.received(KeyTurnChanged))
	}
}

func TestService_StartGameRejections(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	state, err := s.CreateRoom(1, "table", 100, 5, "")
	a.NoError(err)

	_, err = s.JoinRoom(1, "creator", &stubSession{}, state.ID, "", 0)
	a.NoError(err)

	a.Equal(ErrNotEnoughPlayers, s.StartGame(state.ID, 1))

	_, err = s.JoinRoom(2, "guest", &stubSession{}, state.ID, "", 0)
	a.NoError(err)

	a.Equal(ErrNotCreator, s.StartGame(state.ID, 2))
	a.Equal(ErrRoomNotFound, s.StartGame(99, 1))

	// a short stack blocks the start and nothing is mutated
	room, _ := s.registry.Get(state.ID)
	room.mu.Lock()
	room.players[1].Chips = 50
	room.mu.Unlock()

	a.Equal(ErrInsufficientChips, s.StartGame(state.ID, 1))

	snap := roomSnapshot(room)
	a.Equal(StatusWaiting, snap.Status)
	a.Equal(0, snap.Pot)
	a.Equal(1000, snap.Players[0].Chips)
	a.Equal(50, snap.Players[1].Chips)

	// and starting twice fails
	room.mu.Lock()
	room.players[1].Chips = 1000
	room.mu.Unlock()

	a.NoError(s.StartGame(state.ID, 1))
	a.Equal(ErrGameInProgress, s.StartGame(state.ID, 1))
}

func TestService_BettingRoundToExchange(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, _ := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionBet, 100))

	state := roomSnapshot(room)
	a.Equal(300, state.Pot)
	a.Equal(100, state.CurrentBet)
	a.Equal(int64(2), state.CurrentPlayerID)

	a.NoError(s.HandleBettingAction(room.ID, 2, ActionCall, 0))

	// the call closes the round and opens the first exchange
	state = roomSnapshot(room)
	a.Equal(PhaseExchange, state.Phase)
	a.Equal(1, state.ExchangesTaken)
	a.Equal(400, state.Pot)
	a.Equal(0, state.CurrentBet)
	a.Equal(int64(1), state.CurrentPlayerID)

	for _, p := range state.Players {
		a.True(p.CanExchange)
		a.Equal(0, p.RoundBet)
	}
}

func TestService_BettingRejections(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, _ := startedGame(t, s, 2)

	a.Equal(ErrNotYourTurn, s.HandleBettingAction(room.ID, 2, ActionCheck, 0))
	a.Equal(ErrRoomNotFound, s.HandleBettingAction(99, 1, ActionCheck, 0))
	a.Equal(ErrNotInRoom, s.HandleBettingAction(room.ID, 42, ActionCheck, 0))
	a.Equal(ErrNotExchangePhase, s.HandleCardExchange(room.ID, 1, nil))

	// the opening bet must be exactly the ante
	a.Error(s.HandleBettingAction(room.ID, 1, ActionBet, 50))
	a.Error(s.HandleBettingAction(room.ID, 1, ActionBet, 150))

	// calling nothing with an explicit check is fine, checking into a
	// live bet is not
	a.NoError(s.HandleBettingAction(room.ID, 1, ActionBet, 100))
	a.Error(s.HandleBettingAction(room.ID, 2, ActionCheck, 0))

	// a raise must exceed the current bet by at least the ante
	a.Error(s.HandleBettingAction(room.ID, 2, ActionRaise, 150))
	a.NoError(s.HandleBettingAction(room.ID, 2, ActionRaise, 200))
}

func TestService_CallOnZeroBetIsCheck(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionCall, 0))

	state := roomSnapshot(room)
	a.Equal(200, state.Pot)
	a.Equal(0, state.CurrentBet)

	actions := sessions[0].received(KeyPlayerAction)
	a.NotEmpty(actions)
	a.Equal("check", actions[len(actions)-1].Data.(*PlayerAction).Action)
}

func TestService_AllInCall(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, _ := startedGame(t, s, 2)

	room.mu.Lock()
	room.players[1].Chips = 50
	room.mu.Unlock()

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionBet, 100))
	a.NoError(s.HandleBettingAction(room.ID, 2, ActionCall, 0))

	state := roomSnapshot(room)
	a.Equal(0, state.Players[1].Chips)
	a.Equal(350, state.Pot)

	// the short call still closes the round
	a.Equal(PhaseExchange, state.Phase)
}

func TestService_FoldForcesShowdown(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionDie, 0))

	state := roomSnapshot(room)
	a.Equal(StatusWaiting, state.Status)
	a.Equal(0, state.Pot)
	a.Equal(900, state.Players[0].Chips)
	a.Equal(1100, state.Players[1].Chips)

	ended := sessions[1].received(KeyGameEnded)
	a.Equal(1, len(ended))
	data := ended[0].Data.(*GameEnded)
	a.Equal(1, len(data.Winners))
	a.Equal(int64(2), data.Winners[0].PlayerID)
	a.Equal(200, data.Winners[0].Winnings)

	// the folded hand is not revealed
	for _, revealed := range data.FinalHands {
		a.NotEqual(int64(1), revealed.PlayerID)
	}
}

func TestService_ExchangeAndNextRound(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionCheck, 0))
	a.NoError(s.HandleBettingAction(room.ID, 2, ActionCheck, 0))

	room.mu.Lock()
	hand := room.hands[1]
	swap := []string{hand[0].ID(), hand[1].ID()}
	keep1, keep2 := hand[2], hand[3]
	cardsBefore := room.deck.CardsLeft()
	room.mu.Unlock()

	a.NoError(s.HandleCardExchange(room.ID, 1, swap))

	room.mu.Lock()
	newHand := room.hands[1]
	a.Equal(4, len(newHand))
	for _, card := range newHand {
		a.NotEqual(swap[0], card.ID())
		a.NotEqual(swap[1], card.ID())
	}

	ids := make(map[string]bool)
	for _, card := range newHand {
		ids[card.ID()] = true
	}
	a.True(ids[keep1.ID()])
	a.True(ids[keep2.ID()])
	a.Equal(cardsBefore-2, room.deck.CardsLeft())
	a.False(room.players[0].CanExchange)
	room.mu.Unlock()

	a.Equal(1, len(sessions[0].received(KeyHandUpdated)))
	a.Empty(sessions[1].received(KeyHandUpdated))

	// the second player stands pat, which closes the exchange and
	// begins the next betting round with a fresh ante
	a.NoError(s.HandleCardExchange(room.ID, 2, nil))

	state := roomSnapshot(room)
	a.Equal(PhaseBetting, state.Phase)
	a.Equal(1, state.BettingRound)
	a.Equal("lunch", state.RoundName)
	a.Equal(400, state.Pot)
	a.Equal(800, state.Players[0].Chips)
	a.Equal(800, state.Players[1].Chips)
	a.Equal(int64(1), state.CurrentPlayerID)
}

func TestService_ExchangeRejections(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, _ := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionCheck, 0))
	a.NoError(s.HandleBettingAction(room.ID, 2, ActionCheck, 0))

	a.Equal(ErrNotYourTurn, s.HandleCardExchange(room.ID, 2, nil))
	a.Equal(ErrNotBettingPhase, s.HandleBettingAction(room.ID, 1, ActionCheck, 0))

	a.Error(s.HandleCardExchange(room.ID, 1, []string{"hA", "h2", "h3", "h4", "h5"}))
	a.Error(s.HandleCardExchange(room.ID, 1, []string{"zZ"}))

	room.mu.Lock()
	id := room.hands[1][0].ID()
	room.mu.Unlock()

	a.Error(s.HandleCardExchange(room.ID, 1, []string{id, id}))

	a.NoError(s.HandleCardExchange(room.ID, 1, []string{id}))
	a.Equal(ErrNotYourTurn, s.HandleCardExchange(room.ID, 1, nil))
}

func TestService_FullHandPotConservation(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 2)

	total := func() int {
		room.mu.Lock()
		defer room.mu.Unlock()

		sum := room.Pot
		for _, p := range room.players {
			sum += p.Chips
		}
		return sum
	}

	for round := 0; round < MaxBettingRounds; round++ {
		a.Equal(2000, total())
		a.NoError(s.HandleBettingAction(room.ID, 1, ActionCheck, 0))
		a.NoError(s.HandleBettingAction(room.ID, 2, ActionCheck, 0))

		if round < MaxExchanges {
			a.NoError(s.HandleCardExchange(room.ID, 1, nil))
			a.NoError(s.HandleCardExchange(room.ID, 2, nil))
		}
	}

	state := roomSnapshot(room)
	a.Equal(StatusWaiting, state.Status)
	a.Equal(0, state.Pot)
	a.Equal(2000, total())

	ended := sessions[0].received(KeyGameEnded)
	a.Equal(1, len(ended))
	data := ended[0].Data.(*GameEnded)
	a.Equal(800, data.Pot)
	a.Equal(2, len(data.FinalHands))
}

func TestService_ShowdownSplitWithRemainder(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 3)

	hands := []string{"sA,h2,d3,s5", "hA,d2,c3,h5", "dA,c2,s3,d5"}

	room.mu.Lock()
	room.Pot = 100
	for i, p := range room.players {
		cards := deck.CardsFromString(hands[i])
		room.hands[p.ID] = cards
		best, err := badugi.Evaluate(cards)
		a.NoError(err)
		p.Best = best
		p.Chips = 0
	}

	s.showdown(room, reasonShowdown)

	a.Equal(34, room.players[0].Chips)
	a.Equal(33, room.players[1].Chips)
	a.Equal(33, room.players[2].Chips)
	a.Equal(0, room.Pot)
	a.Equal(StatusWaiting, room.Status)
	room.mu.Unlock()

	ended := sessions[0].received(KeyGameEnded)
	require.Equal(t, 1, len(ended))
	data := ended[0].Data.(*GameEnded)

	a.Equal("showdown", data.Reason)
	a.Equal([]int64{1, 2, 3}, data.WinnerIDs)
	a.Equal([]string{"player-1", "player-2", "player-3"}, data.WinnerNames)

	// finalPlayers carries the post-payout chip counts
	require.Equal(t, 3, len(data.FinalPlayers))
	a.Equal(34, data.FinalPlayers[0].Chips)
	a.Equal(33, data.FinalPlayers[1].Chips)
	a.Equal(33, data.FinalPlayers[2].Chips)
}

func TestService_TurnTimeoutAutoFolds(t *testing.T) {
	fastTicks(t)
	a := assert.New(t)

	s := newTestService(30 * time.Millisecond)
	room, sessions := startedGame(t, s, 2)

	time.Sleep(200 * time.Millisecond)

	// player 1 timed out and folded, handing player 2 the pot
	state := roomSnapshot(room)
	a.Equal(StatusWaiting, state.Status)
	a.Equal(900, state.Players[0].Chips)
	a.Equal(1100, state.Players[1].Chips)

	var autoDied bool
	for _, msg := range sessions[1].received(KeyPlayerAction) {
		if msg.Data.(*PlayerAction).Action == "autoDie" {
			autoDied = true
		}
	}
	a.True(autoDied)
}

func TestService_TurnTimeoutAutoStays(t *testing.T) {
	fastTicks(t)
	a := assert.New(t)

	s := newTestService(40 * time.Millisecond)
	room, sessions := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionCheck, 0))
	a.NoError(s.HandleBettingAction(room.ID, 2, ActionCheck, 0))

	state := roomSnapshot(room)
	a.Equal(PhaseExchange, state.Phase)

	// both players idle for the rest of the hand: two auto-stays close
	// the exchange, then player 1 times out of the next betting round
	// and auto-folds, ending the hand in player 2's favor
	time.Sleep(400 * time.Millisecond)

	state = roomSnapshot(room)
	a.Equal(StatusWaiting, state.Status)
	a.Equal(800, state.Players[0].Chips)
	a.Equal(1200, state.Players[1].Chips)

	var autoStays, autoDies int
	for _, msg := range sessions[0].received(KeyPlayerAction) {
		switch msg.Data.(*PlayerAction).Action {
		case "autoStay":
			autoStays++
		case "autoDie":
			autoDies++
		}
	}
	a.Equal(2, autoStays)
	a.Equal(1, autoDies)
}

func TestService_TimerTicksReachPlayers(t *testing.T) {
	fastTicks(t)
	a := assert.New(t)

	s := newTestService(100 * time.Millisecond)
	_, sessions := startedGame(t, s, 2)

	time.Sleep(50 * time.Millisecond)

	ticks := sessions[1].received(KeyTimerUpdate)
	a.NotEmpty(ticks)
	tick := ticks[0].Data.(*TimerUpdate)
	a.Equal(int64(1), tick.CurrentPlayerID)
	a.Greater(tick.TimeLeft, 0)
}

func TestService_CreateRoomCapsCapacity(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)

	_, err := s.CreateRoom(1, "too big", 100, 20, "")
	a.EqualError(err, "a table seats at most 13 players")

	_, err = s.CreateRoom(1, "full deck", 100, MaxPlayerLimit, "")
	a.NoError(err)
}

func TestService_FailedStartRefundsAntes(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)

	// an oversized room can only exist by bypassing CreateRoom, but a
	// failed deal must still refund every ante
	room := s.registry.Create("table", 1, 100, 20, "")
	for i := 0; i < 14; i++ {
		_, err := s.JoinRoom(int64(i+1), fmt.Sprintf("player-%d", i+1), &stubSession{}, room.ID, "", 0)
		require.NoError(t, err)
	}

	total := func() int {
		room.mu.Lock()
		defer room.mu.Unlock()

		sum := room.Pot
		for _, p := range room.players {
			sum += p.Chips
		}
		return sum
	}

	a.Equal(deck.ErrEndOfDeck, s.StartGame(room.ID, 1))
	a.Equal(deck.ErrEndOfDeck, s.StartGame(room.ID, 1))

	snap := roomSnapshot(room)
	a.Equal(StatusWaiting, snap.Status)
	a.Equal(0, snap.Pot)
	for _, p := range snap.Players {
		a.Equal(1000, p.Chips)
		a.Nil(p.Best)
	}
	a.Equal(14000, total())
}

func TestRoom_StateIsDetachedSnapshot(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, _ := startedGame(t, s, 2)

	// a broadcast payload is marshaled on the client's write goroutine
	// after the lock is released, so it must not see later mutation
	snap := roomSnapshot(room)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionBet, 100))

	a.Equal(900, snap.Players[0].Chips)
	a.Equal(0, snap.Players[0].RoundBet)
	a.Equal(200, snap.Pot)

	room.mu.Lock()
	a.Equal(800, room.players[0].Chips)
	room.mu.Unlock()
}

func TestService_DeckExhaustionEndsHand(t *testing.T) {
	a := assert.New(t)

	s := newTestService(time.Minute)
	room, sessions := startedGame(t, s, 2)

	a.NoError(s.HandleBettingAction(room.ID, 1, ActionCheck, 0))
	a.NoError(s.HandleBettingAction(room.ID, 2, ActionCheck, 0))

	room.mu.Lock()
	a.Equal(PhaseExchange, room.Phase)
	for room.deck.CardsLeft() > 2 {
		_, err := room.deck.Draw()
		a.NoError(err)
	}
	swap := deck.CardsToString(room.hands[1])
	room.mu.Unlock()

	err := s.HandleCardExchange(room.ID, 1, strings.Split(swap, ","))
	a.Equal(ErrDeckExhausted, err)

	// the hand resolves instead of stalling, and the payload says why
	state := roomSnapshot(room)
	a.Equal(StatusWaiting, state.Status)
	a.Equal(0, state.Pot)
	a.Equal(2000, state.Players[0].Chips+state.Players[1].Chips)

	ended := sessions[0].received(KeyGameEnded)
	require.Equal(t, 1, len(ended))
	data := ended[0].Data.(*GameEnded)
	a.Equal("deck exhausted", data.Reason)
	a.Equal(200, data.Pot)
	a.NotEmpty(data.WinnerIDs)
}
