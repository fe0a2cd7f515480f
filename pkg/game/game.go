// Package game implements the badugi game engine: rooms, turns,
// betting, exchanges, and settlement. All room mutation is serialized
// behind a per-room mutex; timer expiry re-enters through the same
// lock and revalidates before acting.
package game

import (
	"time"

	"badugi-server/pkg/badugi"
	"badugi-server/pkg/deck"

	"github.com/sirupsen/logrus"
)

// default settings, overridable through Options
const (
	DefaultTurnTime = 30 * time.Second
	DefaultChips    = 100000
)

// Options configures a Service
type Options struct {
	// TurnTime is how long a player has to act before the engine acts
	// for them
	TurnTime time.Duration

	// DefaultChips is the starting stack for players joining without an
	// explicit buy-in
	DefaultChips int

	// Seed, when non-zero, makes every deal deterministic
	Seed int64
}

// Service is the game engine. A single Service owns every room.
type Service struct {
	registry *Registry
	timers   *TimerManager
	lobby    Lobby

	turnTime     time.Duration
	defaultChips int
	seed         int64

	lobbyCh chan struct{}

	logger logrus.FieldLogger
}

// NewService returns a game engine broadcasting lobby updates through
// the supplied Lobby
func NewService(lobby Lobby, opts Options) *Service {
	if opts.TurnTime <= 0 {
		opts.TurnTime = DefaultTurnTime
	}

	if opts.DefaultChips <= 0 {
		opts.DefaultChips = DefaultChips
	}

	s := &Service{
		registry:     NewRegistry(),
		timers:       NewTimerManager(),
		lobby:        lobby,
		turnTime:     opts.TurnTime,
		defaultChips: opts.DefaultChips,
		seed:         opts.Seed,
		lobbyCh:      make(chan struct{}, 1),
		logger:       logrus.StandardLogger(),
	}

	go s.lobbyLoop()
	return s
}

// Rooms returns the lobby projection of every room
func (s *Service) Rooms() []*Summary {
	return s.registry.Summaries()
}

// RoomState returns the public state of a single room
func (s *Service) RoomState(roomID int64) (*State, error) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return room.stateLocked(), nil
}

// StartGame deals a new hand. Only the creator may start, at least two
// players must be seated, and every player must cover the ante.
func (s *Service) StartGame(roomID, playerID int64) error {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	return s.startGame(room, playerID)
}

func (s *Service) startGame(room *Room, playerID int64) error {
	if room.Status != StatusWaiting {
		return ErrGameInProgress
	}

	if playerID != room.CreatorID {
		return ErrNotCreator
	}

	if len(room.players) < 2 {
		return ErrNotEnoughPlayers
	}

	// validate before mutating anything
	for _, p := range room.players {
		if p.Chips < room.BetAmount {
			return ErrInsufficientChips
		}
	}

	d := deck.New()
	if s.seed != 0 {
		d.SetSeed(s.seed)
	}
	d.Shuffle()

	room.Status = StatusPlaying
	room.Phase = PhaseBetting
	room.BettingRound = 0
	room.ExchangesTaken = 0
	room.Pot = 0
	room.CurrentBet = 0
	room.lastBettor = nil
	room.lastActor = nil
	room.timeoutHandling = false
	room.deck = d
	room.hands = make(map[int64][]*deck.Card)

	for _, p := range room.players {
		p.resetForHand()
		p.LeaveReserved = false
		p.Chips -= room.BetAmount
		room.Pot += room.BetAmount
	}

	// deal before the button moves so a failed deal unwinds cleanly
	if err := s.deal(room); err != nil {
		s.unwindStart(room)
		return err
	}

	s.assignDealer(room)

	first := room.nextActiveSeat(room.seatIndex(room.DealerID))
	if first == -1 {
		s.unwindStart(room)
		return ErrNotEnoughPlayers
	}

	room.turnIndex = first
	room.currentTurnID = room.players[first].ID

	state := room.stateLocked()
	for _, p := range room.players {
		p.send(&Response{
			Key: KeyGameStarted,
			Data: &GameStarted{
				Room:            state,
				Hand:            room.hands[p.ID],
				Best:            p.Best,
				CurrentPlayerID: room.currentTurnID,
				MaxRounds:       MaxBettingRounds,
				MaxExchanges:    MaxExchanges,
			},
		})
	}

	s.logger.WithFields(logrus.Fields{
		"room":   room.ID,
		"dealer": room.DealerID,
		"seed":   room.deck.GetSeed(),
	}).Info("hand started")

	s.announceTurn(room)
	s.refreshLobby()
	return nil
}

// unwindStart rolls back a failed start: the antes are refunded so no
// chips are stranded in the pot, and the room returns to waiting. Lock
// must be held.
func (s *Service) unwindStart(room *Room) {
	for _, p := range room.players {
		p.Chips += room.BetAmount
		p.Best = nil
	}

	room.Pot = 0
	room.Status = StatusWaiting
	room.Phase = PhaseWaiting
	room.DealerID = 0
	room.SmallBlindID = 0
	room.BigBlindID = 0
	room.currentTurnID = 0
	room.turnIndex = 0
	room.deck = nil
	room.hands = nil
}

// assignDealer moves the button. The first hand puts it one seat after
// the creator; later hands put it one seat after the previous dealer,
// falling back to the creator rule if that player left.
func (s *Service) assignDealer(room *Room) {
	n := len(room.players)

	anchor := room.seatIndex(room.CreatorID)
	if anchor == -1 {
		anchor = n - 1
	}

	if room.prevDealerID != 0 {
		if seat := room.seatIndex(room.prevDealerID); seat != -1 {
			anchor = seat
		}
	}

	dealerSeat := (anchor + 1) % n
	room.prevDealerID = room.players[dealerSeat].ID
	room.DealerID = room.players[dealerSeat].ID
	room.SmallBlindID = room.players[(dealerSeat+1)%n].ID
	room.BigBlindID = room.players[(dealerSeat+2)%n].ID
}

func (s *Service) deal(room *Room) error {
	for _, p := range room.players {
		hand := make([]*deck.Card, 0, badugi.HandSize)
		for i := 0; i < badugi.HandSize; i++ {
			card, err := room.deck.Draw()
			if err != nil {
				return err
			}

			hand = append(hand, card)
		}

		room.hands[p.ID] = hand

		best, err := badugi.Evaluate(hand)
		if err != nil {
			return err
		}

		p.Best = best
	}

	return nil
}

// advanceTurn moves the action forward after a successfully applied
// action: it checks for a forced win, closes the current phase if
// complete, or rotates to the next actor. Lock must be held.
func (s *Service) advanceTurn(room *Room) {
	s.timers.Disarm(room.ID)

	if len(room.activePlayers()) <= 1 {
		s.showdown(room, reasonForfeit)
		return
	}

	if room.Phase == PhaseBetting && room.bettingClosed() {
		s.finishBettingRound(room)
		return
	}

	if room.Phase == PhaseExchange && room.exchangeClosed() {
		s.finishExchangePhase(room)
		return
	}

	next := room.nextActiveSeat(room.turnIndex)
	if next == -1 || room.players[next].ID == room.currentTurnID {
		// nobody else can act; the hand cannot continue
		s.logger.WithField("room", room.ID).Warn("no actionable player remains, forcing showdown")
		s.showdown(room, reasonStalled)
		return
	}

	room.turnIndex = next
	room.currentTurnID = room.players[next].ID
	s.announceTurn(room)
}

// finishBettingRound transitions out of a completed betting round:
// into an exchange phase while any remain, otherwise to showdown.
func (s *Service) finishBettingRound(room *Room) {
	if room.ExchangesTaken >= MaxExchanges {
		s.showdown(room, reasonShowdown)
		return
	}

	room.Phase = PhaseExchange
	room.ExchangesTaken++
	room.CurrentBet = 0
	room.lastBettor = nil

	for _, p := range room.players {
		p.RoundBet = 0
		p.HasActed = false
		p.CanExchange = p.Active()
	}

	s.broadcastRoom(room, &Response{
		Key: KeyPhaseChanged,
		Data: &PhaseChanged{
			Phase:          room.Phase,
			ExchangesTaken: room.ExchangesTaken,
			MaxExchanges:   MaxExchanges,
		},
	})

	// first exchange goes to the seat after whoever closed the betting,
	// falling back to the dealer
	anchor := room.seatIndex(room.DealerID)
	if room.lastActor != nil {
		if seat := room.seatIndex(room.lastActor.ID); seat != -1 {
			anchor = seat
		}
	}

	next := room.nextActiveSeat(anchor)
	if next == -1 {
		s.showdown(room, reasonStalled)
		return
	}

	room.turnIndex = next
	room.currentTurnID = room.players[next].ID
	s.announceTurn(room)
}

// finishExchangePhase starts the next betting round, or showdown after
// the final round. A fresh ante is collected from every active player.
func (s *Service) finishExchangePhase(room *Room) {
	room.BettingRound++
	if room.BettingRound >= MaxBettingRounds {
		s.showdown(room, reasonShowdown)
		return
	}

	room.Phase = PhaseBetting
	room.CurrentBet = 0
	room.lastBettor = nil

	for _, p := range room.players {
		p.resetForRound()
		if !p.Active() {
			continue
		}

		// a short stack antes what it has left
		ante := room.BetAmount
		if p.Chips < ante {
			ante = p.Chips
		}

		p.Chips -= ante
		room.Pot += ante
	}

	s.broadcastRoom(room, &Response{
		Key: KeyRoundStarted,
		Data: &RoundStarted{
			Round:     room.BettingRound,
			RoundName: RoundName(room.BettingRound),
			Pot:       room.Pot,
		},
	})

	next := room.nextActiveSeat(room.seatIndex(room.DealerID))
	if next == -1 {
		s.showdown(room, reasonStalled)
		return
	}

	room.turnIndex = next
	room.currentTurnID = room.players[next].ID
	s.announceTurn(room)
}

// announceTurn broadcasts the new action holder and arms their clock.
// Lock must be held.
func (s *Service) announceTurn(room *Room) {
	timeLeft := int(s.turnTime / tickInterval)

	s.broadcastRoom(room, &Response{
		Key: KeyTurnChanged,
		Data: &TurnChanged{
			CurrentPlayerID: room.currentTurnID,
			TimeLeft:        timeLeft,
		},
	})

	s.broadcastRoomState(room)
	s.armTurnTimer(room)
}

// armTurnTimer starts the countdown for the current actor. The tick
// callback uses a session snapshot taken now, so seats changing later
// never race the ticker. Lock must be held.
func (s *Service) armTurnTimer(room *Room) {
	roomID := room.ID
	playerID := room.currentTurnID
	sessions := room.sessionsLocked()

	onTick := func(remaining int) {
		msg := &Response{
			Key: KeyTimerUpdate,
			Data: &TimerUpdate{
				CurrentPlayerID: playerID,
				TimeLeft:        remaining,
			},
		}

		for _, sess := range sessions {
			sess.Send(msg)
		}
	}

	onExpire := func() {
		s.handleTurnTimeout(roomID, playerID)
	}

	s.timers.Arm(roomID, s.turnTime, onTick, onExpire)
}

// handleTurnTimeout acts for a player whose clock ran out: fold during
// betting, stand pat during exchange. The timeout is dropped unless the
// player still holds the turn.
func (s *Service) handleTurnTimeout(roomID, playerID int64) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Status != StatusPlaying || room.currentTurnID != playerID {
		return
	}

	if room.timeoutHandling {
		s.logger.WithField("room", roomID).Warn("timeout already being handled")
		return
	}

	room.timeoutHandling = true
	defer func() { room.timeoutHandling = false }()

	p := room.player(playerID)
	if p == nil {
		return
	}

	log := s.logger.WithFields(logrus.Fields{
		"room":   roomID,
		"player": playerID,
	})

	if room.Phase == PhaseExchange {
		if err := s.exchangeCards(room, playerID, nil); err != nil {
			log.WithError(err).Error("timeout auto-stay failed")
			return
		}

		s.narrate(room, p, "autoStay", 0, 0, p.Name+" ran out of time and stays")
		return
	}

	if err := s.bettingAction(room, playerID, ActionDie, 0); err != nil {
		log.WithError(err).Error("timeout auto-fold failed")
		return
	}

	s.narrate(room, p, "autoDie", 0, 0, p.Name+" ran out of time and folds")
}

// narrate broadcasts an applied action to the room. Lock must be held.
func (s *Service) narrate(room *Room, p *Player, action string, amount, count int, message string) {
	s.broadcastRoom(room, &Response{
		Key: KeyPlayerAction,
		Data: &PlayerAction{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Action:     action,
			Amount:     amount,
			Count:      count,
			Message:    message,
		},
	})
}

// broadcastRoom sends a message to every seated player. Lock must be held.
func (s *Service) broadcastRoom(room *Room, msg *Response) {
	for _, p := range room.players {
		p.send(msg)
	}
}

// broadcastRoomState pushes the room projection to its players.
// Lock must be held.
func (s *Service) broadcastRoomState(room *Room) {
	s.broadcastRoom(room, &Response{
		Key:  KeyRoom,
		Data: room.stateLocked(),
	})
}

// refreshLobby schedules a lobby-wide rooms update. The actual
// broadcast happens on a separate goroutine so callers may hold room
// locks.
func (s *Service) refreshLobby() {
	select {
	case s.lobbyCh <- struct{}{}:
	default:
	}
}

func (s *Service) lobbyLoop() {
	for range s.lobbyCh {
		s.lobby.Broadcast(&Response{
			Key:  KeyRooms,
			Data: s.registry.Summaries(),
		})
	}
}
