package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// CreateRoom registers a new room. The creator is not seated until they
// join. A non-empty password makes the room private.
func (s *Service) CreateRoom(creatorID int64, name string, betAmount, maxPlayers int, password string) (*State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("the room needs a name")
	}

	if betAmount <= 0 {
		return nil, errors.New("the ante must be a positive number of chips")
	}

	if maxPlayers <= 0 {
		maxPlayers = MaxPlayerDefault
	}

	if maxPlayers > MaxPlayerLimit {
		return nil, fmt.Errorf("a table seats at most %d players", MaxPlayerLimit)
	}

	room := s.registry.Create(name, creatorID, betAmount, maxPlayers, password)

	s.logger.WithFields(logrus.Fields{
		"room":    room.ID,
		"creator": creatorID,
	}).Info("room created")

	s.refreshLobby()

	room.mu.Lock()
	defer room.mu.Unlock()
	return room.stateLocked(), nil
}

// JoinRoom seats the player, or reattaches their session if they are
// already seated. initialChips of zero means the configured default.
func (s *Service) JoinRoom(playerID int64, name string, sess Session, roomID int64, password string, initialChips int) (*State, error) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if existing := room.player(playerID); existing != nil {
		// reconnect: swap the session, nothing else changes
		existing.session = sess
		return room.stateLocked(), nil
	}

	if room.Status != StatusWaiting {
		return nil, ErrGameInProgress
	}

	if len(room.players) >= room.MaxPlayers {
		return nil, ErrRoomFull
	}

	if room.password != "" && room.password != password {
		return nil, ErrWrongPassword
	}

	chips := initialChips
	if chips <= 0 {
		chips = s.defaultChips
	}

	room.players = append(room.players, &Player{
		ID:        playerID,
		Name:      name,
		Chips:     chips,
		IsCreator: playerID == room.CreatorID,
		session:   sess,
	})

	s.logger.WithFields(logrus.Fields{
		"room":   room.ID,
		"player": playerID,
	}).Info("player joined")

	s.broadcastRoomState(room)
	s.refreshLobby()
	return room.stateLocked(), nil
}

// LeaveRoom removes the player. A leave during a hand becomes a
// reservation instead; the player exits when the hand ends.
func (s *Service) LeaveRoom(playerID, roomID int64) error {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	seat := room.seatIndex(playerID)
	if seat == -1 {
		return ErrNotInRoom
	}

	if room.Status == StatusWaiting && playerID == room.CreatorID && len(room.players) > 1 {
		return ErrCreatorMustStay
	}

	if room.Status != StatusWaiting {
		room.players[seat].LeaveReserved = true
		s.broadcastRoomState(room)
		s.yieldTurnIfHeld(room, playerID)
		return ErrLeaveDeferred
	}

	s.removeSeat(room, seat)
	return nil
}

// ReserveLeave flags the player to exit when the current hand ends
func (s *Service) ReserveLeave(playerID, roomID int64) error {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	p := room.player(playerID)
	if p == nil {
		return ErrNotInRoom
	}

	if room.Status == StatusWaiting {
		return ErrGameNotInProgress
	}

	p.LeaveReserved = true
	s.broadcastRoomState(room)
	s.yieldTurnIfHeld(room, playerID)
	return nil
}

// CancelLeave clears a pending leave reservation
func (s *Service) CancelLeave(playerID, roomID int64) error {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	p := room.player(playerID)
	if p == nil {
		return ErrNotInRoom
	}

	if !p.LeaveReserved {
		return nil
	}

	p.LeaveReserved = false
	s.broadcastRoomState(room)
	return nil
}

// HandleDisconnect reacts to a session dropping. Seats bound to the
// session are reserved for leave during a hand, or vacated immediately
// otherwise. Seats whose session was already replaced by a reconnect
// are left alone.
func (s *Service) HandleDisconnect(sess Session) {
	for _, room := range s.registry.list() {
		room.mu.Lock()

		seat := -1
		for i, p := range room.players {
			if p.session == sess {
				seat = i
				break
			}
		}

		if seat == -1 {
			room.mu.Unlock()
			continue
		}

		p := room.players[seat]
		if room.Status != StatusWaiting {
			if !p.LeaveReserved {
				p.LeaveReserved = true
				s.broadcastRoomState(room)
				s.logger.WithFields(logrus.Fields{
					"room":   room.ID,
					"player": p.ID,
				}).Info("disconnected player reserved to leave")
				s.yieldTurnIfHeld(room, p.ID)
			}

			room.mu.Unlock()
			continue
		}

		s.removeSeat(room, seat)
		room.mu.Unlock()
	}
}

// yieldTurnIfHeld advances the action when the player holding the turn
// becomes unable to act. Lock must be held.
func (s *Service) yieldTurnIfHeld(room *Room, playerID int64) {
	if room.Status == StatusPlaying && room.currentTurnID == playerID {
		s.advanceTurn(room)
	}
}

// removeSeat vacates the seat, reassigning the creator role or
// destroying the room as needed. Lock must be held.
func (s *Service) removeSeat(room *Room, seat int) {
	p := room.players[seat]
	room.players = append(room.players[:seat], room.players[seat+1:]...)

	s.logger.WithFields(logrus.Fields{
		"room":   room.ID,
		"player": p.ID,
	}).Info("player left")

	if len(room.players) == 0 {
		s.registry.Delete(room.ID)
		s.refreshLobby()
		return
	}

	s.promoteCreator(room)
	s.broadcastRoomState(room)
	s.refreshLobby()
}
