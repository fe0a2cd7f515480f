package game

import "errors"

// sentinel errors returned to the gateway for client-facing failures
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("the room is full")
	ErrWrongPassword     = errors.New("incorrect room password")
	ErrGameInProgress    = errors.New("the game is already in progress")
	ErrGameNotInProgress = errors.New("the game is not in progress")
	ErrNotInRoom         = errors.New("you are not in this room")
	ErrNotCreator        = errors.New("only the room creator may do that")
	ErrNotEnoughPlayers  = errors.New("at least two players are required to start")
	ErrInsufficientChips = errors.New("every player needs enough chips for the ante")
	ErrNotYourTurn       = errors.New("it is not your turn")
	ErrPlayerFolded      = errors.New("you have already folded")
	ErrLeaveReserved     = errors.New("you are leaving after this hand and cannot act")
	ErrNotBettingPhase   = errors.New("betting actions are not allowed right now")
	ErrNotExchangePhase  = errors.New("card exchanges are not allowed right now")
	ErrAlreadyExchanged  = errors.New("you have already exchanged this phase")
	ErrNoChips           = errors.New("you have no chips left; call or fold")
	ErrCreatorMustStay   = errors.New("the creator cannot leave while others remain; the room would be orphaned")
	ErrLeaveDeferred     = errors.New("the game is in progress; you will leave when the current hand ends")
	ErrDeckExhausted     = errors.New("the deck is exhausted; the hand has been aborted")
	ErrUnknownAction     = errors.New("unknown action")
)
