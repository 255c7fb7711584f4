package game

import "errors"

// Admission errors.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrGameStarted     = errors.New("game already started")
	ErrNotSeated       = errors.New("not seated in this room")
	ErrInvalidCapacity = errors.New("capacity must be between 2 and 4")
)

// Turn errors. Rule violations reuse board.ErrIllegalPosition.
var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrWrongPhase  = errors.New("wrong phase for this move")
)
