package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Room errors
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomNotWaiting = errors.New("room is not accepting players")
	ErrAlreadyInRoom  = errors.New("player is already in a room")
	ErrNotInRoom      = errors.New("player is not in a room")
	ErrNotHost        = errors.New("player is not the host")

	// Game errors
	ErrGameNotStarted = errors.New("game has not started")
	ErrNotYourTurn    = errors.New("not this player's turn")
	ErrNotAllReady    = errors.New("not all players are ready or too few players")

	// Item errors
	ErrItemNotHeld   = errors.New("item is not in inventory")
	ErrInvalidTarget = errors.New("invalid target for item")
	ErrItemRejected  = errors.New("item use rejected")
)
