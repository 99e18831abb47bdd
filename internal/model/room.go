package model

import "time"

// RoomID identifies a room
type RoomID string

// RoomStatus represents the room lifecycle state
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusPlaying RoomStatus = "playing"
)

// DefaultRoomCapacity is the fixed member limit for new rooms
const DefaultRoomCapacity = 5

// MinPlayersToStart is the minimum member count required to start a game
const MinPlayersToStart = 2

// Room is an isolated game session. Members are stored by id only; player
// records are owned by storage. Join order is turn order.
type Room struct {
	ID         RoomID     `json:"id"`
	Name       string     `json:"name"`
	HostID     PlayerID   `json:"hostId"`
	Players    []PlayerID `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	Status     RoomStatus `json:"status"`

	// BoardCells is the effect sequence assigned at game start.
	// Index i maps to track cell i+1; cell 0 is always the start cell.
	// Empty while the room is waiting.
	BoardCells []BoardCell `json:"boardCells,omitempty"`

	// TurnIndex is the index into Players of the current-turn player
	TurnIndex int `json:"turnIndex"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasPlayer reports whether the id is a current member
func (r *Room) HasPlayer(id PlayerID) bool {
	for _, pid := range r.Players {
		if pid == id {
			return true
		}
	}
	return false
}

// RemovePlayer removes the id from the member list, reporting whether
// it was present
func (r *Room) RemovePlayer(id PlayerID) bool {
	for i, pid := range r.Players {
		if pid == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}

// IsFull reports whether the room is at capacity
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// CurrentTurnPlayer returns the id of the player whose turn it is,
// or "" if the room has no members
func (r *Room) CurrentTurnPlayer() PlayerID {
	if len(r.Players) == 0 {
		return ""
	}
	if r.TurnIndex < 0 || r.TurnIndex >= len(r.Players) {
		return r.Players[0]
	}
	return r.Players[r.TurnIndex]
}

// AdvanceTurn moves the turn index to the next member in join order
func (r *Room) AdvanceTurn() {
	if len(r.Players) == 0 {
		r.TurnIndex = 0
		return
	}
	r.TurnIndex = (r.TurnIndex + 1) % len(r.Players)
}
