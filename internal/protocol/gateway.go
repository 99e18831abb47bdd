package protocol

import "diceboard/internal/model"

// Gateway is the sole path by which services publish state changes to
// connected clients, and by which they manage room broadcast groups.
// The websocket hub implements it; tests use a recording fake.
type Gateway interface {
	// ToRoom delivers the message to every connection in the room's
	// broadcast group, in call order
	ToRoom(roomID model.RoomID, msg Message)

	// ToPlayer delivers the message to the player's bound connection,
	// if any
	ToPlayer(playerID model.PlayerID, msg Message)

	// ToAll delivers the message to every bound connection
	ToAll(msg Message)

	// JoinRoom admits the player's connection to the room's broadcast group
	JoinRoom(playerID model.PlayerID, roomID model.RoomID)

	// LeaveRoom removes the player's connection from the room's group
	LeaveRoom(playerID model.PlayerID, roomID model.RoomID)

	// DropRoom discards the room's broadcast group entirely
	DropRoom(roomID model.RoomID)
}
