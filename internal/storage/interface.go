package storage

import (
	"context"

	"diceboard/internal/model"
)

// Storage defines the interface for game state persistence.
// The in-memory backend is the default; rooms reference players by id only,
// so the two entity types are stored independently.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	ListRooms(ctx context.Context) ([]*model.Room, error)
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)
}
