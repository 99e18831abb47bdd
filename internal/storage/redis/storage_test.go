package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"diceboard/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TestPlayerRoundTrip() {
	p := &model.Player{
		ID:        "p1",
		Name:      "Alice",
		Status:    model.StatusPlaying,
		Role:      model.RoleHost,
		Position:  17,
		Laps:      1,
		Inventory: []model.ItemName{model.ItemShield, model.ItemCurse},
		Saving:    model.SavingMode{Active: true, Stack: 4},
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p))

	got, err := s.storage.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(p, got)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "ghost")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeletePlayer() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1"}))
	s.Require().NoError(s.storage.DeletePlayer(s.ctx, "p1"))

	_, err := s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestPlayerExpiresWithTTL() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: "p1"}))

	s.mini.FastForward(DefaultConfig().PlayerTTL + time.Minute)

	_, err := s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestRoomRoundTrip() {
	rm := &model.Room{
		ID:         "room_aaaa111",
		Name:       "Table",
		HostID:     "p1",
		Players:    []model.PlayerID{"p1", "p2"},
		MaxPlayers: model.DefaultRoomCapacity,
		Status:     model.RoomStatusPlaying,
		TurnIndex:  1,
		BoardCells: []model.BoardCell{
			{Kind: model.CellItem, Item: model.ItemPlus},
			{Kind: model.CellMoveBack, Steps: 2},
			{Kind: model.CellEmpty},
		},
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))

	got, err := s.storage.GetRoom(s.ctx, rm.ID)
	s.Require().NoError(err)
	s.Equal(rm, got)
}

func (s *StorageSuite) TestGetRoomNotFound() {
	_, err := s.storage.GetRoom(s.ctx, "room_nope000")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestDeleteRoomRemovesIndexEntry() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "room_aaaa111"}))
	s.Require().NoError(s.storage.DeleteRoom(s.ctx, "room_aaaa111"))

	exists, err := s.storage.RoomExists(s.ctx, "room_aaaa111")
	s.Require().NoError(err)
	s.False(exists)

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *StorageSuite) TestRoomExists() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "room_aaaa111"}))

	exists, err := s.storage.RoomExists(s.ctx, "room_aaaa111")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestListRoomsOrderedByCreation() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "room_ccc3333", CreatedAt: base.Add(2 * time.Minute)}))
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "room_aaa1111", CreatedAt: base}))
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "room_bbb2222", CreatedAt: base.Add(time.Minute)}))

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 3)
	s.Equal(model.RoomID("room_aaa1111"), rooms[0].ID)
	s.Equal(model.RoomID("room_bbb2222"), rooms[1].ID)
	s.Equal(model.RoomID("room_ccc3333"), rooms[2].ID)
}

func (s *StorageSuite) TestListRoomsDropsStaleIndexEntries() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, &model.Room{ID: "room_aaaa111"}))
	// simulate an expired room document whose index entry survived
	s.mini.Del(roomKey("room_aaaa111"))

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Empty(rooms)

	s.False(s.mini.Exists(roomIndexKey()))
}
