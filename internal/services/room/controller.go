package room

import (
	"context"
	"errors"
	"log/slog"

	"diceboard/internal/dependencies/clock"
	"diceboard/internal/dependencies/random"
	"diceboard/internal/model"
	"diceboard/internal/protocol"
	"diceboard/internal/services/identity"
	"diceboard/internal/storage"
)

const (
	// roomIDLength is the random suffix length of generated room ids
	roomIDLength = 7
	// roomIDAlphabet is the characters used in room ids
	roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Controller is the room directory and turn sequencer: it owns room
// records, membership, host succession, readiness and the turn index.
type Controller struct {
	storage storage.Storage
	gateway protocol.Gateway
	colors  *identity.ColorPool
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewController creates a new room Controller
func NewController(
	store storage.Storage,
	gateway protocol.Gateway,
	colors *identity.ColorPool,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: store,
		gateway: gateway,
		colors:  colors,
		clock:   clk,
		random:  rnd,
		logger:  logger.With(slog.String("component", "room")),
	}
}

// CreateRoom creates a room with the player as host. The creator's
// round-scoped state is cleared and their connection joins the room's
// broadcast group.
func (c *Controller) CreateRoom(ctx context.Context, playerID model.PlayerID, name string) (*model.Room, error) {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var id model.RoomID
	for {
		id = model.RoomID("room_" + c.random.String(roomIDLength, roomIDAlphabet))
		exists, err := c.storage.RoomExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	room := &model.Room{
		ID:         id,
		Name:       name,
		HostID:     playerID,
		Players:    []model.PlayerID{playerID},
		MaxPlayers: model.DefaultRoomCapacity,
		Status:     model.RoomStatusWaiting,
		CreatedAt:  c.clock.Now(),
	}
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	player.ResetRound()
	player.RoomID = id
	player.Role = model.RoleHost
	player.Status = model.StatusReady
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	c.gateway.JoinRoom(playerID, id)
	c.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("host", string(playerID)))

	c.BroadcastRoomList(ctx)
	c.BroadcastPlayerList(ctx, room)
	c.gateway.ToPlayer(playerID, protocol.Message{
		Event: protocol.EventRoomCreated,
		Data:  protocol.RoomCreated{RoomID: id, RoomName: name},
	})
	return room, nil
}

// JoinRoom adds the player to a waiting room. Each failure mode surfaces
// as its own error so callers can report a distinct reason.
func (c *Controller) JoinRoom(ctx context.Context, playerID model.PlayerID, roomID model.RoomID) (*model.Room, error) {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	room, err := c.storage.GetRoom(ctx, roomID)
	if errors.Is(err, model.ErrRoomNotFound) {
		return nil, model.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	if room.IsFull() {
		return nil, model.ErrRoomFull
	}
	if room.Status != model.RoomStatusWaiting {
		return nil, model.ErrRoomNotWaiting
	}
	if player.RoomID != "" {
		return nil, model.ErrAlreadyInRoom
	}

	room.Players = append(room.Players, playerID)
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	player.ResetRound()
	player.RoomID = roomID
	player.Role = model.RolePlayer
	player.Status = model.StatusWaiting
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	c.gateway.JoinRoom(playerID, roomID)
	c.logger.Info("room joined",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)))

	c.BroadcastRoomList(ctx)
	c.BroadcastPlayerList(ctx, room)
	c.gateway.ToPlayer(playerID, protocol.Message{
		Event: protocol.EventRoomJoined,
		Data:  protocol.RoomJoined{RoomID: roomID, RoomName: room.Name},
	})
	return room, nil
}

// LeaveRoom removes the player from their room, promoting a new host or
// deleting the room as needed, and resets the player to lobby defaults.
// When notify is false (grace-period expiry) no leave acknowledgment is
// sent to the departing player.
func (c *Controller) LeaveRoom(ctx context.Context, playerID model.PlayerID, notify bool) error {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player.RoomID == "" {
		return model.ErrNotInRoom
	}
	roomID := player.RoomID

	room, err := c.storage.GetRoom(ctx, roomID)
	if errors.Is(err, model.ErrRoomNotFound) {
		// Room already gone; just reset the player
		c.colors.Release(player.Color)
		player.ResetToLobby()
		return c.storage.SavePlayer(ctx, player)
	}
	if err != nil {
		return err
	}

	room.RemovePlayer(playerID)
	if room.TurnIndex >= len(room.Players) {
		room.TurnIndex = 0
	}

	deleted := false
	if room.HostID == playerID {
		if len(room.Players) > 0 {
			room.HostID = room.Players[0]
			if next, err := c.storage.GetPlayer(ctx, room.HostID); err == nil {
				next.Role = model.RoleHost
				if err := c.storage.SavePlayer(ctx, next); err != nil {
					return err
				}
				c.notice(roomID, next.Name+" is the new host.")
			}
		} else {
			if err := c.storage.DeleteRoom(ctx, roomID); err != nil {
				return err
			}
			c.gateway.DropRoom(roomID)
			deleted = true
			c.logger.Info("room deleted", slog.String("room_id", string(roomID)))
		}
	}
	if !deleted {
		if err := c.storage.SaveRoom(ctx, room); err != nil {
			return err
		}
	}

	c.colors.Release(player.Color)
	player.ResetToLobby()
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return err
	}
	c.gateway.LeaveRoom(playerID, roomID)

	c.logger.Info("room left",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)))

	c.BroadcastRoomList(ctx)
	if !deleted {
		c.BroadcastPlayerList(ctx, room)
	}
	if notify {
		c.gateway.ToPlayer(playerID, protocol.Message{Event: protocol.EventLeftRoom})
	}
	return nil
}

// ToggleReady flips the player between waiting and ready. The host is
// always considered ready and is not toggled. After any toggle the host
// is told whether the game can start.
func (c *Controller) ToggleReady(ctx context.Context, playerID model.PlayerID) error {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player.RoomID == "" {
		return model.ErrNotInRoom
	}
	room, err := c.storage.GetRoom(ctx, player.RoomID)
	if err != nil {
		return err
	}

	if player.Role != model.RoleHost {
		if player.Status == model.StatusWaiting {
			player.Status = model.StatusReady
		} else if player.Status == model.StatusReady {
			player.Status = model.StatusWaiting
		}
		if err := c.storage.SavePlayer(ctx, player); err != nil {
			return err
		}
	}

	c.BroadcastPlayerList(ctx, room)
	c.gateway.ToPlayer(room.HostID, protocol.Message{
		Event: protocol.EventGameState,
		Data:  protocol.GameStatePayload{CanStart: c.CanStart(ctx, room)},
	})
	return nil
}

// CanStart reports whether the room can begin a game: at least the
// minimum player count, and everyone ready or host
func (c *Controller) CanStart(ctx context.Context, room *model.Room) bool {
	if len(room.Players) < model.MinPlayersToStart {
		return false
	}
	for _, pid := range room.Players {
		p, err := c.storage.GetPlayer(ctx, pid)
		if err != nil {
			continue
		}
		if p.Role != model.RoleHost && p.Status != model.StatusReady {
			return false
		}
	}
	return true
}

// AdvanceTurn moves the turn to the next member and announces it
func (c *Controller) AdvanceTurn(ctx context.Context, room *model.Room) error {
	room.AdvanceTurn()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return err
	}
	return c.AnnounceTurn(ctx, room)
}

// AnnounceTurn broadcasts the current-turn player to the room
func (c *Controller) AnnounceTurn(ctx context.Context, room *model.Room) error {
	pid := room.CurrentTurnPlayer()
	if pid == "" {
		return nil
	}
	name := ""
	if p, err := c.storage.GetPlayer(ctx, pid); err == nil {
		name = p.Name
	}
	c.gateway.ToRoom(room.ID, protocol.Message{
		Event: protocol.EventTurnUpdate,
		Data:  protocol.TurnUpdate{CurrentPlayerID: pid, CurrentPlayerName: name},
	})
	return nil
}

// ResetForNewRound returns the room to the waiting state after a game:
// board cleared, turn index zeroed, every member's round state reset.
// The host comes back ready, everyone else waiting.
func (c *Controller) ResetForNewRound(ctx context.Context, room *model.Room) error {
	room.Status = model.RoomStatusWaiting
	room.TurnIndex = 0
	room.BoardCells = nil
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return err
	}

	for _, pid := range room.Players {
		p, err := c.storage.GetPlayer(ctx, pid)
		if err != nil {
			continue
		}
		p.ResetRound()
		if p.Role == model.RoleHost {
			p.Status = model.StatusReady
		} else {
			p.Status = model.StatusWaiting
		}
		if err := c.storage.SavePlayer(ctx, p); err != nil {
			return err
		}
	}

	c.BroadcastPlayerList(ctx, room)
	c.BroadcastRoomList(ctx)
	return nil
}

// BroadcastRoomList pushes the current room directory to every connection
func (c *Controller) BroadcastRoomList(ctx context.Context) {
	summaries, err := c.roomSummaries(ctx)
	if err != nil {
		c.logger.Error("list rooms failed", slog.String("error", err.Error()))
		return
	}
	c.gateway.ToAll(protocol.Message{Event: protocol.EventRoomList, Data: summaries})
}

// SendRoomList pushes the current room directory to one player
func (c *Controller) SendRoomList(ctx context.Context, playerID model.PlayerID) {
	summaries, err := c.roomSummaries(ctx)
	if err != nil {
		c.logger.Error("list rooms failed", slog.String("error", err.Error()))
		return
	}
	c.gateway.ToPlayer(playerID, protocol.Message{Event: protocol.EventRoomList, Data: summaries})
}

func (c *Controller) roomSummaries(ctx context.Context) ([]protocol.RoomSummary, error) {
	rooms, err := c.storage.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, protocol.RoomSummary{
			ID:           r.ID,
			Name:         r.Name,
			PlayersCount: len(r.Players),
			MaxPlayers:   r.MaxPlayers,
			Status:       r.Status,
		})
	}
	return summaries, nil
}

// BroadcastPlayerList pushes the room's member list to its connections.
// Members whose records are gone are filtered out rather than failing.
func (c *Controller) BroadcastPlayerList(ctx context.Context, room *model.Room) {
	summaries := make([]protocol.PlayerSummary, 0, len(room.Players))
	for _, pid := range room.Players {
		p, err := c.storage.GetPlayer(ctx, pid)
		if err != nil {
			continue
		}
		summaries = append(summaries, protocol.PlayerSummary{
			ID:        p.ID,
			Name:      p.Name,
			Status:    p.Status,
			Role:      p.Role,
			Position:  p.Position,
			Color:     p.Color,
			Inventory: p.Inventory,
		})
	}
	c.gateway.ToRoom(room.ID, protocol.Message{Event: protocol.EventPlayerList, Data: summaries})
}

func (c *Controller) notice(roomID model.RoomID, text string) {
	c.gateway.ToRoom(roomID, protocol.Message{Event: protocol.EventServerMessage, Data: text})
}
