package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"diceboard/internal/model"
	"diceboard/internal/protocol"
	"diceboard/internal/services/game"
	"diceboard/internal/services/identity"
	"diceboard/internal/services/reconnect"
	"diceboard/internal/services/room"
	"diceboard/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub accepts websocket connections and runs the command stream. Every
// inbound command and every expired reconnect timer executes to
// completion under one lock, so game state never sees interleaved
// commands.
type Hub struct {
	cmdMu sync.Mutex

	gateway    *Gateway
	storage    storage.Storage
	identity   *identity.Service
	rooms      *room.Controller
	games      *game.Controller
	supervisor *reconnect.Supervisor
	logger     *slog.Logger
}

// NewHub creates a new Hub
func NewHub(
	gateway *Gateway,
	store storage.Storage,
	ident *identity.Service,
	rooms *room.Controller,
	games *game.Controller,
	supervisor *reconnect.Supervisor,
	logger *slog.Logger,
) *Hub {
	return &Hub{
		gateway:    gateway,
		storage:    store,
		identity:   ident,
		rooms:      rooms,
		games:      games,
		supervisor: supervisor,
		logger:     logger.With(slog.String("component", "hub")),
	}
}

// HandleWS upgrades the request and serves the connection until it drops
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := newClient(h, conn, h.logger)
	h.gateway.Register(client)
	h.logger.Info("connection opened", slog.String("conn_id", client.id))

	go client.writePump()
	client.readPump()
}

// handleMessage dispatches one inbound frame under the command lock
func (h *Hub) handleMessage(c *Client, raw []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.trySendEvent(protocol.EventServerMessage, "Malformed message.")
		return
	}

	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()

	ctx := context.Background()

	if env.Type == protocol.CmdSetPlayerInfo {
		h.handleSetPlayerInfo(ctx, c, env.Data)
		return
	}

	if c.player == "" {
		c.trySendEvent(protocol.EventServerMessage, "Please sign in first.")
		return
	}

	switch env.Type {
	case protocol.CmdRequestRoomList:
		h.rooms.SendRoomList(ctx, c.player)

	case protocol.CmdCreateRoom:
		var p protocol.CreateRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomName == "" {
			c.trySendEvent(protocol.EventServerMessage, "A room needs a name.")
			return
		}
		if _, err := h.rooms.CreateRoom(ctx, c.player, p.RoomName); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdJoinRoom:
		var p protocol.JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.trySendEvent(protocol.EventServerMessage, "Malformed message.")
			return
		}
		if _, err := h.rooms.JoinRoom(ctx, c.player, p.RoomID); err != nil {
			c.trySendEvent(protocol.EventRoomJoinFailed, errorText(err))
		}

	case protocol.CmdLeaveRoom:
		if err := h.rooms.LeaveRoom(ctx, c.player, true); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdPlayerReady:
		if err := h.rooms.ToggleReady(ctx, c.player); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdStartGame:
		if err := h.games.StartGame(ctx, c.player); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdRollDice:
		if err := h.games.RollDice(ctx, c.player); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdUseItemDice:
		var p protocol.UseItemPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.trySendEvent(protocol.EventServerMessage, "Malformed message.")
			return
		}
		if err := h.games.UseItem(ctx, c.player, p.DiceType, p.TargetPlayerID); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdSelectDiceChoice:
		var p protocol.SelectDicePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.trySendEvent(protocol.EventServerMessage, "Malformed message.")
			return
		}
		if err := h.games.SelectItemChoice(ctx, c.player, p.SelectedDice); err != nil {
			h.notifyError(c, err)
		}

	case protocol.CmdChatMessage:
		var p protocol.ChatPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Text == "" {
			return
		}
		h.handleChat(ctx, c, p.Text)

	default:
		h.logger.Debug("unknown command", slog.String("type", env.Type))
	}
}

// handleSetPlayerInfo binds the connection to an identity, creating or
// reattaching the player record, and restores room context on rejoin
func (h *Hub) handleSetPlayerInfo(ctx context.Context, c *Client, data json.RawMessage) {
	var p protocol.SetPlayerInfoPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerID == "" {
		c.trySendEvent(protocol.EventServerMessage, "A player id is required.")
		return
	}

	h.supervisor.Cancel(p.PlayerID)

	player, created, err := h.identity.RegisterOrReattach(ctx, p.PlayerID, p.PlayerName)
	if err != nil {
		h.notifyError(c, err)
		return
	}
	h.gateway.Bind(player.ID, c)

	ack := protocol.PlayerInfoAck{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Role:       player.Role,
	}

	if player.RoomID != "" {
		rm, err := h.storage.GetRoom(ctx, player.RoomID)
		if err == nil && rm.HasPlayer(player.ID) {
			ack.RoomID = rm.ID
			ack.RoomName = rm.Name
			h.gateway.JoinRoom(player.ID, rm.ID)
			h.rooms.BroadcastPlayerList(ctx, rm)
			if rm.Status == model.RoomStatusPlaying {
				h.gateway.ToPlayer(player.ID, protocol.Message{
					Event: protocol.EventBoardUpdate,
					Data:  rm.BoardCells,
				})
				h.rooms.AnnounceTurn(ctx, rm)
			}
		} else {
			player.ResetToLobby()
			if err := h.storage.SavePlayer(ctx, player); err != nil {
				h.logger.Error("reset stale room failed", slog.String("error", err.Error()))
			}
		}
	}

	h.gateway.ToPlayer(player.ID, protocol.Message{Event: protocol.EventPlayerInfoAck, Data: ack})
	h.rooms.SendRoomList(ctx, player.ID)

	h.logger.Info("identity bound",
		slog.String("conn_id", c.id),
		slog.String("player_id", string(player.ID)),
		slog.Bool("created", created))
}

func (h *Hub) handleChat(ctx context.Context, c *Client, text string) {
	player, err := h.identity.Get(ctx, c.player)
	if err != nil {
		h.notifyError(c, err)
		return
	}
	msg := protocol.Message{
		Event: protocol.EventChatMessage,
		Data:  protocol.ChatMessage{From: player.ID, Name: player.Name, Text: text},
	}
	if player.RoomID != "" {
		h.gateway.ToRoom(player.RoomID, msg)
	} else {
		h.gateway.ToAll(msg)
	}
}

// onDisconnect unbinds the connection and starts the identity's removal
// grace period
func (h *Hub) onDisconnect(c *Client) {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()

	h.gateway.Unregister(c)
	h.logger.Info("connection closed", slog.String("conn_id", c.id))

	if c.player == "" {
		return
	}
	pid := c.player
	h.supervisor.Schedule(pid, func() {
		h.expirePlayer(pid)
	})
}

// expirePlayer permanently removes an identity whose grace period lapsed
// without a reconnect. Runs under the command lock like any command.
func (h *Hub) expirePlayer(pid model.PlayerID) {
	h.cmdMu.Lock()
	defer h.cmdMu.Unlock()

	if h.gateway.IsBound(pid) {
		return
	}

	ctx := context.Background()
	if err := h.rooms.LeaveRoom(ctx, pid, false); err != nil && !errors.Is(err, model.ErrNotInRoom) && !errors.Is(err, model.ErrPlayerNotFound) {
		h.logger.Error("expiry room leave failed",
			slog.String("player_id", string(pid)),
			slog.String("error", err.Error()))
	}
	if err := h.identity.Erase(ctx, pid); err != nil {
		h.logger.Error("expiry erase failed",
			slog.String("player_id", string(pid)),
			slog.String("error", err.Error()))
		return
	}
	h.logger.Info("player expired", slog.String("player_id", string(pid)))
	h.rooms.BroadcastRoomList(ctx)
}

// notifyError translates a service error into a notice on the connection
func (h *Hub) notifyError(c *Client, err error) {
	if errors.Is(err, model.ErrItemRejected) {
		// the rejecting handler already told the player why
		return
	}
	c.trySendEvent(protocol.EventServerMessage, errorText(err))
}

func errorText(err error) string {
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return "Please sign in first."
	case errors.Is(err, model.ErrRoomNotFound):
		return "That room no longer exists."
	case errors.Is(err, model.ErrRoomFull):
		return "That room is full."
	case errors.Is(err, model.ErrRoomNotWaiting):
		return "That game is already in progress."
	case errors.Is(err, model.ErrAlreadyInRoom):
		return "You are already in a room."
	case errors.Is(err, model.ErrNotInRoom):
		return "You are not in a room."
	case errors.Is(err, model.ErrNotHost):
		return "Only the host can do that."
	case errors.Is(err, model.ErrGameNotStarted):
		return "The game has not started."
	case errors.Is(err, model.ErrNotYourTurn):
		return "It is not your turn."
	case errors.Is(err, model.ErrNotAllReady):
		return "Not everyone is ready yet."
	case errors.Is(err, model.ErrItemNotHeld):
		return "You do not have that item."
	case errors.Is(err, model.ErrInvalidTarget):
		return "That is not a valid target."
	default:
		return "Something went wrong."
	}
}

// trySendEvent queues a single event on this connection, bypassing the
// gateway; used for notices to possibly unbound connections
func (c *Client) trySendEvent(event string, data any) {
	raw, err := json.Marshal(protocol.Message{Event: event, Data: data})
	if err != nil {
		return
	}
	c.trySend(raw)
}
