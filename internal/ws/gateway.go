package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"diceboard/internal/model"
	"diceboard/internal/protocol"
)

// Gateway fans server events out to connections. Messages are marshalled
// once per call and delivered through each client's buffered send channel,
// so every member of a room observes one command's notices in order.
type Gateway struct {
	mu sync.RWMutex

	clients  map[string]*Client
	byPlayer map[model.PlayerID]*Client
	rooms    map[model.RoomID]map[model.PlayerID]struct{}

	logger *slog.Logger
}

var _ protocol.Gateway = (*Gateway)(nil)

// NewGateway creates an empty Gateway
func NewGateway(logger *slog.Logger) *Gateway {
	return &Gateway{
		clients:  make(map[string]*Client),
		byPlayer: make(map[model.PlayerID]*Client),
		rooms:    make(map[model.RoomID]map[model.PlayerID]struct{}),
		logger:   logger.With(slog.String("component", "gateway")),
	}
}

// Register tracks a newly upgraded connection
func (g *Gateway) Register(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c.id] = c
}

// Unregister forgets a closed connection. The player binding is removed
// only if it still points at this connection; a reconnect may already
// have rebound the identity to a newer one.
func (g *Gateway) Unregister(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, c.id)
	if c.player != "" && g.byPlayer[c.player] == c {
		delete(g.byPlayer, c.player)
	}
}

// Bind associates the player identity with the connection, replacing any
// previous binding for that identity
func (g *Gateway) Bind(playerID model.PlayerID, c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.player = playerID
	g.byPlayer[playerID] = c
}

// IsBound reports whether the identity currently has a live connection
func (g *Gateway) IsBound(playerID model.PlayerID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byPlayer[playerID]
	return ok
}

// ToRoom implements protocol.Gateway
func (g *Gateway) ToRoom(roomID model.RoomID, msg protocol.Message) {
	raw, err := g.marshal(msg)
	if err != nil {
		return
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for pid := range g.rooms[roomID] {
		if c, ok := g.byPlayer[pid]; ok {
			c.trySend(raw)
		}
	}
}

// ToPlayer implements protocol.Gateway
func (g *Gateway) ToPlayer(playerID model.PlayerID, msg protocol.Message) {
	raw, err := g.marshal(msg)
	if err != nil {
		return
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if c, ok := g.byPlayer[playerID]; ok {
		c.trySend(raw)
	}
}

// ToAll implements protocol.Gateway
func (g *Gateway) ToAll(msg protocol.Message) {
	raw, err := g.marshal(msg)
	if err != nil {
		return
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.byPlayer {
		c.trySend(raw)
	}
}

// JoinRoom implements protocol.Gateway
func (g *Gateway) JoinRoom(playerID model.PlayerID, roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.rooms[roomID]
	if !ok {
		group = make(map[model.PlayerID]struct{})
		g.rooms[roomID] = group
	}
	group[playerID] = struct{}{}
}

// LeaveRoom implements protocol.Gateway
func (g *Gateway) LeaveRoom(playerID model.PlayerID, roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if group, ok := g.rooms[roomID]; ok {
		delete(group, playerID)
		if len(group) == 0 {
			delete(g.rooms, roomID)
		}
	}
}

// DropRoom implements protocol.Gateway
func (g *Gateway) DropRoom(roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, roomID)
}

func (g *Gateway) marshal(msg protocol.Message) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("marshal event failed",
			slog.String("event", msg.Event),
			slog.String("error", err.Error()))
		return nil, err
	}
	return raw, nil
}
