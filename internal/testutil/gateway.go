package testutil

import (
	"sync"

	"diceboard/internal/model"
	"diceboard/internal/protocol"
)

// Sent records one delivered message and its destination
type Sent struct {
	RoomID   model.RoomID   // set for room-wide sends
	PlayerID model.PlayerID // set for direct sends
	All      bool           // set for global sends
	Msg      protocol.Message
}

// FakeGateway is a recording implementation of protocol.Gateway for
// service tests. It captures every send in order and tracks room
// group membership.
type FakeGateway struct {
	mu      sync.Mutex
	Sends   []Sent
	Members map[model.RoomID]map[model.PlayerID]bool
}

var _ protocol.Gateway = (*FakeGateway)(nil)

// NewFakeGateway creates an empty FakeGateway
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Members: make(map[model.RoomID]map[model.PlayerID]bool),
	}
}

func (g *FakeGateway) ToRoom(roomID model.RoomID, msg protocol.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sends = append(g.Sends, Sent{RoomID: roomID, Msg: msg})
}

func (g *FakeGateway) ToPlayer(playerID model.PlayerID, msg protocol.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sends = append(g.Sends, Sent{PlayerID: playerID, Msg: msg})
}

func (g *FakeGateway) ToAll(msg protocol.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sends = append(g.Sends, Sent{All: true, Msg: msg})
}

func (g *FakeGateway) JoinRoom(playerID model.PlayerID, roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Members[roomID] == nil {
		g.Members[roomID] = make(map[model.PlayerID]bool)
	}
	g.Members[roomID][playerID] = true
}

func (g *FakeGateway) LeaveRoom(playerID model.PlayerID, roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Members[roomID], playerID)
}

func (g *FakeGateway) DropRoom(roomID model.RoomID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.Members, roomID)
}

// EventsOf returns the event names of all recorded sends, in order
func (g *FakeGateway) EventsOf() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	events := make([]string, len(g.Sends))
	for i, s := range g.Sends {
		events[i] = s.Msg.Event
	}
	return events
}

// HasEvent reports whether any recorded send carries the event name
func (g *FakeGateway) HasEvent(event string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.Sends {
		if s.Msg.Event == event {
			return true
		}
	}
	return false
}

// LastOf returns the most recent send with the event name, if any
func (g *FakeGateway) LastOf(event string) (Sent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.Sends) - 1; i >= 0; i-- {
		if g.Sends[i].Msg.Event == event {
			return g.Sends[i], true
		}
	}
	return Sent{}, false
}

// Reset clears recorded sends, keeping room membership
func (g *FakeGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sends = nil
}
