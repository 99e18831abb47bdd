package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"diceboard/internal/dependencies/mocks"
	"diceboard/internal/model"
	"diceboard/internal/protocol"
	"diceboard/internal/services/game"
	"diceboard/internal/services/identity"
	"diceboard/internal/services/reconnect"
	"diceboard/internal/services/room"
	"diceboard/internal/storage/memory"
	"diceboard/internal/testutil"
)

// Hub tests drive the full command stack through handleMessage with
// detached clients, the same path a live connection's readPump takes.

type HubSuite struct {
	suite.Suite
	storage *memory.Storage
	gateway *Gateway
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	hub     *Hub
	ctx     context.Context
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.storage = memory.New()
	s.gateway = NewGateway(logger)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()

	colors := identity.NewColorPool(s.random, logger)
	ident := identity.New(s.storage, colors, s.clock, logger)
	supervisor := reconnect.New(s.clock, reconnect.DefaultGracePeriod, logger)
	rooms := room.NewController(s.storage, s.gateway, colors, s.clock, s.random, logger)
	games := game.NewController(s.storage, rooms, s.gateway, s.random, logger)
	s.hub = NewHub(s.gateway, s.storage, ident, rooms, games, supervisor, logger)
	s.ctx = context.Background()
}

func (s *HubSuite) open() *Client {
	c := newClient(s.hub, nil, testutil.NopLogger())
	s.gateway.Register(c)
	return c
}

func (s *HubSuite) send(c *Client, cmdType string, payload any) {
	env := protocol.Envelope{Type: cmdType}
	if payload != nil {
		data, err := json.Marshal(payload)
		s.Require().NoError(err)
		env.Data = data
	}
	raw, err := json.Marshal(env)
	s.Require().NoError(err)
	s.hub.handleMessage(c, raw)
}

func (s *HubSuite) signIn(c *Client, id model.PlayerID, name string) {
	s.send(c, protocol.CmdSetPlayerInfo, protocol.SetPlayerInfoPayload{PlayerID: id, PlayerName: name})
	s.drain(c)
}

func (s *HubSuite) drain(c *Client) []protocol.Message {
	var msgs []protocol.Message
	for {
		select {
		case raw := <-c.send:
			var msg protocol.Message
			s.Require().NoError(json.Unmarshal(raw, &msg))
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func (s *HubSuite) lastOf(msgs []protocol.Message, event string) (protocol.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i], true
		}
	}
	return protocol.Message{}, false
}

func (s *HubSuite) TestMalformedFrame() {
	c := s.open()
	s.hub.handleMessage(c, []byte("{nope"))

	msgs := s.drain(c)
	s.Require().Len(msgs, 1)
	s.Equal(protocol.EventServerMessage, msgs[0].Event)
	s.Equal("Malformed message.", msgs[0].Data)
}

func (s *HubSuite) TestCommandsRequireSignIn() {
	c := s.open()
	s.send(c, protocol.CmdRollDice, nil)

	msgs := s.drain(c)
	s.Require().Len(msgs, 1)
	s.Equal("Please sign in first.", msgs[0].Data)
}

func (s *HubSuite) TestSetPlayerInfoRequiresID() {
	c := s.open()
	s.send(c, protocol.CmdSetPlayerInfo, protocol.SetPlayerInfoPayload{PlayerName: "Alice"})

	msgs := s.drain(c)
	s.Require().Len(msgs, 1)
	s.Equal("A player id is required.", msgs[0].Data)
}

func (s *HubSuite) TestSignInCreatesIdentityAndAcks() {
	c := s.open()
	s.send(c, protocol.CmdSetPlayerInfo, protocol.SetPlayerInfoPayload{PlayerID: "alice", PlayerName: "Alice"})

	msgs := s.drain(c)
	ack, ok := s.lastOf(msgs, protocol.EventPlayerInfoAck)
	s.Require().True(ok)
	data := ack.Data.(map[string]any)
	s.Equal("alice", data["playerId"])
	s.Equal("Alice", data["playerName"])

	_, ok = s.lastOf(msgs, protocol.EventRoomList)
	s.True(ok)

	s.True(s.gateway.IsBound("alice"))
	p, err := s.storage.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", p.Name)
	s.Equal(model.StatusLobby, p.Status)
}

func (s *HubSuite) TestCreateRoomCommand() {
	c := s.open()
	s.signIn(c, "alice", "Alice")
	s.random.QueueString("abc1234")

	s.send(c, protocol.CmdCreateRoom, protocol.CreateRoomPayload{RoomName: "Table"})

	msgs := s.drain(c)
	_, ok := s.lastOf(msgs, protocol.EventRoomCreated)
	s.True(ok)

	rm, err := s.storage.GetRoom(s.ctx, "room_abc1234")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), rm.HostID)
}

func (s *HubSuite) TestCreateRoomRequiresName() {
	c := s.open()
	s.signIn(c, "alice", "Alice")

	s.send(c, protocol.CmdCreateRoom, protocol.CreateRoomPayload{})

	msgs := s.drain(c)
	s.Require().Len(msgs, 1)
	s.Equal("A room needs a name.", msgs[0].Data)
}

func (s *HubSuite) TestJoinUnknownRoomFails() {
	c := s.open()
	s.signIn(c, "alice", "Alice")

	s.send(c, protocol.CmdJoinRoom, protocol.JoinRoomPayload{RoomID: "room_nope000"})

	msgs := s.drain(c)
	failed, ok := s.lastOf(msgs, protocol.EventRoomJoinFailed)
	s.Require().True(ok)
	s.Equal("That room no longer exists.", failed.Data)
}

func (s *HubSuite) TestChatInLobbyReachesAllIdentities() {
	alice := s.open()
	s.signIn(alice, "alice", "Alice")
	bob := s.open()
	s.signIn(bob, "bob", "Bob")
	s.drain(alice) // bob's sign-in is not broadcast, but keep the slate clean

	s.send(alice, protocol.CmdChatMessage, protocol.ChatPayload{Text: "hello"})

	msgs := s.drain(bob)
	chat, ok := s.lastOf(msgs, protocol.EventChatMessage)
	s.Require().True(ok)
	data := chat.Data.(map[string]any)
	s.Equal("Alice", data["name"])
	s.Equal("hello", data["text"])
	// the sender sees their own message too
	_, ok = s.lastOf(s.drain(alice), protocol.EventChatMessage)
	s.True(ok)
}

func (s *HubSuite) TestChatInRoomStaysInRoom() {
	alice := s.open()
	s.signIn(alice, "alice", "Alice")
	bob := s.open()
	s.signIn(bob, "bob", "Bob")
	s.random.QueueString("abc1234")
	s.send(alice, protocol.CmdCreateRoom, protocol.CreateRoomPayload{RoomName: "Table"})
	s.drain(alice)
	s.drain(bob)

	s.send(alice, protocol.CmdChatMessage, protocol.ChatPayload{Text: "table talk"})

	_, ok := s.lastOf(s.drain(bob), protocol.EventChatMessage)
	s.False(ok)
	_, ok = s.lastOf(s.drain(alice), protocol.EventChatMessage)
	s.True(ok)
}

func (s *HubSuite) TestDisconnectedIdentityExpiresAfterGrace() {
	c := s.open()
	s.signIn(c, "alice", "Alice")

	s.hub.onDisconnect(c)
	s.clock.Advance(reconnect.DefaultGracePeriod)

	_, err := s.storage.GetPlayer(s.ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *HubSuite) TestReconnectWithinGraceKeepsIdentity() {
	c := s.open()
	s.signIn(c, "alice", "Alice")
	s.hub.onDisconnect(c)

	fresh := s.open()
	s.signIn(fresh, "alice", "Alice")
	s.clock.Advance(reconnect.DefaultGracePeriod)

	p, err := s.storage.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", p.Name)
	s.True(s.gateway.IsBound("alice"))
}

func (s *HubSuite) TestExpiryRemovesPlayerFromRoom() {
	alice := s.open()
	s.signIn(alice, "alice", "Alice")
	bob := s.open()
	s.signIn(bob, "bob", "Bob")
	s.random.QueueString("abc1234")
	s.send(alice, protocol.CmdCreateRoom, protocol.CreateRoomPayload{RoomName: "Table"})
	s.send(bob, protocol.CmdJoinRoom, protocol.JoinRoomPayload{RoomID: "room_abc1234"})

	s.hub.onDisconnect(bob)
	s.clock.Advance(reconnect.DefaultGracePeriod)

	rm, err := s.storage.GetRoom(s.ctx, "room_abc1234")
	s.Require().NoError(err)
	s.False(rm.HasPlayer("bob"))
	_, err = s.storage.GetPlayer(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *HubSuite) TestReconnectIntoPlayingRoomRestoresContext() {
	rm := &model.Room{
		ID:         "room_abc1234",
		Name:       "Table",
		HostID:     "alice",
		Players:    []model.PlayerID{"alice", "bob"},
		MaxPlayers: model.DefaultRoomCapacity,
		Status:     model.RoomStatusPlaying,
		BoardCells: make([]model.BoardCell, model.TrackLength-1),
	}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{
		ID: "alice", Name: "Alice", RoomID: rm.ID,
		Role: model.RoleHost, Status: model.StatusPlaying,
	}))
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{
		ID: "bob", Name: "Bob", RoomID: rm.ID,
		Role: model.RolePlayer, Status: model.StatusPlaying,
	}))

	c := s.open()
	s.send(c, protocol.CmdSetPlayerInfo, protocol.SetPlayerInfoPayload{PlayerID: "bob", PlayerName: "Bob"})

	msgs := s.drain(c)
	ack, ok := s.lastOf(msgs, protocol.EventPlayerInfoAck)
	s.Require().True(ok)
	s.Equal("room_abc1234", ack.Data.(map[string]any)["roomId"])
	_, ok = s.lastOf(msgs, protocol.EventBoardUpdate)
	s.True(ok)
	_, ok = s.lastOf(msgs, protocol.EventTurnUpdate)
	s.True(ok)
}

func (s *HubSuite) TestStaleRoomReferenceResetsToLobby() {
	s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{
		ID: "bob", Name: "Bob", RoomID: "room_gone000",
		Role: model.RolePlayer, Status: model.StatusPlaying,
	}))

	c := s.open()
	s.send(c, protocol.CmdSetPlayerInfo, protocol.SetPlayerInfoPayload{PlayerID: "bob", PlayerName: "Bob"})

	msgs := s.drain(c)
	ack, ok := s.lastOf(msgs, protocol.EventPlayerInfoAck)
	s.Require().True(ok)
	s.Nil(ack.Data.(map[string]any)["roomId"])

	p, err := s.storage.GetPlayer(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(model.RoomID(""), p.RoomID)
	s.Equal(model.StatusLobby, p.Status)
}
