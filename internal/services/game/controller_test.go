package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"diceboard/internal/dependencies/mocks"
	"diceboard/internal/model"
	"diceboard/internal/protocol"
	"diceboard/internal/services/identity"
	"diceboard/internal/services/room"
	"diceboard/internal/storage/memory"
	"diceboard/internal/testutil"
)

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	gateway    *testutil.FakeGateway
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	rooms      *room.Controller
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.gateway = testutil.NewFakeGateway()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	logger := testutil.NopLogger()
	colors := identity.NewColorPool(s.random, logger)
	s.rooms = room.NewController(s.storage, s.gateway, colors, s.clock, s.random, logger)
	s.controller = NewController(s.storage, s.rooms, s.gateway, s.random, logger)
	s.ctx = context.Background()
}

// emptyBoard builds a layout of empty cells with the fixed isolation cell
func emptyBoard() []model.BoardCell {
	cells := make([]model.BoardCell, model.TrackLength-1)
	for i := range cells {
		cells[i] = model.BoardCell{Kind: model.CellEmpty}
	}
	cells[model.IsolationCellIndex-1] = model.BoardCell{Kind: model.CellIsolation}
	return cells
}

// setupPlayingRoom creates a two-player room mid-game with an all-empty
// board, p1 to move
func (s *ControllerSuite) setupPlayingRoom() *model.Room {
	rm := &model.Room{
		ID:         "room_test111",
		Name:       "Table",
		HostID:     "p1",
		Players:    []model.PlayerID{"p1", "p2"},
		MaxPlayers: model.DefaultRoomCapacity,
		Status:     model.RoomStatusPlaying,
		BoardCells: emptyBoard(),
		CreatedAt:  s.clock.Now(),
	}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))

	for i, pid := range rm.Players {
		role := model.RolePlayer
		if i == 0 {
			role = model.RoleHost
		}
		p := &model.Player{
			ID:        pid,
			Name:      "Player" + string(rune('1'+i)),
			RoomID:    rm.ID,
			Role:      role,
			Status:    model.StatusPlaying,
			Color:     "#FF5733",
			CreatedAt: s.clock.Now(),
		}
		s.Require().NoError(s.storage.SavePlayer(s.ctx, p))
		s.gateway.JoinRoom(pid, rm.ID)
	}
	return rm
}

func (s *ControllerSuite) player(id model.PlayerID) *model.Player {
	p, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return p
}

// Board generation

func (s *ControllerSuite) TestGenerateBoardShape() {
	board := s.controller.GenerateBoard()

	s.Len(board, model.TrackLength-1)
	s.Equal(model.CellIsolation, board[model.IsolationCellIndex-1].Kind)
	for i, cell := range board {
		if i == model.IsolationCellIndex-1 {
			continue
		}
		s.NotEqual(model.CellIsolation, cell.Kind, "cell %d", i)
	}
}

func (s *ControllerSuite) TestGenerateBoardWeightedDraw() {
	// cumulative weights: a draw of 0 is the first table entry, a draw
	// past every item weight lands on the empty cell
	s.random.QueueIntn(0, 88, 9, 95)
	board := s.controller.GenerateBoard()

	s.Equal(model.BoardCell{Kind: model.CellItem, Item: model.ItemPlus}, board[0])
	s.Equal(model.CellMoveBack, board[1].Kind)
	s.Equal(2, board[1].Steps)
	s.Equal(model.BoardCell{Kind: model.CellItem, Item: model.ItemMinus}, board[2])
	s.Equal(model.CellEmpty, board[3].Kind)
}

// StartGame

func (s *ControllerSuite) TestStartGameRequiresHost() {
	rm := s.setupPlayingRoom()
	rm.Status = model.RoomStatusWaiting
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))

	s.ErrorIs(s.controller.StartGame(s.ctx, "p2"), model.ErrNotHost)
}

func (s *ControllerSuite) TestStartGameRequiresEveryoneReady() {
	rm := s.setupPlayingRoom()
	rm.Status = model.RoomStatusWaiting
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))
	p2 := s.player("p2")
	p2.Status = model.StatusWaiting
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p2))

	s.ErrorIs(s.controller.StartGame(s.ctx, "p1"), model.ErrNotAllReady)
}

func (s *ControllerSuite) TestStartGameDealsBoardAndAnnounces() {
	rm := s.setupPlayingRoom()
	rm.Status = model.RoomStatusWaiting
	rm.BoardCells = nil
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))
	for _, pid := range rm.Players {
		p := s.player(pid)
		p.Status = model.StatusReady
		p.Position = 7
		s.Require().NoError(s.storage.SavePlayer(s.ctx, p))
	}
	s.gateway.Reset()

	s.Require().NoError(s.controller.StartGame(s.ctx, "p1"))

	updated, _ := s.storage.GetRoom(s.ctx, rm.ID)
	s.Equal(model.RoomStatusPlaying, updated.Status)
	s.Len(updated.BoardCells, model.TrackLength-1)
	s.Zero(updated.TurnIndex)

	for _, pid := range updated.Players {
		p := s.player(pid)
		s.Equal(model.StatusPlaying, p.Status)
		s.Zero(p.Position)
	}

	s.True(s.gateway.HasEvent(protocol.EventBoardUpdate))
	s.True(s.gateway.HasEvent(protocol.EventGameStarted))
	turn, ok := s.gateway.LastOf(protocol.EventTurnUpdate)
	s.Require().True(ok)
	s.Equal(model.PlayerID("p1"), turn.Msg.Data.(protocol.TurnUpdate).CurrentPlayerID)
}

func (s *ControllerSuite) TestStartGameRejectedMidGame() {
	s.setupPlayingRoom()
	s.ErrorIs(s.controller.StartGame(s.ctx, "p1"), model.ErrRoomNotWaiting)
}

// RollDice

func (s *ControllerSuite) TestRollDiceMovesAndAdvancesTurn() {
	s.setupPlayingRoom()
	s.random.QueueIntn(2) // roll 3

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 := s.player("p1")
	s.Equal(3, p1.Position)
	s.Equal(0, p1.LastSettledPosition)

	result, ok := s.gateway.LastOf(protocol.EventDiceRollResult)
	s.Require().True(ok)
	s.Equal(protocol.DiceRollResult{
		PlayerID:    "p1",
		PlayerName:  "Player1",
		Roll:        3,
		OldPosition: 0,
		NewPosition: 3,
	}, result.Msg.Data)

	landed, ok := s.gateway.LastOf(protocol.EventCellLanded)
	s.Require().True(ok)
	s.Equal("Empty", landed.Msg.Data.(protocol.CellLanded).EventName)

	turn, ok := s.gateway.LastOf(protocol.EventTurnUpdate)
	s.Require().True(ok)
	s.Equal(model.PlayerID("p2"), turn.Msg.Data.(protocol.TurnUpdate).CurrentPlayerID)
}

func (s *ControllerSuite) TestRollDiceRejectsOutOfTurn() {
	s.setupPlayingRoom()
	s.ErrorIs(s.controller.RollDice(s.ctx, "p2"), model.ErrNotYourTurn)
}

func (s *ControllerSuite) TestRollDiceRequiresGameInProgress() {
	rm := s.setupPlayingRoom()
	rm.Status = model.RoomStatusWaiting
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))

	s.ErrorIs(s.controller.RollDice(s.ctx, "p1"), model.ErrGameNotStarted)
}

func (s *ControllerSuite) TestRollDiceItemCellGrants() {
	rm := s.setupPlayingRoom()
	rm.BoardCells[3] = model.BoardCell{Kind: model.CellItem, Item: model.ItemCurse}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))
	s.random.QueueIntn(3) // roll 4

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 := s.player("p1")
	s.Equal([]model.ItemName{model.ItemCurse}, p1.Inventory)
	s.True(s.gateway.HasEvent(protocol.EventPlayerList))
}

func (s *ControllerSuite) TestRollDiceWinEndsGameAndResetsRoom() {
	rm := s.setupPlayingRoom()
	p1 := s.player("p1")
	p1.Position = 44
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))
	s.random.QueueIntn(5) // roll 6, wraps past start

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	ended, ok := s.gateway.LastOf(protocol.EventGameEnded)
	s.Require().True(ok)
	s.Equal(protocol.GameEnded{WinnerID: "p1", WinnerName: "Player1"}, ended.Msg.Data)

	updated, _ := s.storage.GetRoom(s.ctx, rm.ID)
	s.Equal(model.RoomStatusWaiting, updated.Status)
	s.Nil(updated.BoardCells)

	p1 = s.player("p1")
	s.Zero(p1.Position)
	s.Zero(p1.Laps)
	s.False(s.gateway.HasEvent(protocol.EventTurnUpdate))
}

func (s *ControllerSuite) TestRollDiceLandingOnIsolationJails() {
	s.setupPlayingRoom()
	p1 := s.player("p1")
	p1.Position = 20
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))
	s.random.QueueIntn(3) // roll 4 onto the isolation cell

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 = s.player("p1")
	s.Equal(model.IsolationCellIndex, p1.Position)
	s.Equal(model.IsolationSkipTurns, p1.Effects.JailTurns)

	landed, ok := s.gateway.LastOf(protocol.EventCellLanded)
	s.Require().True(ok)
	s.Equal("Isolation", landed.Msg.Data.(protocol.CellLanded).EventName)
}

func (s *ControllerSuite) TestJailedPlayerSitsOutTurns() {
	s.setupPlayingRoom()
	p1 := s.player("p1")
	p1.Position = model.IsolationCellIndex
	p1.Effects.JailTurns = 2
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))
	p1 = s.player("p1")
	s.Equal(1, p1.Effects.JailTurns)
	s.Equal(model.IsolationCellIndex, p1.Position)
	s.False(s.gateway.HasEvent(protocol.EventDiceRollResult))

	// back around to p1
	s.random.QueueIntn(0)
	s.Require().NoError(s.controller.RollDice(s.ctx, "p2"))
	s.gateway.Reset()

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))
	p1 = s.player("p1")
	s.Zero(p1.Effects.JailTurns)
	s.False(s.gateway.HasEvent(protocol.EventDiceRollResult))
}

func (s *ControllerSuite) TestShieldAbsorbsIsolation() {
	s.setupPlayingRoom()
	p1 := s.player("p1")
	p1.Position = 20
	p1.Protected = true
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))
	s.random.QueueIntn(3)

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 = s.player("p1")
	s.False(p1.Protected)
	s.Zero(p1.Effects.JailTurns)
}

func (s *ControllerSuite) TestSkipTurnStatusConsumesTurn() {
	s.setupPlayingRoom()
	p1 := s.player("p1")
	p1.Effects.SkipTurns = 1
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 = s.player("p1")
	s.Zero(p1.Effects.SkipTurns)
	s.Zero(p1.Position)
	turn, ok := s.gateway.LastOf(protocol.EventTurnUpdate)
	s.Require().True(ok)
	s.Equal(model.PlayerID("p2"), turn.Msg.Data.(protocol.TurnUpdate).CurrentPlayerID)
}

func (s *ControllerSuite) TestRollModifierAppliesOnceAndFloorsAtOne() {
	s.setupPlayingRoom()
	p1 := s.player("p1")
	mod := -3
	p1.Effects.RollModifier = &mod
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))
	s.random.QueueIntn(0) // roll 1, modified to -2, floored to 1

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 = s.player("p1")
	s.Equal(1, p1.Position)
	s.Nil(p1.Effects.RollModifier)
}

func (s *ControllerSuite) TestRollAccruesActiveSavingModes() {
	s.setupPlayingRoom()
	p1 := s.player("p1")
	p1.Saving = model.SavingMode{Active: true}
	p1.EnhancedSaving = model.SavingMode{Active: true}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))
	s.random.QueueIntn(2)

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 = s.player("p1")
	s.Equal(1, p1.Saving.Stack)
	s.Equal(2, p1.EnhancedSaving.Stack)
}

// Cell resolution

func (s *ControllerSuite) TestMoveBackCellsChainUntilSettled() {
	rm := s.setupPlayingRoom()
	rm.BoardCells[4] = model.BoardCell{Kind: model.CellMoveBack, Steps: 2}
	rm.BoardCells[2] = model.BoardCell{Kind: model.CellMoveBack, Steps: 2}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))
	s.random.QueueIntn(4) // roll 5 onto the first move-back cell

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	p1 := s.player("p1")
	s.Equal(1, p1.Position)
	s.Equal(3, p1.LastSettledPosition)
}

func (s *ControllerSuite) TestMoveBackCascadeIsBounded() {
	rm := s.setupPlayingRoom()
	for i := range rm.BoardCells {
		rm.BoardCells[i] = model.BoardCell{Kind: model.CellMoveBack, Steps: 2}
	}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))

	p1 := s.player("p1")
	p1.Position = 33
	s.Require().NoError(s.storage.SavePlayer(s.ctx, p1))

	s.Require().NoError(s.controller.resolveCell(s.ctx, rm, p1))

	// sixteen backward hops of two cells each
	s.Equal(1, p1.Position)
}

func (s *ControllerSuite) TestChooseItemCellPromptsSelection() {
	rm := s.setupPlayingRoom()
	rm.BoardCells[1] = model.BoardCell{Kind: model.CellChooseItem}
	s.Require().NoError(s.storage.SaveRoom(s.ctx, rm))
	s.random.QueueIntn(1) // roll 2

	s.Require().NoError(s.controller.RollDice(s.ctx, "p1"))

	sent, ok := s.gateway.LastOf(protocol.EventDiceSelectionReq)
	s.Require().True(ok)
	s.Equal(model.PlayerID("p1"), sent.PlayerID)
	s.Equal(model.GrantableItems(), sent.Msg.Data.(protocol.DiceSelectionRequest).AvailableDice)
}

// SelectItemChoice

func (s *ControllerSuite) TestSelectItemChoiceGrantsChosenItem() {
	s.setupPlayingRoom()

	s.Require().NoError(s.controller.SelectItemChoice(s.ctx, "p1", model.ItemShield))

	p1 := s.player("p1")
	s.Equal([]model.ItemName{model.ItemShield}, p1.Inventory)
}

func (s *ControllerSuite) TestSelectItemChoiceRejectsNonGrantable() {
	s.setupPlayingRoom()

	err := s.controller.SelectItemChoice(s.ctx, "p1", model.ItemEnhancedFate)
	s.ErrorIs(err, model.ErrItemRejected)

	s.Empty(s.player("p1").Inventory)

	// the requester is told why, since the hub stays silent on this error
	sent, ok := s.gateway.LastOf(protocol.EventServerMessage)
	s.Require().True(ok)
	s.Equal(model.PlayerID("p1"), sent.PlayerID)
}
