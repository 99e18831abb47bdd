package game

import (
	"context"
	"fmt"
	"log/slog"

	"diceboard/internal/dependencies/random"
	"diceboard/internal/model"
	"diceboard/internal/protocol"
	"diceboard/internal/services/room"
	"diceboard/internal/storage"
)

// maxCascade bounds the cell-resolution work loop so forced-move chains
// cannot run unbounded
const maxCascade = 16

// Controller runs games: board generation, the turn roll, the movement
// engine, cell resolution and item effects.
type Controller struct {
	storage storage.Storage
	rooms   *room.Controller
	gateway protocol.Gateway
	random  random.Random
	logger  *slog.Logger
}

// NewController creates a new game Controller
func NewController(
	store storage.Storage,
	rooms *room.Controller,
	gateway protocol.Gateway,
	rnd random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: store,
		rooms:   rooms,
		gateway: gateway,
		random:  rnd,
		logger:  logger.With(slog.String("component", "game")),
	}
}

// StartGame begins the game in the caller's room. Host only; requires the
// minimum player count and every non-host member ready.
func (c *Controller) StartGame(ctx context.Context, playerID model.PlayerID) error {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player.RoomID == "" {
		return model.ErrNotInRoom
	}
	rm, err := c.storage.GetRoom(ctx, player.RoomID)
	if err != nil {
		return err
	}
	if rm.HostID != playerID {
		return model.ErrNotHost
	}
	if rm.Status != model.RoomStatusWaiting {
		return model.ErrRoomNotWaiting
	}
	if !c.rooms.CanStart(ctx, rm) {
		return model.ErrNotAllReady
	}

	rm.Status = model.RoomStatusPlaying
	rm.TurnIndex = 0
	rm.BoardCells = c.GenerateBoard()
	if err := c.storage.SaveRoom(ctx, rm); err != nil {
		return err
	}

	for _, pid := range rm.Players {
		p, err := c.storage.GetPlayer(ctx, pid)
		if err != nil {
			continue
		}
		p.ResetRound()
		p.Status = model.StatusPlaying
		if err := c.storage.SavePlayer(ctx, p); err != nil {
			return err
		}
	}

	c.logger.Info("game started",
		slog.String("room_id", string(rm.ID)),
		slog.Int("players", len(rm.Players)))

	c.gateway.ToRoom(rm.ID, protocol.Message{
		Event: protocol.EventBoardUpdate,
		Data:  rm.BoardCells,
	})
	c.gateway.ToRoom(rm.ID, protocol.Message{Event: protocol.EventGameStarted})
	c.rooms.BroadcastPlayerList(ctx, rm)
	c.rooms.BroadcastRoomList(ctx)
	return c.rooms.AnnounceTurn(ctx, rm)
}

// GenerateBoard draws effects for track cells 1 through TrackLength-1.
// The isolation cell is fixed; every other cell is a weighted draw from
// the cell table, cumulative weights with first match.
func (c *Controller) GenerateBoard() []model.BoardCell {
	table := model.CellTable()
	total := 0
	for _, w := range table {
		total += w.Weight
	}

	cells := make([]model.BoardCell, 0, model.TrackLength-1)
	for pos := 1; pos < model.TrackLength; pos++ {
		if pos == model.IsolationCellIndex {
			cells = append(cells, model.BoardCell{Kind: model.CellIsolation})
			continue
		}
		roll := c.random.Intn(total)
		acc := 0
		cell := model.BoardCell{Kind: model.CellEmpty}
		for _, w := range table {
			acc += w.Weight
			if roll < acc {
				cell = w.Cell
				break
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// RollDice performs the current player's turn roll. Jail and skip-turn
// statuses consume the turn without a roll.
func (c *Controller) RollDice(ctx context.Context, playerID model.PlayerID) error {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	rm, err := c.playingRoom(ctx, player)
	if err != nil {
		return err
	}
	if rm.CurrentTurnPlayer() != playerID {
		return model.ErrNotYourTurn
	}

	if player.Effects.JailTurns > 0 {
		player.Effects.JailTurns--
		if player.Effects.JailTurns == 0 {
			c.notice(rm.ID, player.Name+" has served their time in isolation and may move next turn.")
		} else {
			c.notice(rm.ID, fmt.Sprintf("%s is in isolation. %d turn(s) remain.", player.Name, player.Effects.JailTurns))
		}
		if err := c.storage.SavePlayer(ctx, player); err != nil {
			return err
		}
		return c.rooms.AdvanceTurn(ctx, rm)
	}

	if player.Effects.SkipTurns > 0 {
		player.Effects.SkipTurns--
		c.notice(rm.ID, player.Name+" skips this turn.")
		if err := c.storage.SavePlayer(ctx, player); err != nil {
			return err
		}
		return c.rooms.AdvanceTurn(ctx, rm)
	}

	roll := c.random.Intn(6) + 1
	if player.Effects.RollModifier != nil {
		mod := *player.Effects.RollModifier
		player.Effects.RollModifier = nil
		roll += mod
		if roll < 1 {
			roll = 1
		}
		c.notice(rm.ID, fmt.Sprintf("%s's roll is modified by %+d.", player.Name, mod))
		c.rooms.BroadcastPlayerList(ctx, rm)
	}

	player.Saving.Accrue(1)
	player.EnhancedSaving.Accrue(2)

	won, err := c.applyMove(ctx, player, roll, false)
	if err != nil {
		return err
	}
	if won {
		return c.endGame(ctx, rm, player)
	}
	if err := c.resolveCell(ctx, rm, player); err != nil {
		return err
	}
	return c.rooms.AdvanceTurn(ctx, rm)
}

// SelectItemChoice grants the player's chosen item from the grantable
// pool, in response to a choose-any-item cell prompt.
func (c *Controller) SelectItemChoice(ctx context.Context, playerID model.PlayerID, item model.ItemName) error {
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	rm, err := c.playingRoom(ctx, player)
	if err != nil {
		return err
	}
	if !model.IsGrantable(item) {
		c.reject(playerID, "That selection is not available.")
		return model.ErrItemRejected
	}
	player.AddItem(item)
	if err := c.storage.SavePlayer(ctx, player); err != nil {
		return err
	}
	c.notice(rm.ID, fmt.Sprintf("%s chose a %s.", player.Name, item))
	c.rooms.BroadcastPlayerList(ctx, rm)
	return nil
}

// applyMove moves the player by steps on the wrapped track, accounting
// laps, and broadcasts the movement. Returns whether the move won the
// game; it never ends the game itself.
func (c *Controller) applyMove(ctx context.Context, p *model.Player, steps int, isEventMove bool) (bool, error) {
	old := p.Position
	raw := old + steps
	p.LastSettledPosition = old
	p.Position = model.WrapPosition(raw)
	if steps > 0 && raw >= model.TrackLength {
		p.Laps++
	}
	if steps < 0 && raw < 0 && p.Laps > 0 {
		p.Laps--
	}
	if err := c.storage.SavePlayer(ctx, p); err != nil {
		return false, err
	}

	c.gateway.ToRoom(p.RoomID, protocol.Message{
		Event: protocol.EventDiceRollResult,
		Data: protocol.DiceRollResult{
			PlayerID:    p.ID,
			PlayerName:  p.Name,
			Roll:        steps,
			OldPosition: old,
			NewPosition: p.Position,
			IsEventMove: isEventMove,
		},
	})
	return p.Laps >= 1, nil
}

// resolveCell applies the effect of the cell the player now occupies.
// Move-back cells feed new positions through the same loop, bounded by
// maxCascade.
func (c *Controller) resolveCell(ctx context.Context, rm *model.Room, p *model.Player) error {
	for i := 0; i < maxCascade; i++ {
		pos := p.Position
		if pos == 0 {
			c.cellLanded(rm.ID, p, pos, "Start", p.Name+" is back at the start cell.")
			return nil
		}
		if pos == model.IsolationCellIndex {
			return c.resolveIsolation(ctx, rm, p)
		}
		if pos-1 >= len(rm.BoardCells) {
			return nil
		}
		cell := rm.BoardCells[pos-1]

		switch cell.Kind {
		case model.CellItem:
			p.AddItem(cell.Item)
			if err := c.storage.SavePlayer(ctx, p); err != nil {
				return err
			}
			c.cellLanded(rm.ID, p, pos, string(cell.Item), fmt.Sprintf("%s picked up a %s.", p.Name, cell.Item))
			c.rooms.BroadcastPlayerList(ctx, rm)
			return nil

		case model.CellMoveBack:
			c.cellLanded(rm.ID, p, pos, "Move Back", fmt.Sprintf("%s is pushed back %d cells.", p.Name, cell.Steps))
			if _, err := c.applyMove(ctx, p, -cell.Steps, true); err != nil {
				return err
			}
			continue

		case model.CellChooseItem:
			c.cellLanded(rm.ID, p, pos, "Choose Item", p.Name+" landed on an item-choice cell.")
			c.gateway.ToPlayer(p.ID, protocol.Message{
				Event: protocol.EventDiceSelectionReq,
				Data: protocol.DiceSelectionRequest{
					PlayerID:      p.ID,
					AvailableDice: model.GrantableItems(),
					Message:       "Choose any dice to add to your inventory.",
				},
			})
			return nil

		case model.CellEmpty:
			c.cellLanded(rm.ID, p, pos, "Empty", p.Name+" landed on an empty cell.")
			return nil

		default:
			return nil
		}
	}
	c.logger.Warn("cell resolution cascade bound reached",
		slog.String("room_id", string(rm.ID)),
		slog.String("player_id", string(p.ID)))
	return nil
}

// resolveIsolation handles a landing on the fixed isolation cell.
// Immunity absorbs the jailing; an already jailed player is left as-is.
func (c *Controller) resolveIsolation(ctx context.Context, rm *model.Room, p *model.Player) error {
	if p.Protected {
		p.Protected = false
		if err := c.storage.SavePlayer(ctx, p); err != nil {
			return err
		}
		c.notice(rm.ID, p.Name+"'s shield absorbed the isolation cell!")
		return nil
	}
	if p.Effects.JailTurns > 0 {
		c.cellLanded(rm.ID, p, p.Position, "Isolation", p.Name+" is already in isolation.")
		return nil
	}
	p.Effects.JailTurns = model.IsolationSkipTurns
	if err := c.storage.SavePlayer(ctx, p); err != nil {
		return err
	}
	c.cellLanded(rm.ID, p, p.Position, "Isolation",
		fmt.Sprintf("%s is sent to isolation for %d turns!", p.Name, model.IsolationSkipTurns))
	return nil
}

// endGame announces the winner and resets the room for a new round
func (c *Controller) endGame(ctx context.Context, rm *model.Room, winner *model.Player) error {
	c.logger.Info("game ended",
		slog.String("room_id", string(rm.ID)),
		slog.String("winner", string(winner.ID)))
	c.gateway.ToRoom(rm.ID, protocol.Message{
		Event: protocol.EventGameEnded,
		Data:  protocol.GameEnded{WinnerID: winner.ID, WinnerName: winner.Name},
	})
	return c.rooms.ResetForNewRound(ctx, rm)
}

// playingRoom loads the player's room and checks a game is in progress
func (c *Controller) playingRoom(ctx context.Context, p *model.Player) (*model.Room, error) {
	if p.RoomID == "" {
		return nil, model.ErrNotInRoom
	}
	rm, err := c.storage.GetRoom(ctx, p.RoomID)
	if err != nil {
		return nil, err
	}
	if rm.Status != model.RoomStatusPlaying {
		return nil, model.ErrGameNotStarted
	}
	return rm, nil
}

func (c *Controller) notice(roomID model.RoomID, text string) {
	c.gateway.ToRoom(roomID, protocol.Message{Event: protocol.EventServerMessage, Data: text})
}

func (c *Controller) cellLanded(roomID model.RoomID, p *model.Player, pos int, name, msg string) {
	c.gateway.ToRoom(roomID, protocol.Message{
		Event: protocol.EventCellLanded,
		Data: protocol.CellLanded{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			CellIndex:  pos,
			EventName:  name,
			Message:    msg,
		},
	})
}
