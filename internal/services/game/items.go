package game

import (
	"context"
	"fmt"

	"diceboard/internal/model"
	"diceboard/internal/protocol"
)

// UseItem consumes an inventory item and applies its effect. Items are
// not turn-gated; any member of a playing room may use one at any time.
// The item is removed before the handler runs; a rejected use restores
// it and mutates nothing else. After any consumed use except the
// banked-movement items, every active banked mode accrues its increment.
func (c *Controller) UseItem(ctx context.Context, playerID model.PlayerID, item model.ItemName, targetID model.PlayerID) error {
	actor, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	rm, err := c.playingRoom(ctx, actor)
	if err != nil {
		return err
	}

	if !actor.RemoveItem(item) {
		return model.ErrItemNotHeld
	}

	over, err := c.applyItem(ctx, rm, actor, item, targetID)
	if err != nil {
		actor.AddItem(item)
		if saveErr := c.storage.SavePlayer(ctx, actor); saveErr != nil {
			return saveErr
		}
		return err
	}
	if over {
		return nil
	}

	if !isBankedItem(item) {
		actor.Saving.Accrue(1)
		actor.EnhancedSaving.Accrue(2)
	}
	if err := c.storage.SavePlayer(ctx, actor); err != nil {
		return err
	}
	c.rooms.BroadcastPlayerList(ctx, rm)
	return nil
}

// isBankedItem reports whether the item manages a banked-movement mode
// and is therefore excluded from accrual
func isBankedItem(item model.ItemName) bool {
	switch item {
	case model.ItemSaving, model.ItemSavingClaim,
		model.ItemEnhancedSaving, model.ItemEnhancedSavingClaim:
		return true
	}
	return false
}

// applyItem dispatches to the item's effect handler. It returns whether
// the effect ended the game. model.ErrItemRejected means the use did not
// happen and the item must be restored; handlers notify the actor of the
// reason before returning it.
func (c *Controller) applyItem(ctx context.Context, rm *model.Room, actor *model.Player, item model.ItemName, targetID model.PlayerID) (bool, error) {
	switch item {
	case model.ItemPlus:
		roll := c.random.Intn(6) + 1
		c.notice(rm.ID, fmt.Sprintf("%s used a Plus Dice and moves forward %d!", actor.Name, roll))
		return c.moveAndResolve(ctx, rm, actor, roll)

	case model.ItemMinus:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		c.notice(rm.ID, fmt.Sprintf("%s used a Minus Dice on %s!", actor.Name, target.Name))
		return c.hostileMove(ctx, rm, target, -1)

	case model.ItemShield:
		if actor.Protected {
			c.reject(actor.ID, "Your shield is already active.")
			return false, model.ErrItemRejected
		}
		actor.Protected = true
		c.notice(rm.ID, actor.Name+" raised a shield!")
		return false, nil

	case model.ItemCurse:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		roll := c.random.Intn(6) + 1
		c.notice(rm.ID, fmt.Sprintf("%s used a Curse Dice on %s!", actor.Name, target.Name))
		return c.hostileMove(ctx, rm, target, -roll)

	case model.ItemChance:
		if c.random.Intn(100) < 20 {
			roll := c.random.Intn(5) + 7
			c.notice(rm.ID, fmt.Sprintf("%s's Chance Dice paid off: forward %d!", actor.Name, roll))
			return c.moveAndResolve(ctx, rm, actor, roll)
		}
		c.notice(rm.ID, actor.Name+"'s Chance Dice fizzled. Nothing happens.")
		return false, nil

	case model.ItemMystery:
		pool := model.GrantableItems()
		granted := pool[c.random.Intn(len(pool))]
		actor.AddItem(granted)
		c.notice(rm.ID, fmt.Sprintf("%s's Mystery Dice revealed a %s!", actor.Name, granted))
		return false, nil

	case model.ItemPenalty:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, true)
		if err != nil {
			return false, err
		}
		return false, c.applyPenalty(ctx, rm, actor, target)

	case model.ItemSaving:
		return false, c.activateBankedMode(ctx, rm, actor, &actor.Saving, model.ItemSavingClaim)

	case model.ItemSavingClaim:
		return c.claimBankedStack(ctx, rm, actor, &actor.Saving)

	case model.ItemAnchor, model.ItemEnhancedAnchor:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		if target.LastSettledPosition == target.Position {
			c.reject(actor.ID, target.Name+" has nowhere to be recalled to.")
			return false, model.ErrItemRejected
		}
		c.notice(rm.ID, fmt.Sprintf("%s used an Anchor Dice on %s!", actor.Name, target.Name))
		return c.recallTarget(ctx, rm, target)

	case model.ItemUpgrade:
		pool := model.EnhancedItems()
		granted := pool[c.random.Intn(len(pool))]
		actor.AddItem(granted)
		c.notice(rm.ID, fmt.Sprintf("%s upgraded their luck: received a %s!", actor.Name, granted))
		return false, nil

	case model.ItemEnhancedFate:
		roll := c.random.Intn(6) + 5
		c.notice(rm.ID, fmt.Sprintf("%s used an Enhanced Fate Dice and surges forward %d!", actor.Name, roll))
		return c.moveAndResolve(ctx, rm, actor, roll)

	case model.ItemEnhancedPlus:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		back := c.random.Intn(3) + 2
		c.notice(rm.ID, fmt.Sprintf("%s used an Enhanced Plus Dice on %s!", actor.Name, target.Name))
		if over, err := c.hostileMove(ctx, rm, target, -back); over || err != nil {
			return over, err
		}
		return c.moveAndResolve(ctx, rm, actor, c.random.Intn(4)+5)

	case model.ItemEnhancedMinus:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		c.notice(rm.ID, fmt.Sprintf("%s used an Enhanced Minus Dice on %s!", actor.Name, target.Name))
		if over, err := c.moveAndResolve(ctx, rm, actor, c.random.Intn(6)+1); over || err != nil {
			return over, err
		}
		return c.hostileMove(ctx, rm, target, -(c.random.Intn(3) + 2))

	case model.ItemEnhancedCurse:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		c.notice(rm.ID, fmt.Sprintf("%s used an Enhanced Curse Dice on %s!", actor.Name, target.Name))
		return c.hostileMove(ctx, rm, target, -(c.random.Intn(6) + 5))

	case model.ItemEnhancedShield:
		target, err := c.resolveTarget(ctx, rm, actor, targetID, false)
		if err != nil {
			return false, err
		}
		if actor.Protected {
			c.notice(rm.ID, actor.Name+"'s shield was already active.")
		} else {
			actor.Protected = true
			c.notice(rm.ID, actor.Name+" raised an enhanced shield!")
		}
		return c.hostileMove(ctx, rm, target, -(c.random.Intn(4) + 1))

	case model.ItemEnhancedMystery:
		pool := model.GrantableItems()
		first := pool[c.random.Intn(len(pool))]
		second := pool[c.random.Intn(len(pool))]
		actor.AddItem(first)
		actor.AddItem(second)
		c.notice(rm.ID, fmt.Sprintf("%s's Enhanced Mystery Dice revealed a %s and a %s!", actor.Name, first, second))
		return false, nil

	case model.ItemEnhancedChance:
		if c.random.Intn(100) < 35 {
			roll := c.random.Intn(9) + 7
			c.notice(rm.ID, fmt.Sprintf("%s's Enhanced Chance Dice paid off: forward %d!", actor.Name, roll))
			return c.moveAndResolve(ctx, rm, actor, roll)
		}
		c.notice(rm.ID, actor.Name+"'s Enhanced Chance Dice fizzled. Nothing happens.")
		return false, nil

	case model.ItemEnhancedSaving:
		return false, c.activateBankedMode(ctx, rm, actor, &actor.EnhancedSaving, model.ItemEnhancedSavingClaim)

	case model.ItemEnhancedSavingClaim:
		return c.claimBankedStack(ctx, rm, actor, &actor.EnhancedSaving)

	case model.ItemEnhancedPenalty:
		c.reject(actor.ID, "The Enhanced Penalty Dice is not implemented yet.")
		return false, model.ErrItemRejected

	default:
		c.reject(actor.ID, "That item cannot be used.")
		return false, model.ErrItemRejected
	}
}

// applyPenalty draws one of the eight penalties uniformly and applies it
// to the target. Movement and status penalties respect one-shot immunity;
// confiscation and position swaps do not.
func (c *Controller) applyPenalty(ctx context.Context, rm *model.Room, actor, target *model.Player) error {
	switch c.random.Intn(8) {
	case 0:
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s is knocked back 5 cells.", target.Name))
		_, err := c.hostileMove(ctx, rm, target, -5)
		return err

	case 1:
		if intercepted, err := c.interceptIfProtected(ctx, rm, target); intercepted || err != nil {
			return err
		}
		old := target.Position
		target.LastSettledPosition = old
		target.Position = model.IsolationCellIndex
		target.Effects.JailTurns = model.IsolationSkipTurns
		if err := c.storage.SavePlayer(ctx, target); err != nil {
			return err
		}
		c.broadcastMove(rm.ID, target, old)
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s is hauled off to isolation for %d turns.", target.Name, model.IsolationSkipTurns))
		return nil

	case 2:
		kept := target.Inventory[:0]
		for _, it := range target.Inventory {
			if it == model.ItemFate {
				kept = append(kept, it)
			}
		}
		target.Inventory = kept
		if err := c.storage.SavePlayer(ctx, target); err != nil {
			return err
		}
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s's items are confiscated.", target.Name))
		c.rooms.BroadcastPlayerList(ctx, rm)
		return nil

	case 3:
		if intercepted, err := c.interceptIfProtected(ctx, rm, target); intercepted || err != nil {
			return err
		}
		target.Effects.SkipTurns = 1
		if err := c.storage.SavePlayer(ctx, target); err != nil {
			return err
		}
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s will skip their next turn.", target.Name))
		return nil

	case 4:
		last, err := c.lastPlacePlayer(ctx, rm, actor, target)
		if err != nil {
			return err
		}
		if last == nil || last.ID == target.ID {
			c.notice(rm.ID, fmt.Sprintf("Penalty! %s is already in last place. Nothing happens.", target.Name))
			return nil
		}
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s swaps places with %s.", target.Name, last.Name))
		return c.swapPositions(ctx, rm, target, last)

	case 5:
		if intercepted, err := c.interceptIfProtected(ctx, rm, target); intercepted || err != nil {
			return err
		}
		mod := -3
		target.Effects.RollModifier = &mod
		if err := c.storage.SavePlayer(ctx, target); err != nil {
			return err
		}
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s's next roll is weakened by 3.", target.Name))
		return nil

	case 6:
		if actor.ID == target.ID {
			c.notice(rm.ID, fmt.Sprintf("Penalty! %s would swap places with themselves. Nothing happens.", target.Name))
			return nil
		}
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s swaps places with %s.", actor.Name, target.Name))
		return c.swapPositions(ctx, rm, actor, target)

	default:
		c.notice(rm.ID, fmt.Sprintf("Penalty! %s is knocked back 11 cells.", target.Name))
		_, err := c.hostileMove(ctx, rm, target, -11)
		return err
	}
}

// moveAndResolve moves the player, ends the game on a win, and otherwise
// resolves the new cell
func (c *Controller) moveAndResolve(ctx context.Context, rm *model.Room, p *model.Player, steps int) (bool, error) {
	won, err := c.applyMove(ctx, p, steps, true)
	if err != nil {
		return false, err
	}
	if won {
		return true, c.endGame(ctx, rm, p)
	}
	return false, c.resolveCell(ctx, rm, p)
}

// hostileMove is moveAndResolve against a target, intercepted by the
// target's one-shot immunity
func (c *Controller) hostileMove(ctx context.Context, rm *model.Room, target *model.Player, steps int) (bool, error) {
	intercepted, err := c.interceptIfProtected(ctx, rm, target)
	if intercepted || err != nil {
		return false, err
	}
	return c.moveAndResolve(ctx, rm, target, steps)
}

// interceptIfProtected consumes the target's one-shot immunity if set,
// reporting whether the hostile effect was absorbed
func (c *Controller) interceptIfProtected(ctx context.Context, rm *model.Room, target *model.Player) (bool, error) {
	if !target.Protected {
		return false, nil
	}
	target.Protected = false
	if err := c.storage.SavePlayer(ctx, target); err != nil {
		return false, err
	}
	c.notice(rm.ID, target.Name+"'s shield absorbed the attack!")
	return true, nil
}

// recallTarget returns the target to its last settled position and
// resolves the cell there
func (c *Controller) recallTarget(ctx context.Context, rm *model.Room, target *model.Player) (bool, error) {
	if intercepted, err := c.interceptIfProtected(ctx, rm, target); intercepted || err != nil {
		return false, err
	}
	old := target.Position
	target.Position = target.LastSettledPosition
	target.LastSettledPosition = old
	if err := c.storage.SavePlayer(ctx, target); err != nil {
		return false, err
	}
	c.broadcastMove(rm.ID, target, old)
	return false, c.resolveCell(ctx, rm, target)
}

// swapPositions exchanges the positions of two players. Swaps never win
// and never trigger cell resolution.
func (c *Controller) swapPositions(ctx context.Context, rm *model.Room, a, b *model.Player) error {
	oldA, oldB := a.Position, b.Position
	a.Position, b.Position = oldB, oldA
	a.LastSettledPosition = oldA
	b.LastSettledPosition = oldB
	if err := c.storage.SavePlayer(ctx, a); err != nil {
		return err
	}
	if err := c.storage.SavePlayer(ctx, b); err != nil {
		return err
	}
	c.broadcastMove(rm.ID, a, oldA)
	c.broadcastMove(rm.ID, b, oldB)
	return nil
}

// activateBankedMode turns a banked-movement mode on and grants its claim
// item. The guard rejects only when both modes are already active, so
// re-activating a single running mode restarts its stack.
func (c *Controller) activateBankedMode(ctx context.Context, rm *model.Room, actor *model.Player, mode *model.SavingMode, claim model.ItemName) error {
	if actor.Saving.Active && actor.EnhancedSaving.Active {
		c.reject(actor.ID, "A saving mode is already active.")
		return model.ErrItemRejected
	}
	mode.Active = true
	mode.Stack = 0
	actor.AddItem(claim)
	c.notice(rm.ID, actor.Name+" starts banking their movement!")
	return nil
}

// claimBankedStack cashes a banked-movement stack in as one move and
// deactivates the mode
func (c *Controller) claimBankedStack(ctx context.Context, rm *model.Room, actor *model.Player, mode *model.SavingMode) (bool, error) {
	if !mode.Active {
		c.reject(actor.ID, "You have no active saving stack to claim.")
		return false, model.ErrItemRejected
	}
	steps := mode.Stack
	mode.Active = false
	mode.Stack = 0
	c.notice(rm.ID, fmt.Sprintf("%s cashes in their saving stack: %d cells!", actor.Name, steps))
	if steps == 0 {
		return false, nil
	}
	return c.moveAndResolve(ctx, rm, actor, steps)
}

// lastPlacePlayer returns the room member with the least progress
// (laps, then position, ties broken by join order). Records already in
// hand are reused so later saves of those records cannot undo a swap on
// a copy-backed storage backend.
func (c *Controller) lastPlacePlayer(ctx context.Context, rm *model.Room, loaded ...*model.Player) (*model.Player, error) {
	var last *model.Player
	for _, pid := range rm.Players {
		var p *model.Player
		for _, l := range loaded {
			if l.ID == pid {
				p = l
				break
			}
		}
		if p == nil {
			fetched, err := c.storage.GetPlayer(ctx, pid)
			if err != nil {
				continue
			}
			p = fetched
		}
		if last == nil || progress(p) < progress(last) {
			last = p
		}
	}
	return last, nil
}

func progress(p *model.Player) int {
	return p.Laps*model.TrackLength + p.Position
}

// resolveTarget validates a targeted item's target: present, in the same
// room, and distinct from the actor unless self-targeting is allowed.
// When the target is the actor, the actor's record is returned so both
// names refer to one state.
func (c *Controller) resolveTarget(ctx context.Context, rm *model.Room, actor *model.Player, targetID model.PlayerID, allowSelf bool) (*model.Player, error) {
	if targetID == "" {
		return nil, model.ErrInvalidTarget
	}
	if targetID == actor.ID {
		if !allowSelf {
			return nil, model.ErrInvalidTarget
		}
		return actor, nil
	}
	if !rm.HasPlayer(targetID) {
		return nil, model.ErrInvalidTarget
	}
	target, err := c.storage.GetPlayer(ctx, targetID)
	if err != nil {
		return nil, model.ErrInvalidTarget
	}
	return target, nil
}

// broadcastMove announces a teleport-style relocation. The roll field
// carries the signed position delta so clients can animate it.
func (c *Controller) broadcastMove(roomID model.RoomID, p *model.Player, old int) {
	c.gateway.ToRoom(roomID, protocol.Message{
		Event: protocol.EventDiceRollResult,
		Data: protocol.DiceRollResult{
			PlayerID:    p.ID,
			PlayerName:  p.Name,
			Roll:        p.Position - old,
			OldPosition: old,
			NewPosition: p.Position,
			IsEventMove: true,
		},
	})
}

func (c *Controller) reject(playerID model.PlayerID, text string) {
	c.gateway.ToPlayer(playerID, protocol.Message{Event: protocol.EventServerMessage, Data: text})
}
