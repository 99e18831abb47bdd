package model

import "time"

// PlayerID is the durable, client-supplied identity token. It survives
// reconnects; connections are transient and map onto it.
type PlayerID string

// Role is a player's role relative to their current room
type Role string

const (
	RoleGuest  Role = "guest"
	RolePlayer Role = "player"
	RoleHost   Role = "host"
)

// PlayerStatus represents where a player is in the session lifecycle
type PlayerStatus string

const (
	StatusLobby   PlayerStatus = "lobby"
	StatusWaiting PlayerStatus = "waiting"
	StatusReady   PlayerStatus = "ready"
	StatusPlaying PlayerStatus = "playing"
)

// SavingMode is one banked-movement mode. While active, every die the player
// rolls (their own turn roll or an item's roll) adds an increment to the
// stack, until the matching claim item cashes the whole stack in as one move.
type SavingMode struct {
	Active bool `json:"active"`
	Stack  int  `json:"stack"`
}

// Accrue adds n to the stack if the mode is active
func (m *SavingMode) Accrue(n int) {
	if m.Active {
		m.Stack += n
	}
}

// StatusEffects holds the turn-scoped effects a player can carry.
// Zero values mean "not present".
type StatusEffects struct {
	// JailTurns is the number of turns left to skip on the isolation cell
	JailTurns int `json:"jailTurns,omitempty"`
	// SkipTurns is the number of turns to skip from a penalty
	SkipTurns int `json:"skipTurns,omitempty"`
	// RollModifier is added to the player's next roll, then cleared.
	// Nil means no modifier is pending.
	RollModifier *int `json:"rollModifier,omitempty"`
}

// Player is the durable record for one identity
type Player struct {
	ID     PlayerID     `json:"id"`
	Name   string       `json:"name"`
	RoomID RoomID       `json:"roomId,omitempty"` // empty when in the lobby
	Role   Role         `json:"role"`
	Status PlayerStatus `json:"status"`
	Color  string       `json:"color"`

	Position  int        `json:"position"`
	Laps      int        `json:"laps"`
	Inventory []ItemName `json:"inventory"`

	Effects   StatusEffects `json:"effects"`
	Protected bool          `json:"protected"` // one-shot immunity flag

	Saving         SavingMode `json:"saving"`
	EnhancedSaving SavingMode `json:"enhancedSaving"`

	// LastSettledPosition is the position before the most recent move,
	// used by the anchor items to recall a player
	LastSettledPosition int `json:"lastSettledPosition"`

	CreatedAt time.Time `json:"createdAt"`
}

// ResetRound clears all round-scoped state: position, laps, inventory,
// status effects, immunity and both banked-movement modes. Identity, name,
// color, room membership and role are untouched.
func (p *Player) ResetRound() {
	p.Position = 0
	p.Laps = 0
	p.Inventory = nil
	p.Effects = StatusEffects{}
	p.Protected = false
	p.Saving = SavingMode{}
	p.EnhancedSaving = SavingMode{}
	p.LastSettledPosition = 0
}

// ResetToLobby returns the player to lobby defaults after leaving a room
func (p *Player) ResetToLobby() {
	p.ResetRound()
	p.RoomID = ""
	p.Role = RoleGuest
	p.Status = StatusLobby
}

// HasItem reports whether the inventory holds at least one of the item
func (p *Player) HasItem(item ItemName) bool {
	for _, it := range p.Inventory {
		if it == item {
			return true
		}
	}
	return false
}

// RemoveItem removes the first occurrence of the item from the inventory,
// reporting whether one was removed
func (p *Player) RemoveItem(item ItemName) bool {
	for i, it := range p.Inventory {
		if it == item {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// AddItem appends the item to the inventory
func (p *Player) AddItem(item ItemName) {
	p.Inventory = append(p.Inventory, item)
}
