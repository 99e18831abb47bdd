package protocol

import (
	"encoding/json"

	"diceboard/internal/model"
)

// Inbound command types
const (
	CmdSetPlayerInfo    = "set_player_info"
	CmdRequestRoomList  = "request_room_list"
	CmdCreateRoom       = "create_room"
	CmdJoinRoom         = "join_room"
	CmdLeaveRoom        = "leave_room"
	CmdPlayerReady      = "player_ready"
	CmdStartGame        = "start_game"
	CmdRollDice         = "roll_dice"
	CmdUseItemDice      = "use_item_dice"
	CmdSelectDiceChoice = "select_dice_choice"
	CmdChatMessage      = "chat_message"
)

// Outbound event types
const (
	EventPlayerInfoAck     = "player_info_set_ack"
	EventRoomList          = "room_list_update"
	EventPlayerList        = "player_list_update"
	EventGameState         = "game_state_update"
	EventServerMessage     = "server_message"
	EventChatMessage       = "chat_message"
	EventDiceRollResult    = "dice_roll_result"
	EventBoardUpdate       = "board_events_update"
	EventCellLanded        = "player_landed_on_event"
	EventTurnUpdate        = "turn_update"
	EventGameStarted       = "game_started"
	EventGameEnded         = "game_ended"
	EventRoomCreated       = "room_created_success"
	EventRoomJoined        = "room_joined_success"
	EventRoomJoinFailed    = "room_join_failed"
	EventLeftRoom          = "left_room_success"
	EventDiceSelectionReq  = "request_dice_selection"
)

// Envelope is the frame every client message arrives in
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is the frame every server event is sent in
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound payloads

type SetPlayerInfoPayload struct {
	PlayerID   model.PlayerID `json:"playerId"`
	PlayerName string         `json:"playerName"`
}

type CreateRoomPayload struct {
	RoomName string `json:"roomName"`
}

type JoinRoomPayload struct {
	RoomID model.RoomID `json:"roomId"`
}

type UseItemPayload struct {
	DiceType       model.ItemName `json:"diceType"`
	TargetPlayerID model.PlayerID `json:"targetPlayerId,omitempty"`
}

type SelectDicePayload struct {
	SelectedDice model.ItemName `json:"selectedDice,omitempty"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

// Outbound payloads

type PlayerInfoAck struct {
	PlayerID   model.PlayerID `json:"playerId"`
	PlayerName string         `json:"playerName"`
	RoomID     model.RoomID   `json:"roomId,omitempty"`
	RoomName   string         `json:"roomName,omitempty"`
	Role       model.Role     `json:"role"`
}

type RoomSummary struct {
	ID           model.RoomID     `json:"id"`
	Name         string           `json:"name"`
	PlayersCount int              `json:"playersCount"`
	MaxPlayers   int              `json:"maxPlayers"`
	Status       model.RoomStatus `json:"status"`
}

type PlayerSummary struct {
	ID        model.PlayerID     `json:"id"`
	Name      string             `json:"name"`
	Status    model.PlayerStatus `json:"status"`
	Role      model.Role         `json:"role"`
	Position  int                `json:"position"`
	Color     string             `json:"color"`
	Inventory []model.ItemName   `json:"inventory"`
}

type GameStatePayload struct {
	CanStart bool `json:"canStart"`
}

type DiceRollResult struct {
	PlayerID    model.PlayerID `json:"playerId"`
	PlayerName  string         `json:"playerName"`
	Roll        int            `json:"roll"`
	OldPosition int            `json:"oldPosition"`
	NewPosition int            `json:"newPosition"`
	IsEventMove bool           `json:"isEventMove"`
}

type CellLanded struct {
	PlayerID   model.PlayerID `json:"playerId"`
	PlayerName string         `json:"playerName"`
	CellIndex  int            `json:"cellIndex"`
	EventName  string         `json:"eventName"`
	Message    string         `json:"message"`
}

type TurnUpdate struct {
	CurrentPlayerID   model.PlayerID `json:"currentPlayerId"`
	CurrentPlayerName string         `json:"currentPlayerName"`
}

type GameEnded struct {
	WinnerID   model.PlayerID `json:"winnerId"`
	WinnerName string         `json:"winnerName"`
}

type RoomCreated struct {
	RoomID   model.RoomID `json:"roomId"`
	RoomName string       `json:"roomName"`
}

type RoomJoined struct {
	RoomID   model.RoomID `json:"roomId"`
	RoomName string       `json:"roomName"`
}

type ChatMessage struct {
	From model.PlayerID `json:"from"`
	Name string         `json:"name"`
	Text string         `json:"text"`
}

type DiceSelectionRequest struct {
	PlayerID      model.PlayerID   `json:"playerId"`
	AvailableDice []model.ItemName `json:"availableDice"`
	Message       string           `json:"message"`
}
