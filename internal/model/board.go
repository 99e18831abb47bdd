package model

// Track geometry. Positions live in [0, TrackLength); completing one full
// lap wins the game.
const (
	TrackLength = 48
	// IsolationCellIndex is the fixed position of the isolation cell.
	// It is never part of the random layout draw.
	IsolationCellIndex = 24
	// IsolationSkipTurns is how many turns a jailed player sits out
	IsolationSkipTurns = 2
)

// CellKind distinguishes what happens when a player lands on a cell
type CellKind string

const (
	// CellItem grants a named item
	CellItem CellKind = "item"
	// CellMoveBack forces the player backward by Steps
	CellMoveBack CellKind = "move_back"
	// CellChooseItem lets the player pick any grantable item
	CellChooseItem CellKind = "choose_item"
	// CellEmpty does nothing
	CellEmpty CellKind = "empty"
	// CellIsolation is the fixed jail cell
	CellIsolation CellKind = "isolation"
)

// BoardCell is one cell's assigned effect
type BoardCell struct {
	Kind  CellKind `json:"kind"`
	Item  ItemName `json:"item,omitempty"`  // set when Kind == CellItem
	Steps int      `json:"steps,omitempty"` // set when Kind == CellMoveBack
}

// WeightedCell pairs a cell effect with its draw weight
type WeightedCell struct {
	Cell   BoardCell
	Weight int
}

// CellTable is the weighted catalog the board generator draws from.
// Saving and Anchor dice are deliberately rarer; empty cells dominate.
func CellTable() []WeightedCell {
	return []WeightedCell{
		{Cell: BoardCell{Kind: CellItem, Item: ItemPlus}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemMinus}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemShield}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemCurse}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemChance}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemMystery}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemPenalty}, Weight: 9},
		{Cell: BoardCell{Kind: CellItem, Item: ItemSaving}, Weight: 7},
		{Cell: BoardCell{Kind: CellItem, Item: ItemAnchor}, Weight: 7},
		{Cell: BoardCell{Kind: CellItem, Item: ItemUpgrade}, Weight: 9},
		{Cell: BoardCell{Kind: CellMoveBack, Steps: 2}, Weight: 4},
		{Cell: BoardCell{Kind: CellChooseItem}, Weight: 3},
		{Cell: BoardCell{Kind: CellEmpty}, Weight: 25},
	}
}

// WrapPosition normalizes a raw track offset into [0, TrackLength),
// handling negative values
func WrapPosition(raw int) int {
	return ((raw % TrackLength) + TrackLength) % TrackLength
}
