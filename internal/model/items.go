package model

// ItemName identifies an inventory item. The names are wire-visible and are
// the inventory keys; duplicates are allowed and order is acquisition order.
type ItemName string

// Base items. These form the grantable pool: the set board cells and the
// mystery dice draw from.
const (
	// ItemFate names the ordinary turn roll. It is never held in inventory,
	// but it is the one item a penalty confiscation preserves.
	ItemFate ItemName = "Fate Dice"

	ItemPlus    ItemName = "Plus Dice"
	ItemMinus   ItemName = "Minus Dice"
	ItemShield  ItemName = "Shield Dice"
	ItemCurse   ItemName = "Curse Dice"
	ItemChance  ItemName = "Chance Dice"
	ItemMystery ItemName = "Mystery Dice"
	ItemPenalty ItemName = "Penalty Dice"
	ItemSaving  ItemName = "Saving Dice"
	ItemAnchor  ItemName = "Anchor Dice"
	ItemUpgrade ItemName = "Upgrade Dice"

	// ItemSavingClaim cashes in the base banked-movement stack. Granted by
	// ItemSaving, never drawn directly.
	ItemSavingClaim ItemName = "Saving Stack Claim"
)

// Enhanced items, granted by the upgrade dice
const (
	ItemEnhancedFate    ItemName = "Enhanced Fate Dice"
	ItemEnhancedPlus    ItemName = "Enhanced Plus Dice"
	ItemEnhancedMinus   ItemName = "Enhanced Minus Dice"
	ItemEnhancedCurse   ItemName = "Enhanced Curse Dice"
	ItemEnhancedShield  ItemName = "Enhanced Shield Dice"
	ItemEnhancedMystery ItemName = "Enhanced Mystery Dice"
	ItemEnhancedChance  ItemName = "Enhanced Chance Dice"
	ItemEnhancedPenalty ItemName = "Enhanced Penalty Dice"
	ItemEnhancedAnchor  ItemName = "Enhanced Anchor Dice"
	ItemEnhancedSaving  ItemName = "Enhanced Saving Dice"

	ItemEnhancedSavingClaim ItemName = "Enhanced Saving Stack Claim"
)

// GrantableItems returns the base item pool in catalog order
func GrantableItems() []ItemName {
	return []ItemName{
		ItemPlus,
		ItemMinus,
		ItemShield,
		ItemCurse,
		ItemChance,
		ItemMystery,
		ItemPenalty,
		ItemSaving,
		ItemAnchor,
		ItemUpgrade,
	}
}

// EnhancedItems returns the pool the upgrade dice draws from
func EnhancedItems() []ItemName {
	return []ItemName{
		ItemEnhancedFate,
		ItemEnhancedPlus,
		ItemEnhancedMinus,
		ItemEnhancedCurse,
		ItemEnhancedShield,
		ItemEnhancedMystery,
		ItemEnhancedChance,
		ItemEnhancedPenalty,
		ItemEnhancedAnchor,
		ItemEnhancedSaving,
	}
}

// IsGrantable reports whether the item is part of the base grantable pool
func IsGrantable(item ItemName) bool {
	for _, it := range GrantableItems() {
		if it == item {
			return true
		}
	}
	return false
}
