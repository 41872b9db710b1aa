package domain

// ItemKind groups shop items by where they are equipped.
type ItemKind string

const (
	ItemKindBackground ItemKind = "background"
)

func (k ItemKind) IsValid() bool {
	return k == ItemKindBackground
}

// ShopItem is a purchasable cosmetic.
type ShopItem struct {
	ID    string
	Name  string
	Kind  ItemKind
	Price int
	Icon  string
}
