package model

// CartItem is a pending purchase. UnitBasePrice is frozen when the item is added.
type CartItem struct {
	ID            string
	Kind          ItemKind
	UnitBasePrice int
	Quantity      int
	Nights        int
	People        int
}

// CartTotals are integer cart sums.
type CartTotals struct {
	Subtotal int
	Tax      int
	Total    int
}
