package game

type ItemCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Inventory keeps items in acquisition order.
type Inventory struct {
	items []ItemCount
}

func NewInventory(items []ItemCount) Inventory {
	var inv Inventory
	for _, it := range items {
		inv.Add(it.Name, it.Count)
	}
	return inv
}

// Add applies a delta. Items reaching zero or below are removed.
func (inv *Inventory) Add(name string, delta int) {
	if i := inv.Index(name); i >= 0 {
		inv.items[i].Count += delta
		if inv.items[i].Count <= 0 {
			inv.items = append(inv.items[:i], inv.items[i+1:]...)
		}
		return
	}
	if delta <= 0 {
		return
	}
	inv.items = append(inv.items, ItemCount{Name: name, Count: delta})
}

func (inv Inventory) Index(name string) int {
	for i, it := range inv.items {
		if it.Name == name {
			return i
		}
	}
	return -1
}

func (inv Inventory) Has(name string) bool {
	return inv.Index(name) >= 0
}

func (inv Inventory) Count(name string) int {
	if i := inv.Index(name); i >= 0 {
		return inv.items[i].Count
	}
	return 0
}

// At returns the item name at a position, as referenced by item-use frames.
func (inv Inventory) At(i int) (string, bool) {
	if i < 0 || i >= len(inv.items) {
		return "", false
	}
	return inv.items[i].Name, true
}

func (inv Inventory) Len() int {
	return len(inv.items)
}

func (inv Inventory) Items() []ItemCount {
	return append([]ItemCount(nil), inv.items...)
}

func (inv Inventory) Clone() Inventory {
	return Inventory{items: inv.Items()}
}
