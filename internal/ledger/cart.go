package ledger

import (
	"slices"

	"WeEarn/internal/calculator"
	"WeEarn/internal/model"
)

// AddToCart adds kind at unitPrice. The price stays frozen for the life of the
// item even when the block and the store price change.
func (m *Manager) AddToCart(kind model.ItemKind, unitPrice int) (model.CartItem, error) {
	if kind != model.ItemHotel && kind != model.ItemAutoClicker {
		return model.CartItem{}, ErrUnknownItem
	}
	item := model.CartItem{
		ID:            newItemID(),
		Kind:          kind,
		UnitBasePrice: unitPrice,
		Quantity:      1,
	}
	if kind == model.ItemHotel {
		item.Nights = calculator.MinNights
		item.People = calculator.MinPeople
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart = append(m.cart, item)
	return item, nil
}

// SetQuantity sets an auto-clicker line quantity, clamped to the stepper
// range. Hotel lines always hold one stay.
func (m *Manager) SetQuantity(id string, quantity int) (model.CartItem, error) {
	return m.updateItem(id, func(it *model.CartItem) {
		if it.Kind == model.ItemAutoClicker {
			it.Quantity = clamp(quantity, calculator.MinQuantity, calculator.MaxQuantity)
		}
	})
}

// SetNights sets a hotel line's nights, clamped to [1,7].
func (m *Manager) SetNights(id string, nights int) (model.CartItem, error) {
	return m.updateItem(id, func(it *model.CartItem) {
		if it.Kind == model.ItemHotel {
			it.Nights = clamp(nights, calculator.MinNights, calculator.MaxNights)
		}
	})
}

// SetPeople sets a hotel line's people, clamped to [1,4].
func (m *Manager) SetPeople(id string, people int) (model.CartItem, error) {
	return m.updateItem(id, func(it *model.CartItem) {
		if it.Kind == model.ItemHotel {
			it.People = clamp(people, calculator.MinPeople, calculator.MaxPeople)
		}
	})
}

// RemoveFromCart drops a line.
func (m *Manager) RemoveFromCart(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return ErrCartItemNotFound
	}
	m.cart = slices.Delete(m.cart, i, i+1)
	return nil
}

// Cart returns a copy of the cart lines.
func (m *Manager) Cart() []model.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.cart)
}

// CartTotals prices the current cart.
func (m *Manager) CartTotals() (model.CartTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return calculator.CartTotals(m.cart)
}

func (m *Manager) updateItem(id string, fn func(*model.CartItem)) (model.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return model.CartItem{}, ErrCartItemNotFound
	}
	fn(&m.cart[i])
	return m.cart[i], nil
}

func (m *Manager) indexLocked(id string) int {
	return slices.IndexFunc(m.cart, func(it model.CartItem) bool { return it.ID == id })
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
