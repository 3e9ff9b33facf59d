package ledger

import "errors"

// Rejections. None of them mutate state.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidCode       = errors.New("invalid code")
	ErrNoInventory       = errors.New("no inventory")
	ErrAlreadyActive     = errors.New("auto-clicker already active")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCashoutPending    = errors.New("cashout already in progress")
	ErrUnknownItem       = errors.New("unknown catalog item")
)

// Reason returns the user-facing message for a rejection.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "Not enough $WE for this purchase."
	case errors.Is(err, ErrInvalidCode):
		return "Incorrect code. Access denied."
	case errors.Is(err, ErrNoInventory):
		return "Nothing left to use."
	case errors.Is(err, ErrAlreadyActive):
		return "Auto-clicker is already running."
	case errors.Is(err, ErrCartItemNotFound):
		return "That item is no longer in your cart."
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, ErrCashoutPending):
		return "Transfer in progress..."
	case errors.Is(err, ErrUnknownItem):
		return "Unknown item."
	default:
		return "Something went wrong."
	}
}
