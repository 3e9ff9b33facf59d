package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"WeEarn/internal/model"
)

const (
	MinNights = 1
	MaxNights = 7
	MinPeople = 1
	MaxPeople = 4

	MinQuantity = 1
	MaxQuantity = 99
)

var (
	extraNightFactor  = decimal.RequireFromString("0.9")
	extraPersonFactor = decimal.RequireFromString("0.85")
)

// HotelPrice prices a hotel stay. Each extra night costs 90% of the base and
// each extra person costs 85% of the per-person total; both discounts apply
// additively to the same base and the result is floored.
func HotelPrice(base, nights, people int) (int, error) {
	if base < 0 {
		return 0, errors.New("base price must not be negative")
	}
	if nights < MinNights || nights > MaxNights {
		return 0, fmt.Errorf("nights %d out of range [%d,%d]", nights, MinNights, MaxNights)
	}
	if people < MinPeople || people > MaxPeople {
		return 0, fmt.Errorf("people %d out of range [%d,%d]", people, MinPeople, MaxPeople)
	}

	nightsMultiplier := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(nights - 1)).Mul(extraNightFactor))
	perPerson := decimal.NewFromInt(int64(base)).Mul(nightsMultiplier)
	extra := decimal.NewFromInt(int64(people - 1)).Mul(perPerson).Mul(extraPersonFactor)

	return int(perPerson.Add(extra).Floor().IntPart()), nil
}

// LinePrice returns the price of one cart line.
func LinePrice(item model.CartItem) (int, error) {
	switch item.Kind {
	case model.ItemHotel:
		return HotelPrice(item.UnitBasePrice, item.Nights, item.People)
	case model.ItemAutoClicker:
		if item.Quantity < MinQuantity || item.Quantity > MaxQuantity {
			return 0, fmt.Errorf("quantity %d out of range [%d,%d]", item.Quantity, MinQuantity, MaxQuantity)
		}
		return item.UnitBasePrice * item.Quantity, nil
	default:
		return 0, fmt.Errorf("unknown item kind %q", item.Kind)
	}
}

// Units returns how many inventory units a line grants at checkout.
func Units(item model.CartItem) int {
	switch item.Kind {
	case model.ItemHotel:
		return item.Nights * item.People
	case model.ItemAutoClicker:
		return item.Quantity
	default:
		return 0
	}
}
