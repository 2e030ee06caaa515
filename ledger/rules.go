package ledger

import (
	"inventory-backend/models"
)

// Rule computes stock outcomes for one movement type. Rules are pure; the
// ledger feeds them stock values read inside the unit of work.
type Rule interface {
	// Apply returns the stock level after moving quantity.
	Apply(current, quantity int) (int, error)
	// Reverse undoes a persisted line. prior is the stock the line saw
	// before it was applied.
	Reverse(current, quantity, prior int) (int, error)
}

type inRule struct{}

func (inRule) Apply(current, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, invalid("IN quantity must be greater than zero, got %d", quantity)
	}
	return current + quantity, nil
}

func (inRule) Reverse(current, quantity, _ int) (int, error) {
	if quantity > current {
		return 0, ErrInsufficientStock
	}
	return current - quantity, nil
}

type outRule struct{}

func (outRule) Apply(current, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, invalid("OUT quantity must be greater than zero, got %d", quantity)
	}
	if quantity > current {
		return 0, ErrInsufficientStock
	}
	return current - quantity, nil
}

func (outRule) Reverse(current, quantity, _ int) (int, error) {
	return current + quantity, nil
}

// adjustmentRule treats quantity as the absolute target level.
type adjustmentRule struct{}

func (adjustmentRule) Apply(_, quantity int) (int, error) {
	if quantity < 0 {
		return 0, invalid("ADJUSTMENT target must not be negative, got %d", quantity)
	}
	return quantity, nil
}

// Reverse re-applies the delta the adjustment introduced, so movements
// booked after it survive. With nothing booked since, this lands exactly on
// prior.
func (adjustmentRule) Reverse(current, quantity, prior int) (int, error) {
	next := current + (prior - quantity)
	if next < 0 {
		return 0, ErrInsufficientStock
	}
	return next, nil
}

var rules = map[models.MovementType]Rule{
	models.MovementIn:         inRule{},
	models.MovementOut:        outRule{},
	models.MovementAdjustment: adjustmentRule{},
}

// RuleFor returns the strategy for a movement type.
func RuleFor(t models.MovementType) (Rule, error) {
	rule, ok := rules[t]
	if !ok {
		return nil, invalid("unknown movement type %q", t)
	}
	return rule, nil
}

// ApplyMovement is a convenience wrapper around RuleFor(t).Apply.
func ApplyMovement(t models.MovementType, current, quantity int) (int, error) {
	rule, err := RuleFor(t)
	if err != nil {
		return 0, err
	}
	return rule.Apply(current, quantity)
}
