package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-backend/models"
)

func TestRuleApply(t *testing.T) {
	tests := []struct {
		name     string
		movement models.MovementType
		current  int
		quantity int
		want     int
		wantErr  error
	}{
		{"in adds", models.MovementIn, 5, 3, 8, nil},
		{"in rejects zero", models.MovementIn, 5, 0, 0, ErrInvalidRequest},
		{"in rejects negative", models.MovementIn, 5, -2, 0, ErrInvalidRequest},
		{"out subtracts", models.MovementOut, 5, 3, 2, nil},
		{"out may empty stock", models.MovementOut, 5, 5, 0, nil},
		{"out beyond stock", models.MovementOut, 5, 6, 0, ErrInsufficientStock},
		{"out rejects zero", models.MovementOut, 5, 0, 0, ErrInvalidRequest},
		{"adjustment sets level", models.MovementAdjustment, 5, 12, 12, nil},
		{"adjustment to zero", models.MovementAdjustment, 5, 0, 0, nil},
		{"adjustment rejects negative", models.MovementAdjustment, 5, -1, 0, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyMovement(tt.movement, tt.current, tt.quantity)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleReverse(t *testing.T) {
	tests := []struct {
		name     string
		movement models.MovementType
		current  int
		quantity int
		prior    int
		want     int
		wantErr  error
	}{
		{"in gives back", models.MovementIn, 8, 3, 5, 5, nil},
		{"in with stock already consumed", models.MovementIn, 2, 3, 5, 0, ErrInsufficientStock},
		{"out restores", models.MovementOut, 2, 3, 5, 5, nil},
		{"adjustment returns to prior", models.MovementAdjustment, 12, 12, 5, 5, nil},
		{"adjustment keeps later movements", models.MovementAdjustment, 15, 12, 5, 8, nil},
		{"adjustment below zero", models.MovementAdjustment, 1, 12, 5, 0, ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := RuleFor(tt.movement)
			require.NoError(t, err)
			got, err := rule.Reverse(tt.current, tt.quantity, tt.prior)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyThenReverseIsIdentity(t *testing.T) {
	for _, movement := range []models.MovementType{models.MovementIn, models.MovementOut, models.MovementAdjustment} {
		rule, err := RuleFor(movement)
		require.NoError(t, err)
		for current := 0; current <= 6; current++ {
			for quantity := 1; quantity <= 6; quantity++ {
				next, err := rule.Apply(current, quantity)
				if err != nil {
					continue
				}
				back, err := rule.Reverse(next, quantity, current)
				require.NoError(t, err)
				assert.Equal(t, current, back, "%s current=%d quantity=%d", movement, current, quantity)
			}
		}
	}
}

func TestRuleForUnknownType(t *testing.T) {
	_, err := RuleFor("TRANSFER")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Details, "TRANSFER")
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := classify("create transaction", cause)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)

	domain := notFound("part", "p-1")
	assert.Equal(t, domain, classify("get part", domain))
	assert.NoError(t, classify("noop", nil))
}

func TestInvoiceNumberFormat(t *testing.T) {
	at := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "INV-20261019-000042", invoiceNumber(at, 42))
}
