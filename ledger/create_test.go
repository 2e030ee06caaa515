package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-backend/events"
	"inventory-backend/ledger"
	"inventory-backend/models"
)

func TestCreateInThenDeleteRestoresStock(t *testing.T) {
	f := newFixture(t)
	p := f.part("P-100", 10, "4.00")

	res := f.create(t, inRequest(item(p.Id, 5)))
	assert.Equal(t, 15, f.stock(t, p.Id))
	assert.Empty(t, res.Invoices)
	assert.Equal(t, 0, f.store.InvoiceCount())
	assert.True(t, dec("20.00").Equal(res.Transaction.TotalAmount))

	del, err := f.svc.DeleteTransaction(context.Background(), res.Transaction.Id)
	require.NoError(t, err)
	assert.True(t, del.Found)
	assert.Equal(t, 10, f.stock(t, p.Id))
	assert.Equal(t, 0, f.store.TransactionCount())
}

func TestCreateOutDerivesInvoicePair(t *testing.T) {
	f := newFixture(t)
	filter := f.part("F-1", 10, "2.50")
	belt := f.part("B-7", 4, "10.00")

	res := f.create(t, outRequest(item(filter.Id, 3), item(belt.Id, 2)))

	assert.Equal(t, 7, f.stock(t, filter.Id))
	assert.Equal(t, 2, f.stock(t, belt.Id))

	tr := res.Transaction
	require.Len(t, tr.Items, 2)
	assert.True(t, dec("7.50").Equal(tr.Items[0].LineTotal))
	assert.True(t, dec("20.00").Equal(tr.Items[1].LineTotal))
	assert.True(t, dec("27.50").Equal(tr.TotalAmount))
	assert.Equal(t, "EUR", tr.Currency)
	assert.Equal(t, 10, tr.Items[0].PriorStock)
	assert.Equal(t, 7, tr.Items[0].ResultingStock)

	require.Len(t, res.Invoices, 2)
	assert.Equal(t, models.CustomerCopy, res.Invoices[0].CopyType)
	assert.Equal(t, models.CompanyCopy, res.Invoices[1].CopyType)
	assert.Equal(t, "INV-20261019-000001", res.Invoices[0].InvoiceNumber)
	assert.Equal(t, "INV-20261019-000002", res.Invoices[1].InvoiceNumber)
	for _, inv := range res.Invoices {
		assert.Equal(t, tr.Id, inv.TransactionId)
		assert.Equal(t, "Workshop Nord", inv.Recipient)
		assert.True(t, tr.TotalAmount.Equal(inv.TotalAmount))
		assert.True(t, inv.SumItems().Equal(inv.TotalAmount))
		require.Len(t, inv.Items, 2)
		assert.Equal(t, "Part F-1", inv.Items[0].PartName)
		assert.Equal(t, "F-1", inv.Items[0].PartNumber)
		assert.Equal(t, 3, inv.Items[0].Quantity)
	}
	assert.Equal(t, 2, f.store.InvoiceCount())

	assert.Equal(t, []string{events.TransactionCreated, events.InvoiceDerived, events.InvoiceDerived}, f.publisher.types())
}

func TestCreateMultiItemIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.part("A-1", 10, "1.00")
	b := f.part("B-1", 1, "1.00")

	_, err := f.svc.CreateTransaction(context.Background(), outRequest(item(a.Id, 5), item(b.Id, 2)))

	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	var stockErr *ledger.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.Id, stockErr.PartID)
	assert.Equal(t, "B-1", stockErr.PartNumber)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)
	assert.False(t, stockErr.Reversal)

	assert.Equal(t, 10, f.stock(t, a.Id))
	assert.Equal(t, 1, f.stock(t, b.Id))
	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, 0, f.store.InvoiceCount())
	assert.Empty(t, f.publisher.types())
}

func TestCreateOutFromEmptyStock(t *testing.T) {
	f := newFixture(t)
	b := f.part("B-0", 0, "1.00")

	_, err := f.svc.CreateTransaction(context.Background(), outRequest(item(b.Id, 1)))

	var stockErr *ledger.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, 1, stockErr.Requested)
	assert.Equal(t, 0, f.stock(t, b.Id))
	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, 0, f.store.InvoiceCount())
}

func TestCreateRepeatedPartUsesRunningStock(t *testing.T) {
	f := newFixture(t)
	p := f.part("R-1", 10, "1.00")

	_, err := f.svc.CreateTransaction(context.Background(), outRequest(item(p.Id, 6), item(p.Id, 6)))
	var stockErr *ledger.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Available)
	assert.Equal(t, 10, f.stock(t, p.Id))

	res := f.create(t, outRequest(item(p.Id, 6), item(p.Id, 4)))
	assert.Equal(t, 0, f.stock(t, p.Id))
	assert.Equal(t, 4, res.Transaction.Items[1].PriorStock)
	assert.Equal(t, 0, res.Transaction.Items[1].ResultingStock)
}

func TestCreateRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	p := f.part("V-1", 10, "1.00")
	negative := dec("-1")

	tests := []struct {
		name    string
		req     ledger.CreateRequest
		wantErr error
	}{
		{"unknown type", ledger.CreateRequest{Type: "TRANSFER", Items: []ledger.ItemRequest{item(p.Id, 1)}}, ledger.ErrInvalidRequest},
		{"no items", inRequest(), ledger.ErrInvalidRequest},
		{"out without recipient", ledger.CreateRequest{Type: models.MovementOut, Items: []ledger.ItemRequest{item(p.Id, 1)}}, ledger.ErrInvalidRequest},
		{"blank part id", inRequest(item(" ", 1)), ledger.ErrInvalidRequest},
		{"zero in quantity", inRequest(item(p.Id, 0)), ledger.ErrInvalidRequest},
		{"negative out quantity", outRequest(item(p.Id, -3)), ledger.ErrInvalidRequest},
		{"negative adjustment", ledger.CreateRequest{Type: models.MovementAdjustment, Items: []ledger.ItemRequest{item(p.Id, -1)}}, ledger.ErrInvalidRequest},
		{"negative amount paid", ledger.CreateRequest{Type: models.MovementIn, Items: []ledger.ItemRequest{item(p.Id, 1)}, AmountPaid: &negative}, ledger.ErrInvalidRequest},
		{"negative unit price", inRequest(ledger.ItemRequest{PartID: p.Id, Quantity: 1, UnitPrice: &negative}), ledger.ErrInvalidRequest},
		{"unknown part", inRequest(item("missing", 1)), ledger.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateTransaction(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 10, f.stock(t, p.Id))
	assert.Equal(t, 0, f.store.TransactionCount())
}

func TestCreateAdjustmentSetsAbsoluteLevel(t *testing.T) {
	f := newFixture(t)
	p := f.store.SeedPart(models.Part{PartNumber: "ADJ-1", Name: "Gasket", Stock: 10, MinStock: 5, UnitPrice: dec("0.40")})

	res := f.create(t, ledger.CreateRequest{
		Type:   models.MovementAdjustment,
		Reason: "stocktake",
		Items:  []ledger.ItemRequest{item(p.Id, 3)},
	})

	assert.Equal(t, 3, f.stock(t, p.Id))
	assert.Equal(t, 10, res.Transaction.Items[0].PriorStock)
	assert.Equal(t, 3, res.Transaction.Items[0].ResultingStock)
	assert.True(t, dec("1.20").Equal(res.Transaction.TotalAmount))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ledger.WarningBelowMinimum, res.Warnings[0].Kind)
	assert.Empty(t, res.Invoices)

	_, err := f.svc.DeleteTransaction(context.Background(), res.Transaction.Id)
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, p.Id))
}

func TestAdjustmentReversalKeepsLaterMovements(t *testing.T) {
	f := newFixture(t)
	p := f.part("ADJ-2", 10, "1.00")

	adj := f.create(t, ledger.CreateRequest{Type: models.MovementAdjustment, Items: []ledger.ItemRequest{item(p.Id, 3)}})
	f.create(t, inRequest(item(p.Id, 4)))
	require.Equal(t, 7, f.stock(t, p.Id))

	_, err := f.svc.DeleteTransaction(context.Background(), adj.Transaction.Id)
	require.NoError(t, err)
	assert.Equal(t, 14, f.stock(t, p.Id))
}

func TestCreatePriceHandling(t *testing.T) {
	f := newFixture(t)
	p := f.part("PR-1", 10, "3.00")
	override := dec("1.25")

	res := f.create(t, inRequest(
		item(p.Id, 2),
		ledger.ItemRequest{PartID: p.Id, Quantity: 4, UnitPrice: &override},
	))

	assert.True(t, dec("3.00").Equal(res.Transaction.Items[0].UnitPrice))
	assert.True(t, dec("1.25").Equal(res.Transaction.Items[1].UnitPrice))
	assert.True(t, dec("5.00").Equal(res.Transaction.Items[1].LineTotal))
	assert.True(t, dec("11.00").Equal(res.Transaction.TotalAmount))
}

func TestCreatePaidRule(t *testing.T) {
	f := newFixture(t)
	p := f.part("PAY-1", 100, "5.00")
	full := dec("10.00")
	partial := dec("9.99")

	tests := []struct {
		name       string
		isPaid     bool
		amountPaid *decimal.Decimal
		want       bool
	}{
		{"nothing paid", false, nil, false},
		{"partial payment", false, &partial, false},
		{"amount covers total", false, &full, true},
		{"explicitly marked", true, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := outRequest(item(p.Id, 2))
			req.IsPaid = tt.isPaid
			req.AmountPaid = tt.amountPaid
			res := f.create(t, req)
			assert.Equal(t, tt.want, res.Transaction.IsPaid)
			for _, inv := range res.Invoices {
				assert.Equal(t, tt.want, inv.IsPaid)
				assert.True(t, res.Transaction.AmountPaid.Equal(inv.AmountPaid))
			}
		})
	}
}

func TestCreateWarnsAboveMaximum(t *testing.T) {
	f := newFixture(t)
	maxStock := 12
	p := f.store.SeedPart(models.Part{PartNumber: "MAX-1", Name: "Filter", Stock: 10, MaxStock: &maxStock, UnitPrice: dec("1.00")})

	res := f.create(t, inRequest(item(p.Id, 5)))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ledger.WarningAboveMaximum, res.Warnings[0].Kind)
	assert.Equal(t, 15, res.Warnings[0].Stock)
}

func TestConcurrentOutNeverOversells(t *testing.T) {
	f := newFixture(t)
	p := f.part("HOT-1", 10, "1.00")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateTransaction(context.Background(), outRequest(item(p.Id, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ledger.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, rejected)
	assert.Equal(t, 0, f.stock(t, p.Id))
	assert.Equal(t, 20, f.store.InvoiceCount())
}

func TestCreateUsesRequestedCurrency(t *testing.T) {
	store := newFixture(t).store
	p := store.SeedPart(models.Part{PartNumber: "CUR-1", Name: "Seal", Stock: 5, UnitPrice: dec("1.00")})
	svc := ledger.NewService(store, ledger.WithDefaultCurrency("CHF"))

	res, err := svc.CreateTransaction(context.Background(), inRequest(item(p.Id, 1)))
	require.NoError(t, err)
	assert.Equal(t, "CHF", res.Transaction.Currency)

	req := inRequest(item(p.Id, 1))
	req.Currency = "USD"
	res, err = svc.CreateTransaction(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "USD", res.Transaction.Currency)
}
