package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-backend/ledger"
)

var errDiskFull = errors.New("disk full")

func TestCreateRollsBackOnPersistenceFailure(t *testing.T) {
	for _, method := range []string{"CreateTransaction", "SetStock", "NextInvoiceSequence", "CreateInvoice"} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t)
			p := f.part("PF-1", 10, "1.00")
			f.store.FailOn(method, errDiskFull)

			_, err := f.svc.CreateTransaction(context.Background(), outRequest(item(p.Id, 3)))

			require.ErrorIs(t, err, ledger.ErrPersistence)
			assert.ErrorIs(t, err, errDiskFull)
			var perr *ledger.PersistenceError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "create transaction", perr.Op)

			assert.Equal(t, 10, f.stock(t, p.Id))
			assert.Equal(t, 0, f.store.TransactionCount())
			assert.Equal(t, 0, f.store.InvoiceCount())
			assert.Empty(t, f.publisher.types())
		})
	}
}

func TestDeleteRollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	p := f.part("PF-2", 10, "1.00")
	res := f.create(t, outRequest(item(p.Id, 3)))
	f.store.FailOn("DeleteTransaction", errDiskFull)

	_, err := f.svc.DeleteTransaction(context.Background(), res.Transaction.Id)
	require.ErrorIs(t, err, ledger.ErrPersistence)

	assert.Equal(t, 7, f.stock(t, p.Id))
	assert.Equal(t, 1, f.store.TransactionCount())
	assert.Equal(t, 2, f.store.InvoiceCount())

	f.store.ClearFailures()
	del, err := f.svc.DeleteTransaction(context.Background(), res.Transaction.Id)
	require.NoError(t, err)
	assert.True(t, del.Found)
	assert.Equal(t, 10, f.stock(t, p.Id))
}

func TestPaymentRollsBackOnPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	p := f.part("PF-3", 10, "1.00")
	res := f.create(t, outRequest(item(p.Id, 3)))
	f.store.FailOn("UpdateTransaction", errDiskFull)

	_, err := f.svc.UpdatePayment(context.Background(), res.Transaction.Id, ledger.PaymentUpdate{MarkPaid: true})
	require.ErrorIs(t, err, ledger.ErrPersistence)

	stored, ok := f.store.Transaction(res.Transaction.Id)
	require.True(t, ok)
	assert.False(t, stored.IsPaid)
}

func TestPublishFailureDoesNotUndoCommit(t *testing.T) {
	f := newFixture(t)
	p := f.part("PF-4", 10, "1.00")
	f.publisher.err = errors.New("broker down")

	res, err := f.svc.CreateTransaction(context.Background(), outRequest(item(p.Id, 3)))
	require.NoError(t, err)
	assert.Len(t, res.Invoices, 2)
	assert.Equal(t, 7, f.stock(t, p.Id))
	assert.Equal(t, 1, f.store.TransactionCount())
}

func TestCanceledContextStartsNoUnit(t *testing.T) {
	f := newFixture(t)
	p := f.part("PF-5", 10, "1.00")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.CreateTransaction(ctx, inRequest(item(p.Id, 1)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, f.stock(t, p.Id))
	assert.Equal(t, 0, f.store.Units())
}
