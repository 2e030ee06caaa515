package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"inventory-backend/events"
	"inventory-backend/ledger"
	"inventory-backend/ledger/ledgertest"
	"inventory-backend/models"
)

var startOfDay = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

// recordingPublisher keeps every published event and can be told to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// steppingClock advances one second per call, so creation order is
// observable and everything stays on the same day.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := startOfDay
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	svc       *ledger.Service
	store     *ledgertest.MemStore
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgertest.NewMemStore()
	publisher := &recordingPublisher{}
	svc := ledger.NewService(store,
		ledger.WithPublisher(publisher),
		ledger.WithClock(steppingClock()),
	)
	return &fixture{svc: svc, store: store, publisher: publisher}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) part(number string, stock int, price string) models.Part {
	return f.store.SeedPart(models.Part{
		Name:       "Part " + number,
		PartNumber: number,
		Stock:      stock,
		UnitPrice:  dec(price),
	})
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, ok := f.store.Part(id)
	require.True(t, ok, "part %s missing", id)
	return p.Stock
}

func (f *fixture) create(t *testing.T, req ledger.CreateRequest) *ledger.CreateResult {
	t.Helper()
	res, err := f.svc.CreateTransaction(context.Background(), req)
	require.NoError(t, err)
	return res
}

func item(partID string, qty int) ledger.ItemRequest {
	return ledger.ItemRequest{PartID: partID, Quantity: qty}
}

func outRequest(items ...ledger.ItemRequest) ledger.CreateRequest {
	return ledger.CreateRequest{Type: models.MovementOut, Recipient: "Workshop Nord", Items: items}
}

func inRequest(items ...ledger.ItemRequest) ledger.CreateRequest {
	return ledger.CreateRequest{Type: models.MovementIn, Items: items}
}
