// Package events carries ledger notifications to downstream consumers such
// as the invoice document renderer. Events are published only after the
// unit of work that produced them has committed.
package events

import (
	"context"
	"time"
)

const (
	TransactionCreated = "transaction.created"
	TransactionDeleted = "transaction.deleted"
	InvoiceDerived     = "invoice.derived"
	InvoiceDeleted     = "invoice.deleted"
)

type Event struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	InvoiceID     string    `json:"invoice_id,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	CopyType      string    `json:"copy_type,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Key partitions events so every event of one transaction lands in order.
func (e Event) Key() string {
	return e.TransactionID
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
func (NopPublisher) Close() error                            { return nil }
