package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrHasDependencies   = errors.New("has dependencies")
	ErrPersistence       = errors.New("persistence failure")
)

// RequestError is a malformed or incomplete request.
type RequestError struct {
	Details string
}

func invalid(format string, args ...any) error {
	return &RequestError{Details: fmt.Sprintf(format, args...)}
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, e.Details)
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// StockError names the part whose stock could not cover a movement.
type StockError struct {
	PartID     string
	PartNumber string
	Available  int
	Requested  int
	Reversal   bool
}

func (e *StockError) Error() string {
	if e.Reversal {
		return fmt.Sprintf("%s: reversing %d of part %s would leave %d in stock",
			ErrInsufficientStock, e.Requested, e.PartNumber, e.Available-e.Requested)
	}
	return fmt.Sprintf("%s: part %s has %d, requested %d",
		ErrInsufficientStock, e.PartNumber, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// ConflictError is a uniqueness clash, e.g. a part number already taken.
type ConflictError struct {
	Details string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConflict, e.Details)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type NotFoundError struct {
	Entity string
	ID     string
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PartDependencies counts the rows that still reference a part.
type PartDependencies struct {
	TransactionItems int64 `json:"transaction_items"`
	InvoiceItems     int64 `json:"invoice_items"`
}

func (d PartDependencies) Total() int64 {
	return d.TransactionItems + d.InvoiceItems
}

// DependencyError blocks a part deletion; the caller may retry with cascade.
type DependencyError struct {
	PartID       string
	Dependencies PartDependencies
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: part %s is referenced by %d transaction items and %d invoice items",
		ErrHasDependencies, e.PartID, e.Dependencies.TransactionItems, e.Dependencies.InvoiceItems)
}

func (e *DependencyError) Unwrap() error { return ErrHasDependencies }

// PersistenceError wraps a storage fault. The unit of work it happened in
// has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// classify leaves domain errors untouched and wraps everything else as a
// persistence failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrInvalidRequest, ErrInsufficientStock, ErrNotFound, ErrConflict, ErrHasDependencies, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}
