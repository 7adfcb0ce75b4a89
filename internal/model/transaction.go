// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether money left or entered the account.
type Direction string

// Direction constants.
const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// IsValid reports whether the direction is a known value.
func (d Direction) IsValid() bool {
	return d == DirectionDebit || d == DirectionCredit
}

// TransactionClass is a structural tag distinguishing spending from
// inter-account movement.
type TransactionClass string

// Transaction class constants.
const (
	ClassPurchase TransactionClass = "purchase"
	ClassPayment  TransactionClass = "payment"
	ClassTransfer TransactionClass = "transfer"
	ClassFee      TransactionClass = "fee"
	ClassRefund   TransactionClass = "refund"
)

// Transaction represents a single parsed statement line. It is immutable as
// far as the detection engine is concerned; the amount is always non-negative
// and Direction carries the sign.
type Transaction struct {
	Date               time.Time
	ID                 string
	Description        string
	NormalizedMerchant string // canonical merchant name set upstream; empty if none
	CategoryName       string
	DocumentID         string
	Class              TransactionClass
	Amount             decimal.Decimal
	ManualCategory     bool
	Direction          Direction
}

// MerchantKey returns the case-insensitive grouping key used by recurrence
// analysis. Empty when the transaction has no normalized merchant.
func (t *Transaction) MerchantKey() string {
	return MerchantKey(t.NormalizedMerchant)
}

// MerchantKey normalizes a merchant name into its grouping key.
func MerchantKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validation errors.
var (
	ErrMissingID      = errors.New("transaction missing ID")
	ErrMissingDate    = errors.New("transaction missing date")
	ErrNegativeAmount = errors.New("transaction amount is negative")
	ErrBadDirection   = errors.New("transaction direction is invalid")
)

// Validate checks the invariants every transaction entering the engine must
// hold. A failing transaction is dropped from the working set, never fatal.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return ErrMissingID
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: %s", ErrMissingDate, t.ID)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, t.ID)
	}
	if !t.Direction.IsValid() {
		return fmt.Errorf("%w: %s (%q)", ErrBadDirection, t.ID, t.Direction)
	}
	return nil
}
