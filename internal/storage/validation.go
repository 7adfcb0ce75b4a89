// Package storage provides the data persistence layer for the ledgerlens
// engine.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidStatus      = errors.New("invalid commitment status")
	ErrInvalidFlag        = errors.New("invalid flag")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := transactions[i].Validate(); err != nil {
			return fmt.Errorf("%w: transaction at index %d: %v", ErrInvalidTransaction, i, err)
		}
		if transactions[i].DocumentID == "" {
			return fmt.Errorf("%w: transaction at index %d: missing document ID", ErrInvalidTransaction, i)
		}
	}
	return nil
}

// validateFlag validates a flag record before insertion.
func validateFlag(flag *model.TransactionFlag) error {
	if flag == nil {
		return fmt.Errorf("%w: flag", ErrNilParameter)
	}
	if flag.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidFlag)
	}
	if !flag.Type.IsValid() {
		return fmt.Errorf("%w: unknown flag type %q", ErrInvalidFlag, flag.Type)
	}
	return nil
}
