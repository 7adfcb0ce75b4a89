// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	DocumentID string
	Direction  model.Direction // empty matches both directions
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id string, category string, manual bool) error

	// Merchant identity operations. Both run as a single database
	// transaction: either every row is rewritten or none are.
	MergeMerchants(ctx context.Context, names []string, target string) (int64, error)
	SplitMerchant(ctx context.Context, transactionIDs []string, newName string) (int64, error)

	// Document operations
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocuments(ctx context.Context) ([]model.Document, error)
	GetDocumentByID(ctx context.Context, id string) (*model.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	CreateCategory(ctx context.Context, name, color string) (*model.Category, error)

	// Commitment state operations
	GetCommitmentStatuses(ctx context.Context) ([]model.CommitmentStatus, error)
	SetCommitmentStatus(ctx context.Context, merchant string, status model.CommitmentStatusValue, notes string) error
	ClearCommitmentStatus(ctx context.Context, merchant string) error
	GetCommitmentOverrides(ctx context.Context) ([]model.CommitmentOverride, error)
	SetCommitmentOverride(ctx context.Context, override model.CommitmentOverride) error
	ClearCommitmentOverride(ctx context.Context, merchant string) error
	GetExcludedTransactionIDs(ctx context.Context) (map[string]bool, error)
	ExcludeTransaction(ctx context.Context, transactionID string) error
	IncludeTransaction(ctx context.Context, transactionID string) error

	// Flag operations
	CreateFlagIfAbsent(ctx context.Context, flag *model.TransactionFlag) (id string, created bool, err error)
	GetFlagByID(ctx context.Context, id string) (*model.TransactionFlag, error)
	GetUnresolvedFlags(ctx context.Context, flagType model.FlagType) ([]model.TransactionFlag, error)
	GetFlagsForTransaction(ctx context.Context, transactionID string) ([]model.TransactionFlag, error)
	ResolveFlag(ctx context.Context, flagID, resolution string) error
	CountUnresolvedFlags(ctx context.Context) (int, error)
	ClearFlagsForDocument(ctx context.Context, documentID string) (int64, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
