package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SaveDocument registers an uploaded statement. The rowid becomes the
// document's upload sequence, giving cross-document duplicate detection its
// total order.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *model.Document) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%w: doc", ErrNilParameter)
	}
	if err := validateString(doc.ID, "doc.ID"); err != nil {
		return err
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, uploaded_at) VALUES (?, ?, ?)
	`, doc.ID, doc.Filename, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	doc.Seq, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get document sequence: %w", err)
	}
	return nil
}

// GetDocuments lists all documents in upload order.
func (s *SQLiteStorage) GetDocuments(ctx context.Context) ([]model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rowid, id, filename, uploaded_at FROM documents ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.Seq, &doc.ID, &doc.Filename, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetDocumentByID retrieves a single document.
func (s *SQLiteStorage) GetDocumentByID(ctx context.Context, id string) (*model.Document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var doc model.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT rowid, id, filename, uploaded_at FROM documents WHERE id = ?
	`, id).Scan(&doc.Seq, &doc.ID, &doc.Filename, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document. Its transactions and their flags go
// with it via foreign key cascade.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	return nil
}
