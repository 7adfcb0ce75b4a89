package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// GetCategories lists all categories alphabetically.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, created_at FROM categories ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Color, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// GetCategoryByID retrieves a category by id.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var cat model.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, color, created_at FROM categories WHERE id = ?
	`, id).Scan(&cat.ID, &cat.Name, &cat.Color, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

// CreateCategory adds a category, returning the stored row. Creating a name
// that already exists returns the existing row unchanged.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, color string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, color) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, color); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	var cat model.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, color, created_at FROM categories WHERE name = ?
	`, name).Scan(&cat.ID, &cat.Name, &cat.Color, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read back category: %w", err)
	}
	return &cat, nil
}
