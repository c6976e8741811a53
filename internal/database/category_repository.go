package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/brainphaser/pkg/models"
)

// CategoryRepository handles database operations for categories
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new repository instance
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll returns all categories ordered by title
func (r *CategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, "SELECT id, title, description, created_at FROM categories ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetByID returns a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category, r.db.Rebind("SELECT id, title, description, created_at FROM categories WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by ID: %w", err)
	}
	return &category, nil
}

// GetByTitle returns a category by its title, ignoring case
func (r *CategoryRepository) GetByTitle(ctx context.Context, title string) (*models.Category, error) {
	var category models.Category
	err := r.db.GetContext(ctx, &category,
		r.db.Rebind("SELECT id, title, description, created_at FROM categories WHERE LOWER(title) = ?"),
		strings.ToLower(strings.TrimSpace(title)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by title: %w", err)
	}
	return &category, nil
}

// Create inserts a new category and fills its ID
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	category.Title = strings.TrimSpace(category.Title)
	if category.Title == "" {
		return errors.New("category title is required")
	}

	var id int64
	err := r.db.QueryRowxContext(ctx,
		r.db.Rebind("INSERT INTO categories (title, description) VALUES (?, ?) RETURNING id"),
		category.Title, category.Description,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	category.ID = id
	return nil
}
