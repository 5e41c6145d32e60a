package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/rs/zerolog"
)

type ProductService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewProductService(db *sql.DB, logger zerolog.Logger) *ProductService {
	return &ProductService{
		db:     db,
		logger: logger,
	}
}

// ListProducts returns every product, newest first.
func (s *ProductService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, price, stock, image FROM products ORDER BY id DESC",
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing products")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: error scanning product: %v", ErrStore, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID int) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, price, stock, image FROM products WHERE id = ?",
		productID,
	)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error fetching product")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return p, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, in *models.ProductInput, image *string) (*models.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO products (name, description, price, stock, image) VALUES (?, ?, ?, ?, ?)",
		in.Name, in.Description, in.Price, in.Stock, nullString(image),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("name", in.Name).Msg("Error creating product")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get product ID: %v", ErrStore, err)
	}

	product := &models.Product{
		ID:          int(id),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       image,
	}
	s.logger.Info().Int("product_id", product.ID).Str("name", product.Name).Msg("Product created")
	return product, nil
}

// UpdateProduct overwrites every mutable field of the product in one
// statement. image is the filename to store, already resolved by the caller.
func (s *ProductService) UpdateProduct(ctx context.Context, productID int, in *models.ProductInput, image *string) error {
	if err := validateProductInput(in); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE products SET name = ?, description = ?, price = ?, stock = ?, image = ? WHERE id = ?",
		in.Name, in.Description, in.Price, in.Stock, nullString(image), productID,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error updating product")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	// counts matched rows, not changed ones: InitDB sets clientFoundRows
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}

	s.logger.Info().Int("product_id", productID).Msg("Product updated")
	return nil
}

// DeleteProduct removes the product and every cart line that references it
// in a single transaction.
func (s *ProductService) DeleteProduct(ctx context.Context, productID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting product delete transaction")
		return fmt.Errorf("%w: failed to start transaction: %v", ErrStore, err)
	}
	defer tx.Rollback()

	cartResult, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE product_id = ?", productID)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error removing cart references")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", productID)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error deleting product")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing product delete")
		return fmt.Errorf("%w: failed to commit: %v", ErrStore, err)
	}

	removed, _ := cartResult.RowsAffected()
	s.logger.Info().
		Int("product_id", productID).
		Int64("cart_items_removed", removed).
		Msg("Product deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p           models.Product
		description sql.NullString
		image       sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &p.Stock, &image); err != nil {
		return nil, err
	}
	p.Description = description.String
	if image.Valid && image.String != "" {
		name := image.String
		p.Image = &name
	}
	return &p, nil
}

func validateProductInput(in *models.ProductInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
