package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/rs/zerolog"
)

type CartService struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCartService(db *sql.DB, logger zerolog.Logger) *CartService {
	return &CartService{
		db:     db,
		logger: logger,
	}
}

// AddToCart increments the stored quantity for (user, product) by quantity,
// creating the line when it does not exist yet.
func (s *CartService) AddToCart(ctx context.Context, userID, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error starting add-to-cart transaction")
		return fmt.Errorf("%w: failed to start transaction: %v", ErrStore, err)
	}
	defer tx.Rollback()

	// the shared lock makes a concurrent DeleteProduct wait for this commit
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT id FROM products WHERE id = ? LOCK IN SHARE MODE", productID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	var current int
	err = tx.QueryRowContext(ctx,
		"SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE",
		userID, productID,
	).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)",
			userID, productID, quantity,
		)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			"UPDATE cart_items SET quantity = quantity + ? WHERE user_id = ? AND product_id = ?",
			quantity, userID, productID,
		)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Int("product_id", productID).Msg("Error adding to cart")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("Error committing add-to-cart")
		return fmt.Errorf("%w: failed to commit: %v", ErrStore, err)
	}

	s.logger.Info().
		Int("user_id", userID).
		Int("product_id", productID).
		Int("quantity", quantity).
		Msg("Item added to cart")
	return nil
}

// UpdateQuantity sets the stored quantity to exactly quantity. A quantity of
// zero or less removes the line; removed reports which branch ran.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID, quantity int) (removed bool, err error) {
	if quantity <= 0 {
		return true, s.RemoveFromCart(ctx, userID, productID)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?",
		quantity, userID, productID,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Int("product_id", productID).Msg("Error updating cart quantity")
		return false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return false, nil
}

// RemoveFromCart deletes the line if present. A missing line is not an error.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID int) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ? AND product_id = ?",
		userID, productID,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Int("product_id", productID).Msg("Error removing from cart")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func (s *CartService) GetCart(ctx context.Context, userID int) (*models.Cart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.price, p.image, c.quantity
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = ?
		ORDER BY p.id`,
		userID,
	)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error fetching cart")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var (
			line  models.CartLine
			image sql.NullString
		)
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Price, &image, &line.Quantity); err != nil {
			return nil, fmt.Errorf("%w: error scanning cart line: %v", ErrStore, err)
		}
		if image.Valid && image.String != "" {
			name := image.String
			line.Image = &name
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	return models.NewCart(lines), nil
}

// CountItems returns the sum of quantities over the lines GetCart would show.
func (s *CartService) CountItems(ctx context.Context, userID int) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(c.quantity), 0)
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Error counting cart items")
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return total, nil
}
