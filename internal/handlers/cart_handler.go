package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"
)

const (
	cartPath     = "/products/cart"
	productsPath = "/products/"
)

type CartHandler struct {
	Base
	cartService *services.CartService
}

func NewCartHandler(db *sql.DB, base Base) *CartHandler {
	return &CartHandler{
		Base:        base,
		cartService: services.NewCartService(db, base.Logger),
	}
}

func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	cart, err := h.cartService.GetCart(r.Context(), s.UserID)
	if err != nil {
		h.serverError(w, r, err, "Could not load your cart.")
		return
	}

	h.render(w, r, http.StatusOK, "cart.html", "Cart", struct{ Cart *models.Cart }{cart})
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r)
	if !ok {
		h.redirect(w, r, productsPath, session.Danger, "Product not found!")
		return
	}

	quantity, err := parseQuantity(r)
	if err != nil {
		h.redirect(w, r, productsPath, session.Danger, "Invalid quantity value.")
		return
	}
	if quantity < 1 {
		h.redirect(w, r, backOr(r, productsPath), session.Warning, "Quantity must be at least 1.")
		return
	}

	s := session.FromContext(r.Context())
	err = h.cartService.AddToCart(r.Context(), s.UserID, productID, quantity)
	metrics.RecordCartOperation("add", err)
	switch {
	case err == nil:
		h.redirect(w, r, cartPath, session.Success, "Item added to cart!")
	case errors.Is(err, services.ErrNotFound):
		h.redirect(w, r, productsPath, session.Danger, "Product not found!")
	default:
		h.Logger.Error().Err(err).Int("user_id", s.UserID).Int("product_id", productID).Msg("Add to cart failed")
		h.redirect(w, r, productsPath, session.Danger, "A database error occurred while adding to your cart.")
	}
}

// Update sets the line to an absolute quantity; zero or less removes it.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r)
	if !ok {
		h.redirect(w, r, cartPath, session.Danger, "Product not found!")
		return
	}

	quantity, err := parseQuantity(r)
	if err != nil {
		h.redirect(w, r, cartPath, session.Danger, "Invalid quantity value submitted.")
		return
	}

	s := session.FromContext(r.Context())
	removed, err := h.cartService.UpdateQuantity(r.Context(), s.UserID, productID, quantity)
	metrics.RecordCartOperation("update", err)
	switch {
	case err != nil:
		h.Logger.Error().Err(err).Int("user_id", s.UserID).Int("product_id", productID).Msg("Cart update failed")
		h.redirect(w, r, cartPath, session.Danger, "A database error occurred while updating your cart.")
	case removed:
		h.redirect(w, r, cartPath, session.Info, "Item removed from cart.")
	default:
		h.redirect(w, r, cartPath, session.Success, "Cart quantity updated successfully!")
	}
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r)
	if !ok {
		h.redirect(w, r, cartPath, session.Danger, "Product not found!")
		return
	}

	s := session.FromContext(r.Context())
	err := h.cartService.RemoveFromCart(r.Context(), s.UserID, productID)
	metrics.RecordCartOperation("remove", err)
	if err != nil {
		h.Logger.Error().Err(err).Int("user_id", s.UserID).Int("product_id", productID).Msg("Cart removal failed")
		h.redirect(w, r, cartPath, session.Danger, "A database error occurred during item removal.")
		return
	}

	h.redirect(w, r, cartPath, session.Info, "Item successfully removed from cart.")
}
