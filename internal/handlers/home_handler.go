package handlers

import (
	"database/sql"
	"net/http"

	"storefront/internal/services"
	"storefront/internal/session"
)

type HomeHandler struct {
	Base
	cartService *services.CartService
}

func NewHomeHandler(db *sql.DB, base Base) *HomeHandler {
	return &HomeHandler{
		Base:        base,
		cartService: services.NewCartService(db, base.Logger),
	}
}

func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index.html", "", nil)
}

func (h *HomeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())

	count, err := h.cartService.CountItems(r.Context(), s.UserID)
	if err != nil {
		h.serverError(w, r, err, "Could not load your dashboard.")
		return
	}

	h.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", struct{ CartItems int }{count})
}
