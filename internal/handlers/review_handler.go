package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"
)

type ReviewHandler struct {
	Base
	reviewService *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService, base Base) *ReviewHandler {
	return &ReviewHandler{
		Base:          base,
		reviewService: reviews,
	}
}

func reviewsPath(productID int) string {
	return fmt.Sprintf("/products/product/%d/reviews", productID)
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	reviews, err := h.reviewService.ListReviews(productID)
	if err != nil {
		h.serverError(w, r, err, "Could not load reviews.")
		return
	}

	h.render(w, r, http.StatusOK, "reviews.html", "Reviews", struct {
		ProductID int
		Reviews   []models.Review
	}{productID, reviews})
}

func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := reviewsPath(productID)

	rating, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("rating")))
	if err != nil {
		h.redirect(w, r, back, session.Danger, "Rating must be a whole number.")
		return
	}

	review := models.Review{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Rating:  rating,
		Comment: strings.TrimSpace(r.PostFormValue("comment")),
	}
	err = h.reviewService.AddReview(productID, review)
	if errors.Is(err, services.ErrValidation) {
		h.redirect(w, r, back, session.Warning, validationMessage(err))
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Int("product_id", productID).Msg("Review submission failed")
		h.redirect(w, r, back, session.Danger, "Your review could not be saved. Please try again.")
		return
	}
	metrics.RecordReview()

	h.redirect(w, r, back, session.Success, "Review submitted!")
}
