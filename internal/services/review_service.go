package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"storefront/internal/models"

	"github.com/rs/zerolog"
)

const (
	MaxReviewNameLength    = 100
	MaxReviewCommentLength = 5000

	// Lines longer than this were not written by AddReview and are skipped.
	maxLineBytes = 64 * 1024
)

// ReviewService keeps one newline-delimited JSON log per product.
type ReviewService struct {
	dir    string
	logger zerolog.Logger
}

func NewReviewService(dir string, logger zerolog.Logger) *ReviewService {
	return &ReviewService{
		dir:    dir,
		logger: logger,
	}
}

func (s *ReviewService) path(productID int) string {
	return filepath.Join(s.dir, fmt.Sprintf("reviews_%d.txt", productID))
}

// AddReview appends review as a single line to the product's log.
func (s *ReviewService) AddReview(productID int, review models.Review) error {
	if utf8.RuneCountInString(review.Name) > MaxReviewNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrValidation, MaxReviewNameLength)
	}
	if utf8.RuneCountInString(review.Comment) > MaxReviewCommentLength {
		return fmt.Errorf("%w: comment must be at most %d characters", ErrValidation, MaxReviewCommentLength)
	}

	line, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error().Err(err).Str("dir", s.dir).Msg("Error creating reviews directory")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	f, err := os.OpenFile(s.path(productID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error opening review log")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer f.Close()

	// one write per record so concurrent appends never interleave within a line
	if _, err := f.Write(line); err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error appending review")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.logger.Info().Int("product_id", productID).Int("rating", review.Rating).Msg("Review submitted")
	return nil
}

// ListReviews returns the product's reviews oldest first. Lines that do not
// decode are skipped.
func (s *ReviewService) ListReviews(productID int) ([]models.Review, error) {
	f, err := os.Open(s.path(productID))
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Review{}, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Int("product_id", productID).Msg("Error opening review log")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer f.Close()

	reviews := []models.Review{}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if r, ok := decodeReview(line); ok {
			reviews = append(reviews, r)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Error().Err(err).Int("product_id", productID).Msg("Error reading review log")
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
	}

	return reviews, nil
}

func decodeReview(line []byte) (models.Review, bool) {
	var r models.Review
	line = bytes.TrimSpace(line)
	if len(line) == 0 || len(line) > maxLineBytes {
		return r, false
	}
	if err := json.Unmarshal(line, &r); err != nil {
		return r, false
	}
	return r, true
}
