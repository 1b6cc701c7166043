package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/triplink/triplink-backend/internal/models"
)

const reviewColumns = `id, booking_id, reviewer_id, reviewed_id, rating, comment, created_at`

// ReviewRepository handles the reviews table
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreateReview inserts a review. The uq_review_booking_reviewer constraint
// rejects a second review of the same booking by the same reviewer.
func (r *ReviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reviews (id, booking_id, reviewer_id, reviewed_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		review.ID, review.BookingID, review.ReviewerID, review.ReviewedID, review.Rating, review.Comment,
	).Scan(&review.CreatedAt)
	if err != nil {
		switch {
		case isPQCode(err, pqUniqueViolation):
			return models.ErrDuplicate
		case isPQCode(err, pqForeignKeyViolation):
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetReview retrieves a review by ID
func (r *ReviewRepository) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	review := &models.Review{}
	err := r.db.GetContext(ctx, review, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		if isMissing(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// DeleteReview removes a review
func (r *ReviewRepository) DeleteReview(ctx context.Context, reviewID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		if isPQCode(err, pqInvalidText) {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return expectOneRow(result)
}

// ListByReviewed returns reviews a user received, newest first
func (r *ReviewRepository) ListByReviewed(ctx context.Context, userID string) ([]models.Review, error) {
	return r.list(ctx, "reviewed_id", userID)
}

// ListByReviewer returns reviews a user wrote, newest first
func (r *ReviewRepository) ListByReviewer(ctx context.Context, userID string) ([]models.Review, error) {
	return r.list(ctx, "reviewer_id", userID)
}

// ListByBooking returns the reviews left on a booking, newest first
func (r *ReviewRepository) ListByBooking(ctx context.Context, bookingID string) ([]models.Review, error) {
	return r.list(ctx, "booking_id", bookingID)
}

// list filters on one of the fixed column names above
func (r *ReviewRepository) list(ctx context.Context, column, value string) ([]models.Review, error) {
	reviews := []models.Review{}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE ` + column + ` = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &reviews, query, value); err != nil {
		if isPQCode(err, pqInvalidText) {
			return reviews, nil
		}
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
