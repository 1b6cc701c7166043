package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/database"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/observability"
)

// ReviewService lets the two parties of an accepted booking rate each other
type ReviewService struct {
	ledger  database.LedgerStore
	reviews database.ReviewStore
	logger  *logrus.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(ledger database.LedgerStore, reviews database.ReviewStore, logger *logrus.Logger) *ReviewService {
	return &ReviewService{
		ledger:  ledger,
		reviews: reviews,
		logger:  logger,
	}
}

// CreateReview records the actor's review of the other party of a booking
func (s *ReviewService) CreateReview(ctx context.Context, actor models.Actor, req *models.CreateReviewRequest) (*models.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	booking, ride, err := s.participants(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	var reviewed string
	switch actor.ID() {
	case ride.AuthorID:
		reviewed = booking.PassengerID
	case booking.PassengerID:
		reviewed = ride.AuthorID
	default:
		return nil, models.NewForbidden("You did not take part in this booking")
	}

	if !booking.HoldsSeat() {
		return nil, models.NewInvalidState("Only accepted bookings can be reviewed")
	}

	review := &models.Review{
		BookingID:  booking.ID,
		ReviewerID: actor.ID(),
		ReviewedID: reviewed,
		Rating:     *req.Rating,
		Comment:    normaliseComment(req.Comment),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.NewConflict("You already reviewed this booking")
		}
		return nil, storeError(err, "Booking not found")
	}

	observability.ReviewsCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"review_id":   review.ID,
		"booking_id":  review.BookingID,
		"reviewer_id": review.ReviewerID,
		"rating":      review.Rating,
	}).Info("Review created")
	return review, nil
}

// ListReviewsFor returns the reviews a user received with their average
func (s *ReviewService) ListReviewsFor(ctx context.Context, userID string) (*models.UserReviews, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, models.NewInvalidInput("user_id is required")
	}
	reviews, err := s.reviews.ListByReviewed(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User not found")
	}
	summary := models.SummarizeReviews(userID, reviews)
	return &summary, nil
}

// ListReviewsForBooking returns the reviews left on a booking the actor took part in
func (s *ReviewService) ListReviewsForBooking(ctx context.Context, actor models.Actor, bookingID string) ([]models.Review, error) {
	booking, ride, err := s.participants(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.ID() != booking.PassengerID && !ride.IsAuthor(actor.ID()) && !actor.Role.CanModerate() {
		return nil, models.NewForbidden("You did not take part in this booking")
	}

	reviews, err := s.reviews.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "Booking not found")
	}
	return reviews, nil
}

// MyReviews returns the reviews the actor wrote
func (s *ReviewService) MyReviews(ctx context.Context, actor models.Actor) ([]models.Review, error) {
	reviews, err := s.reviews.ListByReviewer(ctx, actor.ID())
	if err != nil {
		return nil, storeError(err, "Review not found")
	}
	return reviews, nil
}

// DeleteReview removes one of the actor's reviews
func (s *ReviewService) DeleteReview(ctx context.Context, actor models.Actor, reviewID string) error {
	review, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return storeError(err, "Review not found")
	}
	if review.ReviewerID != actor.ID() {
		return models.NewForbidden("Only the author of a review can delete it")
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return storeError(err, "Review not found")
	}
	return nil
}

func (s *ReviewService) participants(ctx context.Context, bookingID string) (*models.Booking, *models.RideOffer, error) {
	booking, err := s.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, storeError(err, "Booking not found")
	}
	ride, err := s.ledger.GetRide(ctx, booking.RideID)
	if err != nil {
		return nil, nil, storeError(err, "Ride not found")
	}
	return booking, ride, nil
}

func normaliseComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
