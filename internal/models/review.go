package models

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is feedback one party of an accepted booking leaves about the other
type Review struct {
	ID         string    `json:"id" db:"id"`
	BookingID  string    `json:"booking_id" db:"booking_id"`
	ReviewerID string    `json:"reviewer_id" db:"reviewer_id"`
	ReviewedID string    `json:"reviewed_id" db:"reviewed_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateReviewRequest is the payload for reviewing a booking
type CreateReviewRequest struct {
	BookingID string  `json:"booking_id"`
	Rating    *int    `json:"rating"`
	Comment   *string `json:"comment,omitempty"`
}

// Validate validates the create review request
func (r *CreateReviewRequest) Validate() error {
	if r.BookingID == "" {
		return NewInvalidInput("booking_id is required")
	}
	if r.Rating == nil {
		return NewInvalidInput("rating is required")
	}
	if *r.Rating < MinRating || *r.Rating > MaxRating {
		return NewInvalidInput("rating must be between 1 and 5")
	}
	return nil
}

// UserReviews aggregates the reviews a user received
type UserReviews struct {
	UserID        string   `json:"user_id"`
	AverageRating float64  `json:"average_rating"`
	TotalReviews  int      `json:"total_reviews"`
	Reviews       []Review `json:"reviews"`
}

// SummarizeReviews builds the aggregate with the average rounded to 2 decimals
func SummarizeReviews(userID string, reviews []Review) UserReviews {
	summary := UserReviews{UserID: userID, Reviews: reviews}
	if summary.Reviews == nil {
		summary.Reviews = []Review{}
	}
	if len(reviews) == 0 {
		return summary
	}

	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	summary.TotalReviews = len(reviews)
	summary.AverageRating = math.Round(float64(total)/float64(len(reviews))*100) / 100
	return summary
}
