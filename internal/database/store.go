package database

import (
	"context"

	"github.com/triplink/triplink-backend/internal/models"
)

// LedgerStore persists rides and bookings.
//
// Reads outside WithinTx see committed state only. Every seat mutation must go
// through WithinTx and call LockRide before reading available_seats.
type LedgerStore interface {
	CreateRide(ctx context.Context, ride *models.RideOffer) error
	GetRide(ctx context.Context, rideID string) (*models.RideOffer, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListAcceptedPassengers(ctx context.Context, rideID string) ([]string, error)
	SearchRides(ctx context.Context, source, destination string, from, to int64, passengerID string) ([]models.RideSearchResult, error)
	ListRidesByAuthor(ctx context.Context, authorID string) ([]models.RideOffer, error)
	ListPendingBookingsForAuthor(ctx context.Context, authorID string) ([]models.BookingWithRide, error)
	ListBookingsByPassenger(ctx context.Context, passengerID string) ([]models.BookingWithRide, error)
	// DeactivateDepartedRides clears the active flag of rides departing before
	// the given unix time and returns how many changed
	DeactivateDepartedRides(ctx context.Context, before int64) (int64, error)

	// WithinTx runs fn in one transaction, committing only when fn returns nil
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the set of statements allowed inside a ledger transaction
type LedgerTx interface {
	// LockRide reads the ride row and holds it until the transaction ends
	LockRide(rideID string) (*models.RideOffer, error)
	GetBooking(bookingID string) (*models.Booking, error)
	// InsertBooking returns models.ErrDuplicate when (ride, passenger) is taken
	InsertBooking(booking *models.Booking) error
	UpdateBookingStatus(bookingID string, status models.BookingStatus) error
	DeleteBooking(bookingID string) error
	SetAvailableSeats(rideID string, seats int) error
	// DeleteRide removes the ride together with its bookings and their reviews
	DeleteRide(rideID string) error
}

// ReviewStore persists reviews
type ReviewStore interface {
	// CreateReview returns models.ErrDuplicate when (booking, reviewer) is taken
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, reviewID string) (*models.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
	ListByReviewed(ctx context.Context, userID string) ([]models.Review, error)
	ListByReviewer(ctx context.Context, userID string) ([]models.Review, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Review, error)
}
