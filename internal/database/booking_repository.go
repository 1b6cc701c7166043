package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/triplink/triplink-backend/internal/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02" // e.g. an id that is not a UUID
)

const rideColumns = `id, author_id, source, destination, departure_date, price,
	total_seats, available_seats, active, created_at`

const bookingColumns = `id, ride_id, passenger_id, status, created_at`

// joinedBookingColumns selects a booking plus its ride as "ride.*" for sqlx
const joinedBookingColumns = `b.id, b.ride_id, b.passenger_id, b.status, b.created_at,
	r.id AS "ride.id", r.author_id AS "ride.author_id", r.source AS "ride.source",
	r.destination AS "ride.destination", r.departure_date AS "ride.departure_date",
	r.price AS "ride.price", r.total_seats AS "ride.total_seats",
	r.available_seats AS "ride.available_seats", r.active AS "ride.active",
	r.created_at AS "ride.created_at"`

// LedgerRepository handles the ride_offers and bookings tables
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CreateRide inserts a new ride offer
func (r *LedgerRepository) CreateRide(ctx context.Context, ride *models.RideOffer) error {
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}

	query := `
		INSERT INTO ride_offers (
			id, author_id, source, destination, departure_date, price,
			total_seats, available_seats, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		ride.ID, ride.AuthorID, ride.Source, ride.Destination, ride.DepartureDate, ride.Price,
		ride.TotalSeats, ride.AvailableSeats, ride.Active,
	).Scan(&ride.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}
	return nil
}

// GetRide retrieves a ride by ID
func (r *LedgerRepository) GetRide(ctx context.Context, rideID string) (*models.RideOffer, error) {
	ride := &models.RideOffer{}
	err := r.db.GetContext(ctx, ride, `SELECT `+rideColumns+` FROM ride_offers WHERE id = $1`, rideID)
	if err != nil {
		if isMissing(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return ride, nil
}

// GetBooking retrieves a booking by ID
func (r *LedgerRepository) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := r.db.GetContext(ctx, booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		if isMissing(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListAcceptedPassengers returns the passengers currently holding a seat
func (r *LedgerRepository) ListAcceptedPassengers(ctx context.Context, rideID string) ([]string, error) {
	passengers := []string{}
	query := `
		SELECT passenger_id FROM bookings
		WHERE ride_id = $1 AND status = $2
		ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &passengers, query, rideID, models.BookingStatusAccepted); err != nil {
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}
	return passengers, nil
}

// DeactivateDepartedRides hides rides whose departure has passed
func (r *LedgerRepository) DeactivateDepartedRides(ctx context.Context, before int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE ride_offers SET active = FALSE WHERE active AND departure_date < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate rides: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate rides: %w", err)
	}
	return changed, nil
}

// SearchRides finds active rides on a route departing inside [from, to]
func (r *LedgerRepository) SearchRides(ctx context.Context, source, destination string, from, to int64, passengerID string) ([]models.RideSearchResult, error) {
	results := []models.RideSearchResult{}
	query := `
		SELECT r.id, r.author_id, r.source, r.destination, r.departure_date, r.price,
		       r.total_seats, r.available_seats, r.active, r.created_at,
		       EXISTS (
		           SELECT 1 FROM bookings b WHERE b.ride_id = r.id AND b.passenger_id = $5
		       ) AS already_booked
		FROM ride_offers r
		WHERE r.source = $1 AND r.destination = $2
		  AND r.departure_date BETWEEN $3 AND $4
		  AND r.active
		ORDER BY r.departure_date`

	if err := r.db.SelectContext(ctx, &results, query, source, destination, from, to, passengerID); err != nil {
		return nil, fmt.Errorf("failed to search rides: %w", err)
	}
	return results, nil
}

// ListRidesByAuthor returns a driver's rides, soonest first
func (r *LedgerRepository) ListRidesByAuthor(ctx context.Context, authorID string) ([]models.RideOffer, error) {
	rides := []models.RideOffer{}
	query := `SELECT ` + rideColumns + ` FROM ride_offers WHERE author_id = $1 ORDER BY departure_date ASC`
	if err := r.db.SelectContext(ctx, &rides, query, authorID); err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	return rides, nil
}

// ListPendingBookingsForAuthor returns requests awaiting the driver's answer
func (r *LedgerRepository) ListPendingBookingsForAuthor(ctx context.Context, authorID string) ([]models.BookingWithRide, error) {
	bookings := []models.BookingWithRide{}
	query := `
		SELECT ` + joinedBookingColumns + `
		FROM bookings b
		JOIN ride_offers r ON r.id = b.ride_id
		WHERE r.author_id = $1 AND b.status = $2
		ORDER BY b.created_at`

	if err := r.db.SelectContext(ctx, &bookings, query, authorID, models.BookingStatusPending); err != nil {
		return nil, fmt.Errorf("failed to list incoming bookings: %w", err)
	}
	return bookings, nil
}

// ListBookingsByPassenger returns every booking a passenger made
func (r *LedgerRepository) ListBookingsByPassenger(ctx context.Context, passengerID string) ([]models.BookingWithRide, error) {
	bookings := []models.BookingWithRide{}
	query := `
		SELECT ` + joinedBookingColumns + `
		FROM bookings b
		JOIN ride_offers r ON r.id = b.ride_id
		WHERE b.passenger_id = $1
		ORDER BY r.departure_date`

	if err := r.db.SelectContext(ctx, &bookings, query, passengerID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// WithinTx runs fn inside a database transaction
func (r *LedgerRepository) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (t *ledgerTx) LockRide(rideID string) (*models.RideOffer, error) {
	ride := &models.RideOffer{}
	err := t.tx.GetContext(t.ctx, ride, `SELECT `+rideColumns+` FROM ride_offers WHERE id = $1 FOR UPDATE`, rideID)
	if err != nil {
		if isMissing(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock ride: %w", err)
	}
	return ride, nil
}

func (t *ledgerTx) GetBooking(bookingID string) (*models.Booking, error) {
	booking := &models.Booking{}
	err := t.tx.GetContext(t.ctx, booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		if isMissing(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (t *ledgerTx) InsertBooking(booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}

	query := `
		INSERT INTO bookings (id, ride_id, passenger_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := t.tx.QueryRowxContext(t.ctx, query,
		booking.ID, booking.RideID, booking.PassengerID, booking.Status,
	).Scan(&booking.CreatedAt)
	if err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return models.ErrDuplicate
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (t *ledgerTx) UpdateBookingStatus(bookingID string, status models.BookingStatus) error {
	result, err := t.tx.ExecContext(t.ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return expectOneRow(result)
}

func (t *ledgerTx) DeleteBooking(bookingID string) error {
	// reviews reference the booking
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM reviews WHERE booking_id = $1`, bookingID); err != nil {
		return fmt.Errorf("failed to delete booking reviews: %w", err)
	}

	result, err := t.tx.ExecContext(t.ctx, `DELETE FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return expectOneRow(result)
}

func (t *ledgerTx) SetAvailableSeats(rideID string, seats int) error {
	result, err := t.tx.ExecContext(t.ctx, `UPDATE ride_offers SET available_seats = $2 WHERE id = $1`, rideID, seats)
	if err != nil {
		return fmt.Errorf("failed to update available seats: %w", err)
	}
	return expectOneRow(result)
}

func (t *ledgerTx) DeleteRide(rideID string) error {
	statements := []struct {
		query string
		what  string
	}{
		{`DELETE FROM reviews WHERE booking_id IN (SELECT id FROM bookings WHERE ride_id = $1)`, "reviews"},
		{`DELETE FROM bookings WHERE ride_id = $1`, "bookings"},
	}
	for _, stmt := range statements {
		if _, err := t.tx.ExecContext(t.ctx, stmt.query, rideID); err != nil {
			return fmt.Errorf("failed to delete ride %s: %w", stmt.what, err)
		}
	}

	result, err := t.tx.ExecContext(t.ctx, `DELETE FROM ride_offers WHERE id = $1`, rideID)
	if err != nil {
		return fmt.Errorf("failed to delete ride: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// isMissing reports whether a lookup found no row. An id that does not parse
// as a UUID cannot name a row either.
func isMissing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || isPQCode(err, pqInvalidText)
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
