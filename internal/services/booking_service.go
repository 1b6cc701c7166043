package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/database"
	"github.com/triplink/triplink-backend/internal/events"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/observability"
)

// BookingService owns the seat ledger: ride offers, booking requests and
// their accept/deny/delete transitions.
//
// available_seats changes in exactly two places: AcceptBooking takes a seat
// and DeleteBooking of an accepted booking returns it. Both run in a store
// transaction holding the ride row lock.
type BookingService struct {
	store     database.LedgerStore
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(store database.LedgerStore, publisher events.Publisher, logger *logrus.Logger) *BookingService {
	return &BookingService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateRide publishes a new ride offer for a driver
func (s *BookingService) CreateRide(ctx context.Context, actor models.Actor, req *models.CreateRideRequest) (*models.RideOffer, error) {
	if !actor.Role.CanOfferRides() {
		return nil, s.done("create_ride", models.NewForbidden("Only drivers can offer rides"))
	}
	if err := req.Validate(); err != nil {
		return nil, s.done("create_ride", err)
	}

	ride := &models.RideOffer{
		AuthorID:       actor.ID(),
		Source:         strings.TrimSpace(req.Source),
		Destination:    strings.TrimSpace(req.Destination),
		DepartureDate:  req.DepartureDate,
		Price:          *req.Price,
		TotalSeats:     *req.AvailableSeats,
		AvailableSeats: *req.AvailableSeats,
		Active:         true,
	}
	if err := s.store.CreateRide(ctx, ride); err != nil {
		return nil, s.done("create_ride", storeError(err, "Ride not found"))
	}

	s.logger.WithFields(logrus.Fields{
		"ride_id":   ride.ID,
		"author_id": ride.AuthorID,
		"seats":     ride.TotalSeats,
	}).Info("Ride created")
	s.publish(ctx, events.RideCreated, actor, ride, nil)
	return ride, s.done("create_ride", nil)
}

// RequestBooking records a pending booking for the actor. Seats are not
// taken until the driver accepts.
func (s *BookingService) RequestBooking(ctx context.Context, actor models.Actor, rideID string) (*models.Booking, error) {
	var (
		booking *models.Booking
		ride    *models.RideOffer
	)
	err := s.store.WithinTx(ctx, func(tx database.LedgerTx) error {
		var err error
		ride, err = tx.LockRide(rideID)
		if err != nil {
			return err
		}
		if ride.IsAuthor(actor.ID()) {
			return models.NewForbidden("You cannot book your own ride")
		}
		if !ride.Active {
			return models.NewInvalidState("Ride has already departed")
		}
		if !ride.HasFreeSeat() {
			return models.NewConflict("No seats available")
		}

		booking = &models.Booking{
			RideID:      ride.ID,
			PassengerID: actor.ID(),
			Status:      models.BookingStatusPending,
		}
		if err := tx.InsertBooking(booking); err != nil {
			if errors.Is(err, models.ErrDuplicate) {
				return models.NewConflict("Already booked")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.done("request", storeError(err, "Ride not found"))
	}

	s.publish(ctx, events.BookingRequested, actor, ride, booking)
	return booking, s.done("request", nil)
}

// AcceptBooking moves a pending booking to accepted and takes one seat
func (s *BookingService) AcceptBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	var (
		booking *models.Booking
		ride    *models.RideOffer
	)
	err := s.store.WithinTx(ctx, func(tx database.LedgerTx) error {
		var err error
		booking, ride, err = s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !ride.IsAuthor(actor.ID()) {
			return models.NewForbidden("Only the driver of this ride can accept bookings")
		}
		// a full ride is a conflict whatever the booking's state
		if err := ride.ReserveSeat(); err != nil {
			return err
		}
		if err := booking.Accept(); err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(booking.ID, booking.Status); err != nil {
			return err
		}
		return tx.SetAvailableSeats(ride.ID, ride.AvailableSeats)
	})
	if err != nil {
		return nil, s.done("accept", storeError(err, "Booking not found"))
	}

	observability.SeatsReserved.Inc()
	s.logger.WithFields(logrus.Fields{
		"booking_id":      booking.ID,
		"ride_id":         ride.ID,
		"available_seats": ride.AvailableSeats,
	}).Info("Booking accepted")
	s.publish(ctx, events.BookingAccepted, actor, ride, booking)
	return booking, s.done("accept", nil)
}

// DenyBooking moves a pending booking to denied. Seats are untouched.
func (s *BookingService) DenyBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	var (
		booking *models.Booking
		ride    *models.RideOffer
	)
	err := s.store.WithinTx(ctx, func(tx database.LedgerTx) error {
		var err error
		booking, ride, err = s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if !ride.IsAuthor(actor.ID()) {
			return models.NewForbidden("Only the driver of this ride can deny bookings")
		}
		if err := booking.Deny(); err != nil {
			return err
		}
		return tx.UpdateBookingStatus(booking.ID, booking.Status)
	})
	if err != nil {
		return nil, s.done("deny", storeError(err, "Booking not found"))
	}

	s.publish(ctx, events.BookingDenied, actor, ride, booking)
	return booking, s.done("deny", nil)
}

// DeleteBooking removes the actor's booking, returning its seat to the ride
// when it had been accepted
func (s *BookingService) DeleteBooking(ctx context.Context, actor models.Actor, bookingID string) error {
	var (
		booking *models.Booking
		ride    *models.RideOffer
	)
	released := false
	err := s.store.WithinTx(ctx, func(tx database.LedgerTx) error {
		var err error
		booking, ride, err = s.lockBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if booking.PassengerID != actor.ID() {
			return models.NewForbidden("Only the passenger can delete this booking")
		}
		if booking.HoldsSeat() {
			ride.ReleaseSeat()
			if err := tx.SetAvailableSeats(ride.ID, ride.AvailableSeats); err != nil {
				return err
			}
			released = true
		}
		return tx.DeleteBooking(booking.ID)
	})
	if err != nil {
		return s.done("delete", storeError(err, "Booking not found"))
	}

	if released {
		observability.SeatsReleased.Inc()
	}
	s.publish(ctx, events.BookingDeleted, actor, ride, booking)
	return s.done("delete", nil)
}

// CancelRide deletes a ride with all of its bookings and their reviews
func (s *BookingService) CancelRide(ctx context.Context, actor models.Actor, rideID string) error {
	var ride *models.RideOffer
	err := s.store.WithinTx(ctx, func(tx database.LedgerTx) error {
		var err error
		ride, err = tx.LockRide(rideID)
		if err != nil {
			return err
		}
		if !ride.IsAuthor(actor.ID()) && !actor.Role.CanModerate() {
			return models.NewForbidden("Only the driver of this ride can cancel it")
		}
		return tx.DeleteRide(ride.ID)
	})
	if err != nil {
		return s.done("cancel_ride", storeError(err, "Ride not found"))
	}

	s.logger.WithFields(logrus.Fields{
		"ride_id":  ride.ID,
		"actor_id": actor.ID(),
	}).Info("Ride cancelled")
	s.publish(ctx, events.RideCancelled, actor, ride, nil)
	return s.done("cancel_ride", nil)
}

// GetRide returns a ride with the passengers holding accepted seats
func (s *BookingService) GetRide(ctx context.Context, rideID string) (*models.RideDetails, error) {
	ride, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeError(err, "Ride not found")
	}
	passengers, err := s.store.ListAcceptedPassengers(ctx, rideID)
	if err != nil {
		return nil, storeError(err, "Ride not found")
	}
	return &models.RideDetails{RideOffer: *ride, PassengerIDs: passengers}, nil
}

// SearchRides lists rides on a route departing on the requested day
func (s *BookingService) SearchRides(ctx context.Context, actor models.Actor, req *models.RideSearchRequest) ([]models.RideSearchResult, error) {
	from, to, err := req.DayWindow()
	if err != nil {
		return nil, err
	}
	results, err := s.store.SearchRides(ctx, strings.TrimSpace(req.From), strings.TrimSpace(req.To), from, to, actor.ID())
	if err != nil {
		return nil, storeError(err, "Ride not found")
	}
	return results, nil
}

// ListDriverRides returns the actor's own rides, soonest first
func (s *BookingService) ListDriverRides(ctx context.Context, actor models.Actor) ([]models.RideOffer, error) {
	if !actor.Role.CanOfferRides() {
		return nil, models.NewForbidden("Only drivers have rides")
	}
	rides, err := s.store.ListRidesByAuthor(ctx, actor.ID())
	if err != nil {
		return nil, storeError(err, "Ride not found")
	}
	return rides, nil
}

// IncomingBookings returns pending requests on the actor's rides
func (s *BookingService) IncomingBookings(ctx context.Context, actor models.Actor) ([]models.BookingWithRide, error) {
	bookings, err := s.store.ListPendingBookingsForAuthor(ctx, actor.ID())
	if err != nil {
		return nil, storeError(err, "Booking not found")
	}
	return bookings, nil
}

// MyBookings returns the actor's bookings joined with their rides
func (s *BookingService) MyBookings(ctx context.Context, actor models.Actor) ([]models.BookingWithRide, error) {
	bookings, err := s.store.ListBookingsByPassenger(ctx, actor.ID())
	if err != nil {
		return nil, storeError(err, "Booking not found")
	}
	return bookings, nil
}

// lockBooking locks the booking's ride and re-reads the booking under the
// lock, so its status cannot change until the transaction ends
func (s *BookingService) lockBooking(tx database.LedgerTx, bookingID string) (*models.Booking, *models.RideOffer, error) {
	booking, err := tx.GetBooking(bookingID)
	if err != nil {
		return nil, nil, err
	}
	ride, err := tx.LockRide(booking.RideID)
	if err != nil {
		return nil, nil, err
	}
	booking, err = tx.GetBooking(bookingID)
	if err != nil {
		return nil, nil, err
	}
	return booking, ride, nil
}

func (s *BookingService) publish(ctx context.Context, eventType events.EventType, actor models.Actor, ride *models.RideOffer, booking *models.Booking) {
	event := events.BookingEvent{
		Type:           eventType,
		RideID:         ride.ID,
		ActorID:        actor.ID(),
		AvailableSeats: ride.AvailableSeats,
		OccurredAt:     time.Now().UTC(),
	}
	if booking != nil {
		event.BookingID = booking.ID
		event.PassengerID = booking.PassengerID
	}

	// the ledger change is committed; a lost event must not fail the request
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish ledger event")
	}
}

// done records the outcome of a ledger operation and returns err unchanged
func (s *BookingService) done(operation string, err error) error {
	outcome := observability.OutcomeOK
	if err != nil {
		outcome = string(models.KindOf(err))
		if models.KindOf(err) == models.KindInternal {
			s.logger.WithError(err).WithField("operation", operation).Error("Ledger operation failed")
		}
	}
	observability.BookingTransitions.WithLabelValues(operation, outcome).Inc()
	return err
}
