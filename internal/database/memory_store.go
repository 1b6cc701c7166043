package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/triplink/triplink-backend/internal/models"
)

// MemoryStore keeps rides, bookings and reviews in process memory.
//
// It is used when no DATABASE_URL is configured and by the service tests.
// Transactions are serialised behind one mutex and work on a copy of the
// state that replaces the committed state only when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
	now   func() time.Time
}

type memoryState struct {
	rides    map[string]models.RideOffer
	bookings map[string]models.Booking
	reviews  map[string]models.Review
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			rides:    map[string]models.RideOffer{},
			bookings: map[string]models.Booking{},
			reviews:  map[string]models.Review{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		rides:    make(map[string]models.RideOffer, len(s.rides)),
		bookings: make(map[string]models.Booking, len(s.bookings)),
		reviews:  make(map[string]models.Review, len(s.reviews)),
	}
	for k, v := range s.rides {
		c.rides[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	return c
}

// CreateRide stores a new ride offer
func (s *MemoryStore) CreateRide(ctx context.Context, ride *models.RideOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	ride.CreatedAt = s.now()
	s.state.rides[ride.ID] = *ride
	return nil
}

// GetRide returns a ride by ID
func (s *MemoryStore) GetRide(ctx context.Context, rideID string) (*models.RideOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ride, ok := s.state.rides[rideID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &ride, nil
}

// GetBooking returns a booking by ID
func (s *MemoryStore) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.state.bookings[bookingID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &booking, nil
}

// ListAcceptedPassengers returns the passengers currently holding a seat
func (s *MemoryStore) ListAcceptedPassengers(ctx context.Context, rideID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.bookingsWhere(func(b models.Booking) bool {
		return b.RideID == rideID && b.HoldsSeat()
	})
	passengers := make([]string, 0, len(bookings))
	for _, b := range bookings {
		passengers = append(passengers, b.PassengerID)
	}
	return passengers, nil
}

// SearchRides finds rides on a route departing inside [from, to]
func (s *MemoryStore) SearchRides(ctx context.Context, source, destination string, from, to int64, passengerID string) ([]models.RideSearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := []models.RideSearchResult{}
	for _, ride := range s.ridesWhere(func(r models.RideOffer) bool {
		return r.Active && r.Source == source && r.Destination == destination &&
			r.DepartureDate >= from && r.DepartureDate <= to
	}) {
		booked := false
		for _, b := range s.state.bookings {
			if b.RideID == ride.ID && b.PassengerID == passengerID {
				booked = true
				break
			}
		}
		results = append(results, models.RideSearchResult{RideOffer: ride, AlreadyBooked: booked})
	}
	return results, nil
}

// DeactivateDepartedRides hides rides whose departure has passed
func (s *MemoryStore) DeactivateDepartedRides(ctx context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for id, ride := range s.state.rides {
		if ride.Active && ride.DepartureDate < before {
			ride.Active = false
			s.state.rides[id] = ride
			changed++
		}
	}
	return changed, nil
}

// ListRidesByAuthor returns a driver's rides, soonest first
func (s *MemoryStore) ListRidesByAuthor(ctx context.Context, authorID string) ([]models.RideOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ridesWhere(func(r models.RideOffer) bool { return r.AuthorID == authorID }), nil
}

// ListPendingBookingsForAuthor returns requests awaiting the driver's answer
func (s *MemoryStore) ListPendingBookingsForAuthor(ctx context.Context, authorID string) ([]models.BookingWithRide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.joinRides(s.bookingsWhere(func(b models.Booking) bool {
		return b.IsPending() && s.state.rides[b.RideID].AuthorID == authorID
	})), nil
}

// ListBookingsByPassenger returns every booking a passenger made
func (s *MemoryStore) ListBookingsByPassenger(ctx context.Context, passengerID string) ([]models.BookingWithRide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	joined := s.joinRides(s.bookingsWhere(func(b models.Booking) bool {
		return b.PassengerID == passengerID
	}))
	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].Ride.DepartureDate < joined[j].Ride.DepartureDate
	})
	return joined, nil
}

// WithinTx runs fn against a private copy of the state and commits it on success
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// CreateReview stores a review, enforcing one review per (booking, reviewer)
func (s *MemoryStore) CreateReview(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.bookings[review.BookingID]; !ok {
		return models.ErrNotFound
	}
	for _, existing := range s.state.reviews {
		if existing.BookingID == review.BookingID && existing.ReviewerID == review.ReviewerID {
			return models.ErrDuplicate
		}
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.CreatedAt = s.now()
	s.state.reviews[review.ID] = *review
	return nil
}

// GetReview returns a review by ID
func (s *MemoryStore) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.state.reviews[reviewID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &review, nil
}

// DeleteReview removes a review
func (s *MemoryStore) DeleteReview(ctx context.Context, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.reviews[reviewID]; !ok {
		return models.ErrNotFound
	}
	delete(s.state.reviews, reviewID)
	return nil
}

// ListByReviewed returns reviews a user received, newest first
func (s *MemoryStore) ListByReviewed(ctx context.Context, userID string) ([]models.Review, error) {
	return s.reviewsWhere(func(r models.Review) bool { return r.ReviewedID == userID }), nil
}

// ListByReviewer returns reviews a user wrote, newest first
func (s *MemoryStore) ListByReviewer(ctx context.Context, userID string) ([]models.Review, error) {
	return s.reviewsWhere(func(r models.Review) bool { return r.ReviewerID == userID }), nil
}

// ListByBooking returns the reviews left on a booking, newest first
func (s *MemoryStore) ListByBooking(ctx context.Context, bookingID string) ([]models.Review, error) {
	return s.reviewsWhere(func(r models.Review) bool { return r.BookingID == bookingID }), nil
}

// ridesWhere must be called with mu held
func (s *MemoryStore) ridesWhere(match func(models.RideOffer) bool) []models.RideOffer {
	rides := []models.RideOffer{}
	for _, r := range s.state.rides {
		if match(r) {
			rides = append(rides, r)
		}
	}
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].DepartureDate != rides[j].DepartureDate {
			return rides[i].DepartureDate < rides[j].DepartureDate
		}
		return rides[i].ID < rides[j].ID
	})
	return rides
}

// bookingsWhere must be called with mu held
func (s *MemoryStore) bookingsWhere(match func(models.Booking) bool) []models.Booking {
	bookings := []models.Booking{}
	for _, b := range s.state.bookings {
		if match(b) {
			bookings = append(bookings, b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].ID < bookings[j].ID
	})
	return bookings
}

func (s *MemoryStore) joinRides(bookings []models.Booking) []models.BookingWithRide {
	joined := make([]models.BookingWithRide, 0, len(bookings))
	for _, b := range bookings {
		joined = append(joined, models.BookingWithRide{Booking: b, Ride: s.state.rides[b.RideID]})
	}
	return joined
}

func (s *MemoryStore) reviewsWhere(match func(models.Review) bool) []models.Review {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews := []models.Review{}
	for _, r := range s.state.reviews {
		if match(r) {
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews
}

type memoryTx struct {
	state memoryState
	now   func() time.Time
}

func (t *memoryTx) LockRide(rideID string) (*models.RideOffer, error) {
	ride, ok := t.state.rides[rideID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &ride, nil
}

func (t *memoryTx) GetBooking(bookingID string) (*models.Booking, error) {
	booking, ok := t.state.bookings[bookingID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &booking, nil
}

func (t *memoryTx) InsertBooking(booking *models.Booking) error {
	if _, ok := t.state.rides[booking.RideID]; !ok {
		return models.ErrNotFound
	}
	for _, existing := range t.state.bookings {
		if existing.RideID == booking.RideID && existing.PassengerID == booking.PassengerID {
			return models.ErrDuplicate
		}
	}

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	booking.CreatedAt = t.now()
	t.state.bookings[booking.ID] = *booking
	return nil
}

func (t *memoryTx) UpdateBookingStatus(bookingID string, status models.BookingStatus) error {
	booking, ok := t.state.bookings[bookingID]
	if !ok {
		return models.ErrNotFound
	}
	booking.Status = status
	t.state.bookings[bookingID] = booking
	return nil
}

func (t *memoryTx) DeleteBooking(bookingID string) error {
	if _, ok := t.state.bookings[bookingID]; !ok {
		return models.ErrNotFound
	}
	for id, r := range t.state.reviews {
		if r.BookingID == bookingID {
			delete(t.state.reviews, id)
		}
	}
	delete(t.state.bookings, bookingID)
	return nil
}

func (t *memoryTx) SetAvailableSeats(rideID string, seats int) error {
	ride, ok := t.state.rides[rideID]
	if !ok {
		return models.ErrNotFound
	}
	ride.AvailableSeats = seats
	t.state.rides[rideID] = ride
	return nil
}

func (t *memoryTx) DeleteRide(rideID string) error {
	if _, ok := t.state.rides[rideID]; !ok {
		return models.ErrNotFound
	}
	for id, b := range t.state.bookings {
		if b.RideID != rideID {
			continue
		}
		for rid, r := range t.state.reviews {
			if r.BookingID == id {
				delete(t.state.reviews, rid)
			}
		}
		delete(t.state.bookings, id)
	}
	delete(t.state.rides, rideID)
	return nil
}
