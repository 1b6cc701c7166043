package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triplink/triplink-backend/internal/database"
	"github.com/triplink/triplink-backend/internal/events"
	"github.com/triplink/triplink-backend/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type ledgerFixture struct {
	store     *database.MemoryStore
	publisher *recordingPublisher
	service   *BookingService
	driver    models.Actor
}

func setupLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := database.NewMemoryStore()
	publisher := &recordingPublisher{}
	return &ledgerFixture{
		store:     store,
		publisher: publisher,
		service:   NewBookingService(store, publisher, logger),
		driver:    newActor(models.RoleDriver),
	}
}

func newActor(role models.Role) models.Actor {
	return models.Actor{UserID: uuid.New(), Role: role}
}

func intPtr(v int) *int { return &v }

func (f *ledgerFixture) createRide(t *testing.T, seats int) *models.RideOffer {
	t.Helper()
	ride, err := f.service.CreateRide(context.Background(), f.driver, &models.CreateRideRequest{
		Source:         "Bucharest",
		Destination:    "Cluj",
		DepartureDate:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC).Unix(),
		Price:          intPtr(80),
		AvailableSeats: intPtr(seats),
	})
	require.NoError(t, err)
	return ride
}

func (f *ledgerFixture) seats(t *testing.T, rideID string) int {
	t.Helper()
	ride, err := f.store.GetRide(context.Background(), rideID)
	require.NoError(t, err)
	return ride.AvailableSeats
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, models.KindOf(err), err.Error())
}

func TestCreateRide(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	t.Run("Driver Creates Ride", func(t *testing.T) {
		ride := f.createRide(t, 3)
		assert.Equal(t, 3, ride.TotalSeats)
		assert.Equal(t, 3, ride.AvailableSeats)
		assert.True(t, ride.Active)
		assert.Equal(t, f.driver.ID(), ride.AuthorID)
	})

	t.Run("Passenger Forbidden", func(t *testing.T) {
		_, err := f.service.CreateRide(ctx, newActor(models.RolePassenger), &models.CreateRideRequest{
			Source: "A", Destination: "B", DepartureDate: 1, Price: intPtr(1), AvailableSeats: intPtr(1),
		})
		assertKind(t, err, models.KindForbidden)
	})

	t.Run("Invalid Input", func(t *testing.T) {
		cases := map[string]models.CreateRideRequest{
			"zero seats":     {Source: "A", Destination: "B", DepartureDate: 1, Price: intPtr(1), AvailableSeats: intPtr(0)},
			"negative price": {Source: "A", Destination: "B", DepartureDate: 1, Price: intPtr(-1), AvailableSeats: intPtr(1)},
			"no source":      {Source: " ", Destination: "B", DepartureDate: 1, Price: intPtr(1), AvailableSeats: intPtr(1)},
			"no date":        {Source: "A", Destination: "B", Price: intPtr(1), AvailableSeats: intPtr(1)},
		}
		for name, req := range cases {
			req := req
			t.Run(name, func(t *testing.T) {
				_, err := f.service.CreateRide(ctx, f.driver, &req)
				assertKind(t, err, models.KindInvalidInput)
			})
		}
	})
}

// Scenario A: request then accept takes exactly one seat
func TestRequestAndAccept(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 2)
	passenger := newActor(models.RolePassenger)

	booking, err := f.service.RequestBooking(ctx, passenger, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, 2, f.seats(t, ride.ID), "requesting must not take a seat")

	accepted, err := f.service.AcceptBooking(ctx, f.driver, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAccepted, accepted.Status)
	assert.Equal(t, 1, f.seats(t, ride.ID))

	details, err := f.service.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{passenger.ID()}, details.PassengerIDs)

	assert.Equal(t, []events.EventType{events.RideCreated, events.BookingRequested, events.BookingAccepted}, f.publisher.types())
}

// Scenario B: no seats left means no new requests
func TestRequestBooking_NoSeats(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	full := &models.RideOffer{AuthorID: f.driver.ID(), Source: "A", Destination: "B", DepartureDate: 1, TotalSeats: 1, AvailableSeats: 0, Active: true}
	require.NoError(t, f.store.CreateRide(ctx, full))

	_, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), full.ID)
	assertKind(t, err, models.KindConflict)
	assert.Contains(t, err.Error(), "No seats available")

	t.Run("After Last Seat Accepted", func(t *testing.T) {
		ride := f.createRide(t, 1)
		booking, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
		require.NoError(t, err)
		_, err = f.service.AcceptBooking(ctx, f.driver, booking.ID)
		require.NoError(t, err)

		_, err = f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
		assertKind(t, err, models.KindConflict)
	})
}

func TestRequestBooking_Errors(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 2)
	passenger := newActor(models.RolePassenger)

	_, err := f.service.RequestBooking(ctx, passenger, ride.ID)
	require.NoError(t, err)

	_, err = f.service.RequestBooking(ctx, passenger, ride.ID)
	assertKind(t, err, models.KindConflict)
	assert.Contains(t, err.Error(), "Already booked")

	_, err = f.service.RequestBooking(ctx, passenger, uuid.NewString())
	assertKind(t, err, models.KindNotFound)

	_, err = f.service.RequestBooking(ctx, f.driver, ride.ID)
	assertKind(t, err, models.KindForbidden)
}

func TestAcceptBooking_Rules(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 1)

	first, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
	require.NoError(t, err)
	second, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
	require.NoError(t, err)

	_, err = f.service.AcceptBooking(ctx, newActor(models.RoleDriver), first.ID)
	assertKind(t, err, models.KindForbidden)

	_, err = f.service.AcceptBooking(ctx, f.driver, uuid.NewString())
	assertKind(t, err, models.KindNotFound)

	_, err = f.service.AcceptBooking(ctx, f.driver, first.ID)
	require.NoError(t, err)

	// the ride is now full, which wins over the booking's state
	_, err = f.service.AcceptBooking(ctx, f.driver, first.ID)
	assertKind(t, err, models.KindConflict)

	_, err = f.service.AcceptBooking(ctx, f.driver, second.ID)
	assertKind(t, err, models.KindConflict)
	assert.Contains(t, err.Error(), "No seats left")
	assert.Equal(t, 0, f.seats(t, ride.ID))

	stored, err := f.store.GetBooking(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, stored.Status, "failed accept must not change the booking")
}

func TestAcceptBooking_FullRideIsAlwaysConflict(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 1)

	taken, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
	require.NoError(t, err)
	denied, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
	require.NoError(t, err)

	_, err = f.service.DenyBooking(ctx, f.driver, denied.ID)
	require.NoError(t, err)
	_, err = f.service.AcceptBooking(ctx, f.driver, taken.ID)
	require.NoError(t, err)

	for _, id := range []string{taken.ID, denied.ID} {
		_, err = f.service.AcceptBooking(ctx, f.driver, id)
		assertKind(t, err, models.KindConflict)
	}
	assert.Equal(t, 0, f.seats(t, ride.ID))

	stored, err := f.store.GetBooking(ctx, denied.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusDenied, stored.Status)
}

func TestDenyBooking(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 2)
	booking, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
	require.NoError(t, err)

	_, err = f.service.DenyBooking(ctx, newActor(models.RolePassenger), booking.ID)
	assertKind(t, err, models.KindForbidden)

	denied, err := f.service.DenyBooking(ctx, f.driver, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusDenied, denied.Status)
	assert.Equal(t, 2, f.seats(t, ride.ID))

	_, err = f.service.AcceptBooking(ctx, f.driver, booking.ID)
	assertKind(t, err, models.KindInvalidState)
	_, err = f.service.DenyBooking(ctx, f.driver, booking.ID)
	assertKind(t, err, models.KindInvalidState)
}

func TestDeleteBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Accepted Returns Seat", func(t *testing.T) {
		f := setupLedger(t)
		ride := f.createRide(t, 2)
		passenger := newActor(models.RolePassenger)
		booking, err := f.service.RequestBooking(ctx, passenger, ride.ID)
		require.NoError(t, err)
		_, err = f.service.AcceptBooking(ctx, f.driver, booking.ID)
		require.NoError(t, err)
		require.Equal(t, 1, f.seats(t, ride.ID))

		require.NoError(t, f.service.DeleteBooking(ctx, passenger, booking.ID))
		assert.Equal(t, 2, f.seats(t, ride.ID))

		_, err = f.store.GetBooking(ctx, booking.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("Pending And Denied Keep Seats", func(t *testing.T) {
		f := setupLedger(t)
		ride := f.createRide(t, 2)
		p1, p2 := newActor(models.RolePassenger), newActor(models.RolePassenger)

		pending, err := f.service.RequestBooking(ctx, p1, ride.ID)
		require.NoError(t, err)
		denied, err := f.service.RequestBooking(ctx, p2, ride.ID)
		require.NoError(t, err)
		_, err = f.service.DenyBooking(ctx, f.driver, denied.ID)
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteBooking(ctx, p1, pending.ID))
		require.NoError(t, f.service.DeleteBooking(ctx, p2, denied.ID))
		assert.Equal(t, 2, f.seats(t, ride.ID))
	})

	t.Run("Only Passenger", func(t *testing.T) {
		f := setupLedger(t)
		ride := f.createRide(t, 2)
		booking, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
		require.NoError(t, err)

		assertKind(t, f.service.DeleteBooking(ctx, f.driver, booking.ID), models.KindForbidden)
		assertKind(t, f.service.DeleteBooking(ctx, f.driver, uuid.NewString()), models.KindNotFound)
	})
}

func TestCancelRide(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	ride := f.createRide(t, 2)
	passenger := newActor(models.RolePassenger)
	booking, err := f.service.RequestBooking(ctx, passenger, ride.ID)
	require.NoError(t, err)

	assertKind(t, f.service.CancelRide(ctx, passenger, ride.ID), models.KindForbidden)
	require.NoError(t, f.service.CancelRide(ctx, f.driver, ride.ID))

	_, err = f.service.GetRide(ctx, ride.ID)
	assertKind(t, err, models.KindNotFound)
	_, err = f.store.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assertKind(t, f.service.CancelRide(ctx, f.driver, ride.ID), models.KindNotFound)

	t.Run("Admin May Cancel Any Ride", func(t *testing.T) {
		other := f.createRide(t, 1)
		require.NoError(t, f.service.CancelRide(ctx, newActor(models.RoleAdmin), other.ID))
	})
}

func TestSearchAndListings(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 3)
	passenger := newActor(models.RolePassenger)

	booking, err := f.service.RequestBooking(ctx, passenger, ride.ID)
	require.NoError(t, err)

	results, err := f.service.SearchRides(ctx, passenger, &models.RideSearchRequest{From: "Bucharest", To: "Cluj", Date: "2025-06-01"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].AlreadyBooked)

	results, err = f.service.SearchRides(ctx, passenger, &models.RideSearchRequest{From: "Bucharest", To: "Cluj", Date: "2025-06-02"})
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = f.service.SearchRides(ctx, passenger, &models.RideSearchRequest{From: "Bucharest", To: "Cluj", Date: "01/06/2025"})
	assertKind(t, err, models.KindInvalidInput)

	rides, err := f.service.ListDriverRides(ctx, f.driver)
	require.NoError(t, err)
	require.Len(t, rides, 1)
	_, err = f.service.ListDriverRides(ctx, passenger)
	assertKind(t, err, models.KindForbidden)

	incoming, err := f.service.IncomingBookings(ctx, f.driver)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, booking.ID, incoming[0].ID)
	assert.Equal(t, ride.ID, incoming[0].Ride.ID)

	mine, err := f.service.MyBookings(ctx, passenger)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Cluj", mine[0].Ride.Destination)
}

func TestAcceptBooking_ConcurrentLastSeat(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	ride := f.createRide(t, 1)

	const n = 12
	bookingIDs := make([]string, n)
	for i := range bookingIDs {
		b, err := f.service.RequestBooking(ctx, newActor(models.RolePassenger), ride.ID)
		require.NoError(t, err)
		bookingIDs[i] = b.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for _, id := range bookingIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			_, err := f.service.AcceptBooking(ctx, f.driver, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case models.IsKind(err, models.KindConflict):
				conflicts++
			}
		}(id)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 0, f.seats(t, ride.ID))
}
