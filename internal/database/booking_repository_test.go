package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triplink/triplink-backend/internal/models"
)

var rideRowColumns = []string{
	"id", "author_id", "source", "destination", "departure_date", "price",
	"total_seats", "available_seats", "active", "created_at",
}

func setupLedgerRepo(t *testing.T) (*LedgerRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewLedgerRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestLedgerRepository_CreateRide(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		ride := &models.RideOffer{
			AuthorID: "driver-1", Source: "Cluj", Destination: "Brasov",
			DepartureDate: 1_700_000_000, Price: 50, TotalSeats: 3, AvailableSeats: 3, Active: true,
		}

		mock.ExpectQuery(`INSERT INTO ride_offers`).
			WithArgs(sqlmock.AnyArg(), "driver-1", "Cluj", "Brasov", int64(1_700_000_000), 50, 3, 3, true).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

		err := repo.CreateRide(ctx, ride)
		require.NoError(t, err)
		assert.NotEmpty(t, ride.ID)
		assert.Equal(t, now, ride.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO ride_offers`).WillReturnError(fmt.Errorf("database error"))

		err := repo.CreateRide(ctx, &models.RideOffer{AuthorID: "driver-1"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create ride")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetRide(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM ride_offers WHERE id = \$1`).
			WithArgs("ride-1").
			WillReturnRows(sqlmock.NewRows(rideRowColumns).
				AddRow("ride-1", "driver-1", "Cluj", "Brasov", int64(1_700_000_000), 50, 3, 2, true, time.Now()))

		ride, err := repo.GetRide(ctx, "ride-1")
		require.NoError(t, err)
		assert.Equal(t, "driver-1", ride.AuthorID)
		assert.Equal(t, 2, ride.AvailableSeats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM ride_offers WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(rideRowColumns))

		ride, err := repo.GetRide(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, ride)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("Malformed ID", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM ride_offers WHERE id = \$1`).
			WithArgs("abc").
			WillReturnError(&pq.Error{Code: pqInvalidText, Message: `invalid input syntax for type uuid: "abc"`})

		ride, err := repo.GetRide(ctx, "abc")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, ride)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other Driver Error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM ride_offers WHERE id = \$1`).
			WithArgs("ride-1").
			WillReturnError(&pq.Error{Code: "57P01"})

		_, err := repo.GetRide(ctx, "ride-1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_TxGetBookingMalformedID(t *testing.T) {
	repo, mock := setupLedgerRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1`).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: pqInvalidText})
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx LedgerTx) error {
		_, err := tx.GetBooking("not-a-uuid")
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_SearchRides(t *testing.T) {
	repo, mock := setupLedgerRepo(t)

	columns := append(append([]string{}, rideRowColumns...), "already_booked")
	mock.ExpectQuery(`SELECT (.+) FROM ride_offers r`).
		WithArgs("Cluj", "Brasov", int64(100), int64(200), "passenger-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("ride-1", "driver-1", "Cluj", "Brasov", int64(150), 50, 3, 3, true, time.Now(), true))

	results, err := repo.SearchRides(context.Background(), "Cluj", "Brasov", 100, 200, "passenger-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ride-1", results[0].ID)
	assert.True(t, results[0].AlreadyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ListBookingsByPassenger(t *testing.T) {
	repo, mock := setupLedgerRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM bookings b\s+JOIN ride_offers r`).
		WithArgs("passenger-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ride_id", "passenger_id", "status", "created_at",
			"ride.id", "ride.author_id", "ride.source", "ride.destination", "ride.departure_date",
			"ride.price", "ride.total_seats", "ride.available_seats", "ride.active", "ride.created_at",
		}).AddRow(
			"booking-1", "ride-1", "passenger-1", "accepted", now,
			"ride-1", "driver-1", "Cluj", "Brasov", int64(150), 50, 3, 2, true, now,
		))

	bookings, err := repo.ListBookingsByPassenger(context.Background(), "passenger-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingStatusAccepted, bookings[0].Status)
	assert.Equal(t, "Brasov", bookings[0].Ride.Destination)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commits Seat Change", func(t *testing.T) {
		repo, mock := setupLedgerRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM ride_offers WHERE id = \$1 FOR UPDATE`).
			WithArgs("ride-1").
			WillReturnRows(sqlmock.NewRows(rideRowColumns).
				AddRow("ride-1", "driver-1", "Cluj", "Brasov", int64(150), 50, 3, 1, true, time.Now()))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("booking-1", models.BookingStatusAccepted).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE ride_offers SET available_seats`).
			WithArgs("ride-1", 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.WithinTx(ctx, func(tx LedgerTx) error {
			ride, err := tx.LockRide("ride-1")
			if err != nil {
				return err
			}
			if err := ride.ReserveSeat(); err != nil {
				return err
			}
			if err := tx.UpdateBookingStatus("booking-1", models.BookingStatusAccepted); err != nil {
				return err
			}
			return tx.SetAvailableSeats(ride.ID, ride.AvailableSeats)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls Back On Error", func(t *testing.T) {
		repo, mock := setupLedgerRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FOR UPDATE`).
			WithArgs("ride-1").
			WillReturnRows(sqlmock.NewRows(rideRowColumns).
				AddRow("ride-1", "driver-1", "Cluj", "Brasov", int64(150), 50, 3, 0, true, time.Now()))
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx LedgerTx) error {
			ride, err := tx.LockRide("ride-1")
			if err != nil {
				return err
			}
			return ride.ReserveSeat()
		})
		assert.True(t, models.IsKind(err, models.KindConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Booking", func(t *testing.T) {
		repo, mock := setupLedgerRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WithArgs(sqlmock.AnyArg(), "ride-1", "passenger-1", models.BookingStatusPending).
			WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "uq_booking_ride_passenger"})
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx LedgerTx) error {
			return tx.InsertBooking(&models.Booking{
				RideID: "ride-1", PassengerID: "passenger-1", Status: models.BookingStatusPending,
			})
		})
		assert.ErrorIs(t, err, models.ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete Ride Cascades", func(t *testing.T) {
		repo, mock := setupLedgerRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM reviews WHERE booking_id IN`).WithArgs("ride-1").WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM bookings WHERE ride_id`).WithArgs("ride-1").WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`DELETE FROM ride_offers WHERE id`).WithArgs("ride-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.WithinTx(ctx, func(tx LedgerTx) error {
			return tx.DeleteRide("ride-1")
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Booking", func(t *testing.T) {
		repo, mock := setupLedgerRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("missing", models.BookingStatusDenied).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.WithinTx(ctx, func(tx LedgerTx) error {
			return tx.UpdateBookingStatus("missing", models.BookingStatusDenied)
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_DeactivateDepartedRides(t *testing.T) {
	repo, mock := setupLedgerRepo(t)

	mock.ExpectExec(`UPDATE ride_offers SET active = FALSE WHERE active AND departure_date < \$1`).
		WithArgs(int64(1_700_000_000)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	changed, err := repo.DeactivateDepartedRides(context.Background(), 1_700_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 4, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
