// Command test-services drives one ride through the booking and review
// lifecycle against the configured store and prints each step.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/config"
	"github.com/triplink/triplink-backend/internal/database"
	"github.com/triplink/triplink-backend/internal/events"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/services"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fail("load config", err)
	}

	var (
		ledger  database.LedgerStore
		reviews database.ReviewStore
	)
	if cfg.Database.URL != "" {
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			fail("connect to database", err)
		}
		defer db.Close()
		ledger = database.NewLedgerRepository(db.DB)
		reviews = database.NewReviewRepository(db.DB)
		fmt.Println("Using PostgreSQL")
	} else {
		memory := database.NewMemoryStore()
		ledger, reviews = memory, memory
		fmt.Println("Using the in-memory store")
	}

	ctx := context.Background()
	bookings := services.NewBookingService(ledger, events.NewLogPublisher(logger), logger)
	reviewService := services.NewReviewService(ledger, reviews, logger)

	driver := models.Actor{UserID: uuid.New(), Role: models.RoleDriver}
	passenger := models.Actor{UserID: uuid.New(), Role: models.RolePassenger}
	price, seats := 60, 2

	ride, err := bookings.CreateRide(ctx, driver, &models.CreateRideRequest{
		Source:         "Bucharest",
		Destination:    "Brasov",
		DepartureDate:  time.Now().Add(24 * time.Hour).Unix(),
		Price:          &price,
		AvailableSeats: &seats,
	})
	step("create ride", err)
	defer func() {
		step("cancel ride", bookings.CancelRide(ctx, driver, ride.ID))
	}()

	booking, err := bookings.RequestBooking(ctx, passenger, ride.ID)
	step("request booking", err)

	_, err = bookings.RequestBooking(ctx, passenger, ride.ID)
	expect("duplicate request is rejected", err, models.KindConflict)

	_, err = bookings.AcceptBooking(ctx, driver, booking.ID)
	step("accept booking", err)

	details, err := bookings.GetRide(ctx, ride.ID)
	step("read ride", err)
	fmt.Printf("   available seats: %d of %d, passengers: %v\n", details.AvailableSeats, details.TotalSeats, details.PassengerIDs)

	rating := 5
	_, err = reviewService.CreateReview(ctx, passenger, &models.CreateReviewRequest{BookingID: booking.ID, Rating: &rating})
	step("review driver", err)

	summary, err := reviewService.ListReviewsFor(ctx, driver.ID())
	step("driver summary", err)
	fmt.Printf("   average %.2f over %d review(s)\n", summary.AverageRating, summary.TotalReviews)

	fmt.Println("All steps passed")
}

func step(name string, err error) {
	if err != nil {
		fail(name, err)
	}
	fmt.Printf("ok  %s\n", name)
}

func expect(name string, err error, kind models.ErrorKind) {
	if !models.IsKind(err, kind) {
		fail(name, fmt.Errorf("expected %s, got %v", kind, err))
	}
	fmt.Printf("ok  %s\n", name)
}

func fail(name string, err error) {
	fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, err)
	os.Exit(1)
}
