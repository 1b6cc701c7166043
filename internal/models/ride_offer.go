package models

import (
	"strings"
	"time"
)

// RideOffer is a trip published by a driver
type RideOffer struct {
	ID             string    `json:"id" db:"id"`
	AuthorID       string    `json:"author_id" db:"author_id"`
	Source         string    `json:"source" db:"source"`
	Destination    string    `json:"destination" db:"destination"`
	DepartureDate  int64     `json:"departure_date" db:"departure_date"` // unix seconds
	Price          int       `json:"price" db:"price"`
	TotalSeats     int       `json:"total_seats" db:"total_seats"`
	AvailableSeats int       `json:"available_seats" db:"available_seats"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// HasFreeSeat reports whether another booking can still be accepted
func (r *RideOffer) HasFreeSeat() bool {
	return r.AvailableSeats > 0
}

// IsAuthor reports whether userID published this ride
func (r *RideOffer) IsAuthor(userID string) bool {
	return r.AuthorID == userID
}

// ReserveSeat takes one seat for an accepted booking
func (r *RideOffer) ReserveSeat() error {
	if !r.HasFreeSeat() {
		return NewConflict("No seats left")
	}
	r.AvailableSeats--
	return nil
}

// ReleaseSeat returns the seat held by a removed accepted booking
func (r *RideOffer) ReleaseSeat() {
	if r.AvailableSeats < r.TotalSeats {
		r.AvailableSeats++
	}
}

// CreateRideRequest is the payload for publishing a ride
type CreateRideRequest struct {
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	DepartureDate  int64  `json:"departure_date"`
	Price          *int   `json:"price"`
	AvailableSeats *int   `json:"available_seats"`
}

// Validate validates the create ride request
func (r *CreateRideRequest) Validate() error {
	if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Destination) == "" {
		return NewInvalidInput("Source and destination required")
	}
	if r.DepartureDate <= 0 {
		return NewInvalidInput("Invalid departure date")
	}
	if r.AvailableSeats == nil || *r.AvailableSeats <= 0 {
		return NewInvalidInput("Invalid seats")
	}
	if r.Price == nil || *r.Price < 0 {
		return NewInvalidInput("Invalid price")
	}
	return nil
}

// RideDetails is a ride with the passengers holding accepted seats
type RideDetails struct {
	RideOffer
	PassengerIDs []string `json:"passenger_ids"`
}

// RideSearchRequest filters rides by route and calendar day
type RideSearchRequest struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
	Date string `form:"date" binding:"required"` // YYYY-MM-DD
}

// DayWindow returns the unix second bounds of the requested day in UTC
func (r *RideSearchRequest) DayWindow() (int64, int64, error) {
	day, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return 0, 0, NewInvalidInput("date must be formatted as YYYY-MM-DD")
	}
	start := day.UTC().Unix()
	end := day.Add(24*time.Hour - time.Second).UTC().Unix()
	return start, end, nil
}

// RideSearchResult is one search hit
type RideSearchResult struct {
	RideOffer
	AlreadyBooked bool `json:"already_booked"`
}
