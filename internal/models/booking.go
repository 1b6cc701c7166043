package models

import (
	"time"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "pending"
	BookingStatusAccepted BookingStatus = "accepted"
	BookingStatusDenied   BookingStatus = "denied"
)

// Booking represents a passenger's claim on one seat of a ride
type Booking struct {
	ID          string        `json:"id" db:"id"`
	RideID      string        `json:"ride_id" db:"ride_id"`
	PassengerID string        `json:"passenger_id" db:"passenger_id"`
	Status      BookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// IsPending reports whether the driver has not answered yet
func (b *Booking) IsPending() bool {
	return b.Status == BookingStatusPending
}

// HoldsSeat reports whether the booking occupies a seat on its ride
func (b *Booking) HoldsSeat() bool {
	return b.Status == BookingStatusAccepted
}

// Accept moves a pending booking to accepted
func (b *Booking) Accept() error {
	if !b.IsPending() {
		return NewInvalidState("Only pending bookings can be accepted")
	}
	b.Status = BookingStatusAccepted
	return nil
}

// Deny moves a pending booking to denied
func (b *Booking) Deny() error {
	if !b.IsPending() {
		return NewInvalidState("Only pending bookings can be denied")
	}
	b.Status = BookingStatusDenied
	return nil
}

// BookingWithRide joins a booking with the ride it targets
type BookingWithRide struct {
	Booking
	Ride RideOffer `json:"ride" db:"ride"`
}
