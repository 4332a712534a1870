package entity

import "errors"

var (
	// Booking errors
	ErrBookingNotFound   = errors.New("booking not found")
	ErrSlotTaken         = errors.New("requested slot is not available")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrCommentNotAllowed = errors.New("comment allowed only for completed bookings")

	// Catalog errors
	ErrServiceNotFound = errors.New("service not found")
	ErrBarberNotFound  = errors.New("barber not found")
	ErrClientNotFound  = errors.New("client not found")
	ErrClientExists    = errors.New("client already exists")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
