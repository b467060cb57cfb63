package model

import "time"

// BookingStatus is the payment lifecycle state of a booking.
type BookingStatus string

const (
	// BookingPendingPayment is the initial state; the payment has been
	// initialised but not yet verified.
	BookingPendingPayment BookingStatus = "pending_payment"
	// BookingApproved means the payment was verified and one unit of the
	// room was taken.
	BookingApproved BookingStatus = "approved"
	// BookingFailed means the payment was not successful or could not be
	// applied.
	BookingFailed BookingStatus = "failed"
)

// Booking records a user's reservation of a room for an academic year.
// PaymentReference is the only key shared with the payment gateway and
// is unique across all bookings.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – user who made the booking.
//  RoomID           – room being booked.
//  CheckInDate      – first night, date only (UTC midnight).
//  CheckOutDate     – departure date, strictly after CheckInDate.
//  TotalPriceMinor  – price fixed at creation, in minor currency units.
//  PaymentReference – unique correlation key with the gateway.
//  Status           – pending_payment, approved or failed.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last status change.
type Booking struct {
	ID               uint64        `json:"id"`                 // bookings.id
	UserID           uint64        `json:"user_id"`            // bookings.user_id
	RoomID           uint64        `json:"room_id"`            // bookings.room_id
	CheckInDate      time.Time     `json:"check_in_date"`      // bookings.check_in_date
	CheckOutDate     time.Time     `json:"check_out_date"`     // bookings.check_out_date
	TotalPriceMinor  int64         `json:"total_price_minor"`  // bookings.total_price_minor
	PaymentReference string        `json:"payment_reference"`  // bookings.payment_reference
	Status           BookingStatus `json:"status"`             // bookings.status
	CreatedAt        time.Time     `json:"created_at"`         // bookings.created_at
	UpdatedAt        time.Time     `json:"updated_at"`         // bookings.updated_at
}
