// Package queue defines the booking events exchanged over RabbitMQ, the
// publisher used by the booking service and the background consumer.
package queue

// Queue names.  Events go through the default exchange with the queue name
// as routing key.
const (
	BookingApprovedQueue = "booking.approved"
	RefundRequiredQueue  = "booking.refund_required"
)

// BookingApprovedEvent is published once per booking, right after its
// payment was verified and a room unit was taken for it.
type BookingApprovedEvent struct {
	BookingID       uint64 `json:"booking_id"`
	UserID          uint64 `json:"user_id"`
	Email           string `json:"email"`
	RoomID          uint64 `json:"room_id"`
	RoomName        string `json:"room_name"`
	CheckIn         string `json:"check_in"`  // YYYY-MM-DD
	CheckOut        string `json:"check_out"` // YYYY-MM-DD
	TotalPriceMinor int64  `json:"total_price_minor"`
	Reference       string `json:"reference"`
	ApprovedAt      string `json:"approved_at"` // RFC3339
}

// RefundRequiredEvent is published when the gateway reports a successful
// charge that could not be turned into an approved booking.  Operators
// refund the customer out of band.
type RefundRequiredEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	RoomID      uint64 `json:"room_id"`
	Reference   string `json:"reference"`
	AmountMinor int64  `json:"amount_minor"`
	Reason      string `json:"reason"`
	DetectedAt  string `json:"detected_at"` // RFC3339
}
