// Package service holds the booking orchestrator: it reserves rooms, opens
// payments with the gateway and settles bookings when a payment reference
// comes back.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/payment"
	"github.com/iliyamo/leemont-hostel/internal/queue"
	"github.com/iliyamo/leemont-hostel/internal/repository"
)

// RoomReader is the part of the inventory store the orchestrator reads.
type RoomReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
}

// Ledger is the booking store.
type Ledger interface {
	Create(ctx context.Context, b *model.Booking) error
	FindByReference(ctx context.Context, reference string) (*model.Booking, error)
	FindByID(ctx context.Context, id uint64) (*model.Booking, error)
	FindByUser(ctx context.Context, userID uint64) ([]*model.Booking, error)
	CompareAndSetStatus(ctx context.Context, id uint64, from, to model.BookingStatus) (bool, error)
	MarkRefundRequested(ctx context.Context, id uint64) (bool, error)
}

// Settler approves a pending booking and takes one room unit atomically.
// It returns repository.ErrBookingNotPending or repository.ErrRoomExhausted
// without writing anything when it cannot.
type Settler interface {
	Approve(ctx context.Context, bookingID, roomID uint64) error
}

// Gateway opens and verifies payments.
type Gateway interface {
	Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*payment.VerifyResult, error)
}

// EventPublisher announces settled bookings.  Failures are logged only.
type EventPublisher interface {
	PublishBookingApproved(ctx context.Context, ev queue.BookingApprovedEvent) error
	PublishRefundRequired(ctx context.Context, ev queue.RefundRequiredEvent) error
}

// UserReader resolves the email of a booking's owner for notifications.
type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Failure reasons reported with a failed confirmation.
const (
	ReasonDeclined       = "payment_not_successful"
	ReasonAmountMismatch = "amount_mismatch"
	ReasonRoomExhausted  = "room_exhausted"
	ReasonBookingFailed  = "booking_already_failed"
)

// Customer is the authenticated actor making a booking.
type Customer struct {
	ID      uint64
	Email   string
	IsAdmin bool
}

// ReserveInput is a booking request.  Only the calendar date of CheckIn and
// CheckOut is used.
type ReserveInput struct {
	Customer Customer
	RoomID   uint64
	CheckIn  time.Time
	CheckOut time.Time
}

// ReserveResult tells the customer where to pay.  A booking with nothing to
// pay comes back already approved and without an AuthorizationURL.
type ReserveResult struct {
	Booking          *model.Booking
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// ConfirmResult is the settled state of a booking after a confirmation.
// Reason is set when Status is failed.
type ConfirmResult struct {
	Booking *model.Booking
	Status  model.BookingStatus
	Reason  string
}

// BookingConfig carries the orchestrator settings.
type BookingConfig struct {
	// CallbackURL is sent to the gateway as the post-payment redirect.
	CallbackURL string
	// Location decides what "today" is for check-in validation.
	Location *time.Location
	Log      logrus.FieldLogger
}

// BookingService is the booking orchestrator.  Every status change goes
// through the ledger's compare-and-set or the settler, so concurrent
// confirmations of one reference take a room unit at most once.
type BookingService struct {
	rooms   RoomReader
	ledger  Ledger
	settler Settler
	gateway Gateway
	events  EventPublisher
	users   UserReader

	callbackURL string
	loc         *time.Location
	log         logrus.FieldLogger
	now         func() time.Time
	newRef      func() string
}

// NewBookingService wires the orchestrator.  events and users may be nil.
func NewBookingService(rooms RoomReader, ledger Ledger, settler Settler, gateway Gateway,
	events EventPublisher, users UserReader, cfg BookingConfig) *BookingService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BookingService{
		rooms:       rooms,
		ledger:      ledger,
		settler:     settler,
		gateway:     gateway,
		events:      events,
		users:       users,
		callbackURL: cfg.CallbackURL,
		loc:         loc,
		log:         log.WithField("component", "booking"),
		now:         time.Now,
		newRef:      uuid.NewString,
	}
}

// Reserve validates the request, records a pending booking and opens a
// payment for it.  No room unit is taken here: availability is checked,
// not held, and only a confirmed payment takes a unit.
func (s *BookingService) Reserve(ctx context.Context, in ReserveInput) (*ReserveResult, error) {
	if in.Customer.IsAdmin {
		return nil, ErrForbidden
	}

	room, err := s.rooms.GetByID(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load room: %w", err)
	}
	if room.IsDeleted {
		return nil, ErrNotFound
	}

	checkIn, checkOut := civilDate(in.CheckIn), civilDate(in.CheckOut)
	if !checkOut.After(checkIn) {
		return nil, &ValidationError{Field: "check_out_date", Message: "must be after check-in date"}
	}
	if checkIn.Before(civilDate(s.now().In(s.loc))) {
		return nil, &ValidationError{Field: "check_in_date", Message: "cannot be in the past"}
	}
	if room.AvailableUnits == 0 {
		return nil, ErrExhausted
	}

	b := &model.Booking{
		UserID:           in.Customer.ID,
		RoomID:           room.ID,
		CheckInDate:      checkIn,
		CheckOutDate:     checkOut,
		TotalPriceMinor:  room.PriceMinor,
		PaymentReference: s.newRef(),
		Status:           model.BookingPendingPayment,
		CreatedAt:        s.now(),
	}
	if err := s.ledger.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicateReference) {
			s.log.WithField("reference", b.PaymentReference).Error("generated payment reference already exists")
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	log := s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"reference":  b.PaymentReference,
		"room_id":    b.RoomID,
		"user_id":    b.UserID,
	})

	if b.TotalPriceMinor == 0 {
		res, err := s.settleFree(context.WithoutCancel(ctx), b)
		if err != nil {
			return nil, err
		}
		if res.Status != model.BookingApproved {
			return nil, ErrExhausted
		}
		return &ReserveResult{Booking: res.Booking, Reference: b.PaymentReference}, nil
	}

	started, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:       in.Customer.Email,
		AmountMinor: b.TotalPriceMinor,
		Reference:   b.PaymentReference,
		CallbackURL: s.callbackURL,
		Metadata: map[string]any{
			"booking_id": b.ID,
			"room_id":    b.RoomID,
			"user_id":    b.UserID,
		},
	})
	if err != nil {
		log.WithError(err).Warn("payment initialization failed")
		// retire the booking so a retry starts from a fresh reference
		if _, casErr := s.ledger.CompareAndSetStatus(context.WithoutCancel(ctx), b.ID,
			model.BookingPendingPayment, model.BookingFailed); casErr != nil {
			log.WithError(casErr).Error("mark booking failed")
		} else {
			b.Status = model.BookingFailed
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	log.Info("booking reserved, awaiting payment")
	return &ReserveResult{
		Booking:          b,
		AuthorizationURL: started.AuthorizationURL,
		AccessCode:       started.AccessCode,
		Reference:        b.PaymentReference,
	}, nil
}

// Confirm settles the booking owning reference from the gateway's verified
// outcome.  The reference comes from an untrusted caller: only the
// verification result decides whether the booking was paid.  Confirm may
// be called any number of times and converges on one terminal state.
func (s *BookingService) Confirm(ctx context.Context, reference string) (*ConfirmResult, error) {
	b, err := s.ledger.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			s.log.WithField("reference", reference).Warn("confirmation for unknown reference")
			return nil, ErrUnknownReference
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if b.Status == model.BookingApproved {
		return &ConfirmResult{Booking: b, Status: b.Status}, nil
	}
	if b.TotalPriceMinor == 0 {
		// the gateway never saw this reference
		return s.settleFree(context.WithoutCancel(ctx), b)
	}

	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.log.WithError(err).WithField("reference", reference).Warn("payment verification failed")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	// Settlement writes must not be abandoned halfway by a client hang-up.
	ctx = context.WithoutCancel(ctx)
	switch {
	case !v.Succeeded:
		return s.fail(ctx, b, ReasonDeclined, false)
	case v.AmountMinor != b.TotalPriceMinor:
		s.log.WithFields(logrus.Fields{
			"reference": reference,
			"expected":  b.TotalPriceMinor,
			"paid":      v.AmountMinor,
		}).Error("verified amount does not match booking total")
		return s.fail(ctx, b, ReasonAmountMismatch, true)
	case b.Status == model.BookingFailed:
		return s.fail(ctx, b, ReasonBookingFailed, true)
	}
	return s.approve(ctx, b)
}

func (s *BookingService) approve(ctx context.Context, b *model.Booking) (*ConfirmResult, error) {
	err := s.settler.Approve(ctx, b.ID, b.RoomID)
	switch {
	case err == nil:
		b.Status = model.BookingApproved
		b.UpdatedAt = s.now()
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"reference":  b.PaymentReference,
			"room_id":    b.RoomID,
		}).Info("booking approved")
		s.publishApproved(ctx, b)
		return &ConfirmResult{Booking: b, Status: model.BookingApproved}, nil
	case errors.Is(err, repository.ErrBookingNotPending):
		// another confirmation settled it first
		cur, ferr := s.ledger.FindByID(ctx, b.ID)
		if ferr != nil {
			return nil, fmt.Errorf("reload booking: %w", ferr)
		}
		if cur.Status == model.BookingFailed {
			return s.fail(ctx, cur, ReasonBookingFailed, true)
		}
		return &ConfirmResult{Booking: cur, Status: cur.Status}, nil
	case errors.Is(err, repository.ErrRoomExhausted):
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"reference":  b.PaymentReference,
			"room_id":    b.RoomID,
		}).Error("payment verified but room has no unit left")
		return s.fail(ctx, b, ReasonRoomExhausted, true)
	default:
		return nil, fmt.Errorf("approve booking: %w", err)
	}
}

// settleFree approves a booking with nothing to pay without asking the
// gateway.  No money was taken, so a failure never requests a refund.
func (s *BookingService) settleFree(ctx context.Context, b *model.Booking) (*ConfirmResult, error) {
	switch b.Status {
	case model.BookingApproved:
		return &ConfirmResult{Booking: b, Status: b.Status}, nil
	case model.BookingFailed:
		return &ConfirmResult{Booking: b, Status: b.Status, Reason: ReasonBookingFailed}, nil
	}
	err := s.settler.Approve(ctx, b.ID, b.RoomID)
	switch {
	case err == nil:
		b.Status = model.BookingApproved
		b.UpdatedAt = s.now()
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"reference":  b.PaymentReference,
			"room_id":    b.RoomID,
		}).Info("free booking approved")
		s.publishApproved(ctx, b)
		return &ConfirmResult{Booking: b, Status: model.BookingApproved}, nil
	case errors.Is(err, repository.ErrBookingNotPending):
		cur, ferr := s.ledger.FindByID(ctx, b.ID)
		if ferr != nil {
			return nil, fmt.Errorf("reload booking: %w", ferr)
		}
		return s.settleFree(ctx, cur)
	case errors.Is(err, repository.ErrRoomExhausted):
		return s.fail(ctx, b, ReasonRoomExhausted, false)
	default:
		return nil, fmt.Errorf("approve booking: %w", err)
	}
}

// fail moves a pending booking to failed and reports the outcome.  A
// booking that is no longer pending keeps its state.  refund marks a
// captured payment that must be returned to the customer.
func (s *BookingService) fail(ctx context.Context, b *model.Booking, reason string, refund bool) (*ConfirmResult, error) {
	if b.Status == model.BookingPendingPayment {
		ok, err := s.ledger.CompareAndSetStatus(ctx, b.ID, model.BookingPendingPayment, model.BookingFailed)
		if err != nil {
			return nil, fmt.Errorf("mark booking failed: %w", err)
		}
		if ok {
			b.Status = model.BookingFailed
			b.UpdatedAt = s.now()
		} else {
			cur, err := s.ledger.FindByID(ctx, b.ID)
			if err != nil {
				return nil, fmt.Errorf("reload booking: %w", err)
			}
			b = cur
		}
	}
	if b.Status == model.BookingApproved {
		return &ConfirmResult{Booking: b, Status: b.Status}, nil
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"reference":  b.PaymentReference,
		"reason":     reason,
	}).Info("booking failed")
	if refund {
		s.publishRefund(ctx, b, reason)
	}
	return &ConfirmResult{Booking: b, Status: b.Status, Reason: reason}, nil
}

func (s *BookingService) publishApproved(ctx context.Context, b *model.Booking) {
	if s.events == nil {
		return
	}
	ev := queue.BookingApprovedEvent{
		BookingID:       b.ID,
		UserID:          b.UserID,
		RoomID:          b.RoomID,
		CheckIn:         b.CheckInDate.Format(time.DateOnly),
		CheckOut:        b.CheckOutDate.Format(time.DateOnly),
		TotalPriceMinor: b.TotalPriceMinor,
		Reference:       b.PaymentReference,
		ApprovedAt:      s.now().UTC().Format(time.RFC3339),
	}
	if room, err := s.rooms.GetByID(ctx, b.RoomID); err == nil {
		ev.RoomName = room.Name
	}
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, b.UserID); err == nil {
			ev.Email = u.Email
		}
	}
	if err := s.events.PublishBookingApproved(ctx, ev); err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking approved")
	}
}

// publishRefund asks for the booking's payment to be returned.  Only the
// first request per booking is published; replayed confirmations of the
// same failed booking stay quiet.
func (s *BookingService) publishRefund(ctx context.Context, b *model.Booking, reason string) {
	if s.events == nil {
		return
	}
	log := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "reference": b.PaymentReference})
	first, err := s.ledger.MarkRefundRequested(ctx, b.ID)
	if err != nil {
		log.WithError(err).Error("record refund request")
		return
	}
	if !first {
		log.Debug("refund already requested")
		return
	}
	ev := queue.RefundRequiredEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		RoomID:      b.RoomID,
		Reference:   b.PaymentReference,
		AmountMinor: b.TotalPriceMinor,
		Reason:      reason,
		DetectedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishRefundRequired(ctx, ev); err != nil {
		log.WithError(err).Error("publish refund required, refund must be issued by hand")
	}
}

// ListForUser returns the user's bookings, newest first.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	return s.ledger.FindByUser(ctx, userID)
}

// GetForUser returns a booking owned by userID.
func (s *BookingService) GetForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := s.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	b, err := s.ledger.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// civilDate keeps the calendar date of t as UTC midnight.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
