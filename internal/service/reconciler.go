package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/leemont-hostel/internal/model"
)

// PendingLister lists bookings still waiting for payment, least recently
// touched first.  TouchPending moves a booking to the back of that order.
type PendingLister interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Booking, error)
	TouchPending(ctx context.Context, id uint64) error
}

// Confirmer settles a booking by reference.
type Confirmer interface {
	Confirm(ctx context.Context, reference string) (*ConfirmResult, error)
}

// SweepSummary counts the outcomes of one reconciliation run.
type SweepSummary struct {
	Checked  int
	Approved int
	Failed   int
	Pending  int
}

// Reconciler re-drives stale pending bookings through Confirm for
// customers who paid but never came back through the callback, or who
// abandoned the payment.  It never changes a booking itself.
type Reconciler struct {
	pending    PendingLister
	confirmer  Confirmer
	staleAfter time.Duration
	batch      int
	log        logrus.FieldLogger
	now        func() time.Time
}

// NewReconciler builds a Reconciler checking bookings pending for longer
// than staleAfter, at most batch per run.
func NewReconciler(pending PendingLister, confirmer Confirmer, staleAfter time.Duration, batch int, log logrus.FieldLogger) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Hour
	}
	if batch <= 0 {
		batch = 50
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reconciler{
		pending:    pending,
		confirmer:  confirmer,
		staleAfter: staleAfter,
		batch:      batch,
		log:        log.WithField("component", "reconciler"),
		now:        time.Now,
	}
}

// Run performs one sweep.  Bookings the gateway could not answer for stay
// pending and are tried again only after every other stale booking has had
// its turn.
func (r *Reconciler) Run(ctx context.Context) (SweepSummary, error) {
	var sum SweepSummary
	stale, err := r.pending.ListPendingBefore(ctx, r.now().Add(-r.staleAfter), r.batch)
	if err != nil {
		return sum, err
	}
	for _, b := range stale {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Checked++
		if err := r.pending.TouchPending(ctx, b.ID); err != nil {
			r.log.WithError(err).WithField("booking_id", b.ID).Warn("touch pending booking")
		}
		res, err := r.confirmer.Confirm(ctx, b.PaymentReference)
		if err != nil {
			sum.Pending++
			entry := r.log.WithError(err).WithField("reference", b.PaymentReference)
			if errors.Is(err, ErrGatewayUnavailable) {
				entry.Debug("stale booking left pending")
			} else {
				entry.Warn("reconcile booking")
			}
			continue
		}
		switch res.Status {
		case model.BookingApproved:
			sum.Approved++
		case model.BookingFailed:
			sum.Failed++
		default:
			sum.Pending++
		}
	}
	if sum.Checked > 0 {
		r.log.WithFields(logrus.Fields{
			"checked":  sum.Checked,
			"approved": sum.Approved,
			"failed":   sum.Failed,
			"pending":  sum.Pending,
		}).Info("reconciliation sweep done")
	}
	return sum, nil
}
