package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/leemont-hostel/internal/model"
	"github.com/iliyamo/leemont-hostel/internal/payment"
	"github.com/iliyamo/leemont-hostel/internal/queue"
	"github.com/iliyamo/leemont-hostel/internal/repository"
)

// memStore is an in-memory inventory store, ledger and settler sharing one
// lock, so approve+decrement is atomic like the SQL transaction.
type memStore struct {
	mu       sync.Mutex
	rooms    map[uint64]*model.Room
	bookings map[uint64]*model.Booking
	nextID   uint64
	approves int
	refunds  map[uint64]bool
}

func newMemStore() *memStore {
	return &memStore{rooms: map[uint64]*model.Room{}, bookings: map[uint64]*model.Booking{}, refunds: map[uint64]bool{}}
}

func (m *memStore) addRoom(r model.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := r
	m.rooms[r.ID] = &cp
}

func (m *memStore) units(roomID uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID].AvailableUnits
}

func (m *memStore) status(id uint64) model.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.bookings {
		if x.PaymentReference == b.PaymentReference {
			return repository.ErrDuplicateReference
		}
	}
	m.nextID++
	b.ID = m.nextID
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) FindByReference(_ context.Context, ref string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.PaymentReference == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (m *memStore) FindByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) FindByUser(_ context.Context, userID uint64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Booking, 0)
	for _, b := range m.bookings {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) CompareAndSetStatus(_ context.Context, id uint64, from, to model.BookingStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (m *memStore) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Booking, 0)
	for _, b := range m.bookings {
		if b.Status == model.BookingPendingPayment && b.CreatedAt.Before(cutoff) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TouchPending moves a pending booking behind every other booking.
func (m *memStore) TouchPending(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != model.BookingPendingPayment {
		return nil
	}
	var latest time.Time
	for _, x := range m.bookings {
		if x.UpdatedAt.After(latest) {
			latest = x.UpdatedAt
		}
	}
	b.UpdatedAt = latest.Add(time.Second)
	return nil
}

func (m *memStore) MarkRefundRequested(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok || m.refunds[id] {
		return false, nil
	}
	m.refunds[id] = true
	return true, nil
}

// settler adapts memStore to the Settler port.
type settler struct{ *memStore }

func (s settler) Approve(_ context.Context, bookingID, roomID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bookings[bookingID]
	if b == nil || b.Status != model.BookingPendingPayment {
		return repository.ErrBookingNotPending
	}
	r := s.rooms[roomID]
	if r == nil || r.AvailableUnits == 0 {
		return repository.ErrRoomExhausted
	}
	b.Status = model.BookingApproved
	r.AvailableUnits--
	s.approves++
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	initErr    error
	verifyErr  error
	status     string
	amount     int64 // -1 echoes the initialized amount
	amounts    map[string]int64
	inits      []payment.InitializeRequest
	verifyHits int
}

func newFakeGateway(status string) *fakeGateway {
	return &fakeGateway{status: status, amount: -1, amounts: map[string]int64{}}
}

func (g *fakeGateway) Initialize(_ context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits = append(g.inits, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.amounts[req.Reference] = req.AmountMinor
	return &payment.InitializeResult{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "ac-" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, ref string) (*payment.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyHits++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	amt := g.amount
	if amt < 0 {
		amt = g.amounts[ref]
	}
	return &payment.VerifyResult{Succeeded: g.status == "success", RawStatus: g.status, AmountMinor: amt, Reference: ref}, nil
}

type fakeEvents struct {
	mu       sync.Mutex
	approved []queue.BookingApprovedEvent
	refunds  []queue.RefundRequiredEvent
	err      error
}

func (e *fakeEvents) PublishBookingApproved(_ context.Context, ev queue.BookingApprovedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.approved = append(e.approved, ev)
	return e.err
}

func (e *fakeEvents) PublishRefundRequired(_ context.Context, ev queue.RefundRequiredEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refunds = append(e.refunds, ev)
	return e.err
}

type fakeUsers map[uint64]model.User

func (u fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	usr, ok := u[id]
	if !ok {
		return model.User{}, errors.New("no user")
	}
	return usr, nil
}
