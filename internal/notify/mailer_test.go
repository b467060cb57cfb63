package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/leemont-hostel/internal/queue"
)

type captureSender struct {
	msgs []*gomail.Message
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	s.msgs = append(s.msgs, m...)
	return nil
}

func TestMailer_SendBookingReceipt(t *testing.T) {
	s := &captureSender{}
	m := &Mailer{From: "desk@leemont.test", HostelName: "Leemont Hostel", AppURL: "http://localhost:8080", Sender: s}

	err := m.SendBookingReceipt(queue.BookingApprovedEvent{
		BookingID: 12, Email: "guest@example.com", RoomName: "Room 3",
		CheckIn: "2025-09-01", CheckOut: "2026-06-01", TotalPriceMinor: 482000, Reference: "ref-12",
	})
	require.NoError(t, err)
	require.Len(t, s.msgs, 1)

	msg := s.msgs[0]
	assert.Equal(t, []string{"guest@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Leemont Hostel booking #12 confirmed"}, msg.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "4820.00")
	assert.Contains(t, raw.String(), "booking-qr.png")
}
