// Package notify sends customer emails over SMTP.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/leemont-hostel/internal/queue"
	"github.com/iliyamo/leemont-hostel/internal/utils"
)

// Sender delivers a composed message.  *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer renders booking receipts and hands them to a Sender.
type Mailer struct {
	From       string
	HostelName string
	AppURL     string
	Sender     Sender
}

// NewMailer returns a Mailer sending through the SMTP server at host:port.
func NewMailer(host string, port int, username, password, from, hostelName, appURL string) *Mailer {
	return &Mailer{
		From:       from,
		HostelName: hostelName,
		AppURL:     appURL,
		Sender:     gomail.NewDialer(host, port, username, password),
	}
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<p>Hello,</p>
<p>Your booking at {{.Hostel}} is confirmed.</p>
<table>
<tr><td>Booking</td><td>#{{.Event.BookingID}}</td></tr>
<tr><td>Room</td><td>{{.Event.RoomName}}</td></tr>
<tr><td>Check-in</td><td>{{.Event.CheckIn}}</td></tr>
<tr><td>Check-out</td><td>{{.Event.CheckOut}}</td></tr>
<tr><td>Total paid</td><td>{{.Total}}</td></tr>
<tr><td>Reference</td><td>{{.Event.Reference}}</td></tr>
</table>
<p>Show the attached QR code at the front desk.</p>
{{if .Link}}<p><a href="{{.Link}}">View your bookings</a></p>{{end}}`))

// SendBookingReceipt mails the receipt for ev with the reference as a QR
// code attachment.
func (m *Mailer) SendBookingReceipt(ev queue.BookingApprovedEvent) error {
	msg, err := m.receipt(ev)
	if err != nil {
		return err
	}
	return m.Sender.DialAndSend(msg)
}

func (m *Mailer) receipt(ev queue.BookingApprovedEvent) (*gomail.Message, error) {
	var body bytes.Buffer
	data := struct {
		Hostel string
		Event  queue.BookingApprovedEvent
		Total  string
		Link   string
	}{m.HostelName, ev, utils.FormatMinor(ev.TotalPriceMinor), ""}
	if m.AppURL != "" {
		data.Link = m.AppURL + "/v1/my-bookings"
	}
	if err := receiptTmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}

	png, err := utils.GenerateQRCode(ev.Reference, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", ev.Email)
	msg.SetHeader("Subject", fmt.Sprintf("%s booking #%d confirmed", m.HostelName, ev.BookingID))
	msg.SetBody("text/html", body.String())
	msg.Attach("booking-qr.png", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(png)
		return err
	}))
	return msg, nil
}
