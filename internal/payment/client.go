// Package payment talks to the Paystack transaction API.  It only knows
// how to open a transaction and how to ask for its outcome; deciding what
// an outcome means for a booking is left to the caller.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public Paystack API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// statusSuccess is the only verified transaction status treated as paid.
const statusSuccess = "success"

// maxBody bounds how much of a gateway response is read.
const maxBody = 1 << 20

// GatewayError reports that the gateway could not give an answer: the
// call failed, timed out, returned a non-2xx status or a body that could
// not be understood.  It never means the payment was declined.
type GatewayError struct {
	Op         string // "initialize" or "verify"
	StatusCode int    // HTTP status, 0 when no response was received
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	b.WriteString("paystack ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// InitializeRequest describes a transaction to open.
type InitializeRequest struct {
	Email       string
	AmountMinor int64
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult is what the customer needs to complete the payment.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the gateway's verified view of a transaction.
type VerifyResult struct {
	Succeeded   bool
	RawStatus   string
	AmountMinor int64
	Reference   string
}

// Client calls the Paystack API with a secret key.  The zero value is not
// usable; construct with NewClient.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewClient builds a client.  An empty baseURL selects DefaultBaseURL and a
// non-positive timeout selects ten seconds.
func NewClient(baseURL, secret string, timeout time.Duration, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
		log:     log.WithField("component", "paystack"),
	}
}

// envelope is the common shape of every Paystack response.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeBody struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// Initialize opens a transaction for req.AmountMinor (kobo, pesewas, ...)
// under req.Reference.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.AmountMinor <= 0 {
		return nil, &GatewayError{Op: "initialize", Message: "amount must be positive"}
	}
	payload, err := json.Marshal(initializeBody{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, &GatewayError{Op: "initialize", Err: err}
	}

	var data initializeData
	if err := c.do(ctx, "initialize", http.MethodPost, c.baseURL+"/transaction/initialize", payload, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, &GatewayError{Op: "initialize", Message: "missing authorization_url"}
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	c.log.WithFields(logrus.Fields{"reference": ref, "amount": req.AmountMinor}).Debug("transaction initialized")
	return &InitializeResult{AuthorizationURL: data.AuthorizationURL, AccessCode: data.AccessCode, Reference: ref}, nil
}

// Verify asks the gateway for the outcome of reference.  A declined or
// abandoned transaction is a nil error with Succeeded false.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, &GatewayError{Op: "verify", Message: "empty reference"}
	}
	var data verifyData
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, "verify", http.MethodGet, endpoint, nil, &data); err != nil {
		return nil, err
	}
	res := &VerifyResult{
		Succeeded:   data.Status == statusSuccess,
		RawStatus:   data.Status,
		AmountMinor: data.Amount,
		Reference:   data.Reference,
	}
	if res.Reference == "" {
		res.Reference = reference
	}
	c.log.WithFields(logrus.Fields{"reference": reference, "status": data.Status}).Debug("transaction verified")
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if !env.Status {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "missing data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "malformed data", Err: err}
	}
	return nil
}
