package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

type CheckoutParams struct {
	CourseID      uint
	StudentID     uint
	CourseTitle   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentProvider creates hosted checkout sessions.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// StripeClient talks to the Stripe REST API with form-encoded requests.
type StripeClient struct {
	http *resty.Client
}

func NewStripeClient(baseURL, secretKey string) *StripeClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(secretKey).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &StripeClient{http: client}
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	courseID := strconv.FormatUint(uint64(p.CourseID), 10)
	studentID := strconv.FormatUint(uint64(p.StudentID), 10)
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("client_reference_id", studentID)
	form.Set("metadata[course_id]", courseID)
	form.Set("metadata[student_id]", studentID)
	form.Set("payment_intent_data[metadata][course_id]", courseID)
	form.Set("payment_intent_data[metadata][student_id]", studentID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.CourseTitle)
	if p.CustomerEmail != "" {
		form.Set("customer_email", p.CustomerEmail)
	}

	var session CheckoutSession
	var apiErr stripeErrorResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetFormDataFromValues(form).
		SetResult(&session).
		SetError(&apiErr).
		Post("/v1/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("stripe: create checkout session: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}
	if session.ID == "" || session.URL == "" {
		return nil, errors.New("stripe: checkout session response missing id or url")
	}
	return &session, nil
}

var (
	ErrSignatureHeader  = errors.New("stripe: malformed signature header")
	ErrSignatureExpired = errors.New("stripe: signature timestamp outside tolerance")
	ErrSignatureInvalid = errors.New("stripe: no matching v1 signature")
)

// VerifyWebhookSignature checks a Stripe-Signature header ("t=...,v1=...")
// against HMAC-SHA256(secret, t + "." + payload).
func VerifyWebhookSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrSignatureHeader
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrSignatureHeader
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrSignatureExpired
		}
	}

	expected := SignWebhookPayload(payload, secret, ts)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// SignWebhookPayload returns the hex v1 signature for payload at timestamp ts.
func SignWebhookPayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
