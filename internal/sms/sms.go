// Package sms delivers one-time codes through the SMS.ru HTTP API.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"relaychat/backend/internal/apperr"
)

const statusOK = 100

// Known SMS.ru status codes.
const (
	codeInvalidNumber    = 202
	codeInvalidNumberAlt = 221
	codeNoFunds          = 207
)

// Client submits messages to SMS.ru. Only submission is confirmed, not delivery.
type Client struct {
	apiID   string
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(apiID, baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		apiID:   apiID,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With("component", "sms"),
	}
}

type sendResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	StatusText string `json:"status_text"`
}

// Send submits text to a normalized phone number.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	form := url.Values{
		"api_id": {c.apiID},
		"to":     {phone},
		"msg":    {text},
		"json":   {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sms/send", strings.NewReader(form.Encode()))
	if err != nil {
		return apperr.Upstream("sms.failed", "could not build sms request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Upstream("sms.timeout", "sms gateway timed out", err)
		}
		return apperr.Upstream("sms.failed", "sms gateway unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apperr.Upstream("sms.failed", "could not read sms gateway response", err)
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return apperr.Upstream("sms.failed", "malformed sms gateway response",
			fmt.Errorf("http %d: %w", resp.StatusCode, err))
	}

	if out.Status == "OK" && out.StatusCode == statusOK {
		c.log.Debug("sms submitted", "phone", phone)
		return nil
	}

	cause := fmt.Errorf("sms.ru status %s code %d: %s", out.Status, out.StatusCode, out.StatusText)
	switch out.StatusCode {
	case codeInvalidNumber, codeInvalidNumberAlt:
		return apperr.Upstream("sms.invalid_number", "phone number was rejected by the sms gateway", cause)
	case codeNoFunds:
		return apperr.Upstream("sms.no_funds", "sms gateway account has insufficient funds", cause)
	default:
		return apperr.Upstream("sms.failed", "sms gateway rejected the request", cause)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// LogSender writes codes to the log instead of sending them. It is used when
// no SMS.ru api id is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, phone, text string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Warn("sms gateway not configured, logging message instead", "phone", phone, "text", text)
	return nil
}

// WebhookAck is the body SMS.ru expects from a delivery-status callback.
var WebhookAck = strconv.Itoa(statusOK)
