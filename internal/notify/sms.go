package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultSMSBaseURL is the Twilio REST API root.
const DefaultSMSBaseURL = "https://api.twilio.com/2010-04-01"

// SMSConfig configures an SMS client.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	MaxLength  int    // provider cap for the whole message body
	Preamble   string // text the provider prepends, counted against MaxLength
}

// SMS sends text messages through a Twilio-compatible REST API.
// Safe for concurrent use.
type SMS struct {
	cfg        SMSConfig
	httpClient *http.Client
	onSent     func(message string)
}

// NewSMS creates an SMS client.
func NewSMS(cfg SMSConfig) *SMS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSMSBaseURL
	}
	return &SMS{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// OnSent registers a callback invoked with the truncated body after every
// successful send. Must be called before the client is shared.
func (s *SMS) OnSent(fn func(message string)) {
	s.onSent = fn
}

// available returns how many characters of the message fit after the preamble.
func (s *SMS) available() int {
	if s.cfg.MaxLength <= 0 {
		return 0
	}
	return s.cfg.MaxLength - utf8.RuneCountInString(s.cfg.Preamble)
}

type smsErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Notify sends message to recipient, truncated to the provider cap.
func (s *SMS) Notify(ctx context.Context, message, recipient string) error {
	body := Truncate(message, s.available())

	form := url.Values{}
	form.Set("To", recipient)
	form.Set("From", s.cfg.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(s.cfg.AccountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrNotification, err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send sms: %v", ErrNotification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr smsErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: sms api status %d: %s (code %d)", ErrNotification, resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%w: sms api status %d", ErrNotification, resp.StatusCode)
	}

	if s.onSent != nil {
		s.onSent(body)
	}
	return nil
}
