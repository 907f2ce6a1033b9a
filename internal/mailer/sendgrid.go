// Package mailer delivers notification emails through the SendGrid v3 API.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tenant-booking-api/internal/model"
)

const DefaultBaseURL = "https://api.sendgrid.com"

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSend struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type apiErrors struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

type SendGrid struct {
	http *resty.Client
	log  *zap.Logger
}

func NewSendGrid(baseURL, apiKey string, log *zap.Logger) *SendGrid {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetAuthToken(apiKey).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json")
	return &SendGrid{http: c, log: log}
}

func toMailSend(m model.Message) mailSend {
	body := mailSend{
		Personalizations: []personalization{{To: []address{{Email: m.To}}}},
		From:             address{Email: m.From},
		Subject:          m.Subject,
	}
	// text/plain must precede text/html
	if m.Text != "" {
		body.Content = append(body.Content, content{Type: "text/plain", Value: m.Text})
	}
	if m.HTML != "" {
		body.Content = append(body.Content, content{Type: "text/html", Value: m.HTML})
	}
	return body
}

// Send posts every message and stops at the first failure. Messages before
// the failing one may already be delivered.
func (s *SendGrid) Send(ctx context.Context, msgs []model.Message) error {
	for i, m := range msgs {
		var apiErr apiErrors
		resp, err := s.http.R().
			SetContext(ctx).
			SetBody(toMailSend(m)).
			SetError(&apiErr).
			Post("/v3/mail/send")
		if err != nil {
			return fmt.Errorf("sendgrid: message %d of %d: %w", i+1, len(msgs), err)
		}
		if resp.IsError() {
			msg := resp.Status()
			if len(apiErr.Errors) > 0 {
				msg = apiErr.Errors[0].Message
			}
			return fmt.Errorf("sendgrid: message %d of %d: %s (status %d)", i+1, len(msgs), msg, resp.StatusCode())
		}
	}
	s.log.Debug("mail batch delivered", zap.Int("messages", len(msgs)))
	return nil
}

// LogSender only logs messages. It stands in for SendGrid when no API key is
// configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

func (l *LogSender) Send(_ context.Context, msgs []model.Message) error {
	for _, m := range msgs {
		l.log.Info("mail (not delivered)",
			zap.String("to", m.To),
			zap.String("subject", m.Subject),
			zap.String("text", m.Text),
		)
	}
	return nil
}
