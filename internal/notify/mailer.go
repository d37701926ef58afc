package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avalogan/silkstrands-backend/pkg/config"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/logger"
)

const defaultSendGridURL = "https://api.sendgrid.com"

// Message is one outbound email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers transactional email. Delivery failure is always a
// soft failure for callers: orders complete regardless.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type disabledMailer struct {
	logg *logger.Logger
}

func (m disabledMailer) Send(ctx context.Context, msg Message) error {
	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "to", msg.To),
			"email delivery disabled, dropping message")
	}
	return nil
}

type sendgridMailer struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	logg       *logger.Logger
}

// NewMailer returns a SendGrid mailer, or a logging no-op when no API key
// is configured so local runs never need credentials.
func NewMailer(cfg config.EmailConfig, logg *logger.Logger) Mailer {
	if cfg.SendgridAPIKey == "" {
		return disabledMailer{logg: logg}
	}
	return &sendgridMailer{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultSendGridURL,
		apiKey:     cfg.SendgridAPIKey,
		from:       cfg.FromAddress,
		logg:       logg,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []struct {
		To []sgAddress `json:"to"`
	} `json:"personalizations"`
	From    sgAddress   `json:"from"`
	Subject string      `json:"subject"`
	Content []sgContent `json:"content"`
}

func (m *sendgridMailer) Send(ctx context.Context, msg Message) error {
	payload := sgPayload{
		From:    sgAddress{Email: m.from, Name: "Silk Strands"},
		Subject: msg.Subject,
	}
	payload.Personalizations = []struct {
		To []sgAddress `json:"to"`
	}{{To: []sgAddress{{Email: msg.To, Name: msg.ToName}}}}

	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to build email request")
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "email delivery failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("sendgrid returned %d", resp.StatusCode))
	}
	return nil
}
