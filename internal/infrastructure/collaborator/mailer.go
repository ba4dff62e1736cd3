package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/ports"

	"github.com/rs/zerolog"
)

// HTTPMailSender posts approved replies to the mail dispatch service.
type HTTPMailSender struct {
	endpoint string
	httpc    *http.Client
	logger   zerolog.Logger
}

// NewHTTPMailSender creates a mail sender over the dispatch service endpoint.
func NewHTTPMailSender(endpoint string, logger zerolog.Logger) ports.MailSender {
	return &HTTPMailSender{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Send implements ports.MailSender. Any non-2xx response is ErrSendFailed so
// the caller can park the case for an operator instead of losing the reply.
func (s *HTTPMailSender) Send(ctx context.Context, recipient, subject, body string) error {
	payload, err := json.Marshal(sendRequest{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error().
			Int("status", resp.StatusCode).
			Str("recipient", recipient).
			Msg("Mail dispatch service rejected the reply")
		return fmt.Errorf("%w: status %d", domain.ErrSendFailed, resp.StatusCode)
	}

	return nil
}
