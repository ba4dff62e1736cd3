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

// HTTPReplyDrafter asks the drafting service for a reply given the inbound
// message and whatever order context resolution produced.
type HTTPReplyDrafter struct {
	endpoint string
	httpc    *http.Client
	logger   zerolog.Logger
}

// NewHTTPReplyDrafter creates a reply drafter over the drafting service
// endpoint.
func NewHTTPReplyDrafter(endpoint string, logger zerolog.Logger) ports.ReplyDrafter {
	return &HTTPReplyDrafter{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type draftRequest struct {
	SenderName     string                `json:"sender_name,omitempty"`
	SenderEmail    string                `json:"sender_email"`
	Subject        string                `json:"subject"`
	Body           string                `json:"body"`
	Classification string                `json:"classification"`
	Order          *domain.Order         `json:"order,omitempty"`
	Confidence     string                `json:"confidence,omitempty"`
	Skipped        []domain.SkippedStore `json:"skipped_stores,omitempty"`
}

type draftResponse struct {
	Reply string `json:"reply"`
}

// Draft implements ports.ReplyDrafter.
func (d *HTTPReplyDrafter) Draft(ctx context.Context, c *domain.EmailCase, resolution *domain.ResolvedOrder) (string, error) {
	reqBody := draftRequest{
		SenderName:     c.SenderName,
		SenderEmail:    c.SenderEmail,
		Subject:        c.Subject,
		Body:           c.Body,
		Classification: string(c.Classification),
	}
	if resolution != nil {
		reqBody.Order = resolution.Order
		reqBody.Confidence = string(resolution.Confidence)
		reqBody.Skipped = resolution.Skipped
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create draft request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("draft request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drafting service returned status %d", resp.StatusCode)
	}

	var body draftResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode draft response: %w", err)
	}

	return body.Reply, nil
}
