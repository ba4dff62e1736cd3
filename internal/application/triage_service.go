package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avena-triage-core/internal/domain"
	"avena-triage-core/internal/infrastructure/metrics"
	"avena-triage-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TriageService walks one inbound email through the pipeline: spam screen,
// cross-store resolution, reply drafting, decision and dispatch. It owns all
// side effects the decision engine is forbidden to have.
type TriageService struct {
	cases    ports.CaseRepository
	resolver *ResolverService
	drafter  ports.ReplyDrafter
	sender   ports.MailSender
	tracking ports.TrackingProvider
	flags    AutoSendFlags
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewTriageService creates a new triage pipeline. Drafter, sender and
// tracking may be nil when the collaborator is not configured; the pipeline
// then routes affected cases to review instead of failing.
func NewTriageService(
	cases ports.CaseRepository,
	resolver *ResolverService,
	drafter ports.ReplyDrafter,
	sender ports.MailSender,
	tracking ports.TrackingProvider,
	flags AutoSendFlags,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *TriageService {
	return &TriageService{
		cases:    cases,
		resolver: resolver,
		drafter:  drafter,
		sender:   sender,
		tracking: tracking,
		flags:    flags,
		metrics:  m,
		logger:   logger,
	}
}

// TriageInput is one classified inbound email handed over by the mail and
// classifier collaborators.
type TriageInput struct {
	MessageID      string                `json:"message_id"`
	SenderEmail    string                `json:"sender_email"`
	SenderName     string                `json:"sender_name,omitempty"`
	Subject        string                `json:"subject"`
	Body           string                `json:"body"`
	Classification domain.Classification `json:"classification"`
	Candidate      domain.OrderCandidate `json:"candidate"`
	Ignored        bool                  `json:"ignored,omitempty"`
}

// Triage processes one inbound email end to end and returns the persisted
// case. A message id seen before is not reprocessed; the existing case is
// returned with domain.ErrDuplicateCase.
func (s *TriageService) Triage(ctx context.Context, in TriageInput) (*domain.EmailCase, error) {
	if in.MessageID == "" {
		return nil, fmt.Errorf("message id is required")
	}

	existing, err := s.cases.GetByMessageID(ctx, in.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if existing != nil {
		s.logger.Info().
			Str("message_id", in.MessageID).
			Str("case_id", existing.ID).
			Msg("Message already processed, skipping")
		return existing, domain.ErrDuplicateCase
	}

	c := &domain.EmailCase{
		ID:             uuid.NewString(),
		MessageID:      in.MessageID,
		SenderEmail:    in.SenderEmail,
		SenderName:     in.SenderName,
		Subject:        in.Subject,
		Body:           in.Body,
		Classification: in.Classification,
		Candidate:      in.Candidate,
		Disposition:    domain.DispositionNew,
		ReceivedAt:     time.Now(),
	}

	if verdict := ScreenSpam(in.SenderEmail, in.SenderName, in.Subject, in.Body); verdict.Spam {
		s.logger.Info().
			Str("case_id", c.ID).
			Str("sender", in.SenderEmail).
			Float64("score", verdict.Score).
			Str("reason", verdict.Reason).
			Msg("Inbound email discarded as spam")
		c.Disposition = domain.DispositionDiscarded
		return s.finish(ctx, c)
	}

	if err := c.Advance(domain.DispositionClassified); err != nil {
		return nil, err
	}

	candidate := in.Candidate
	if candidate.Email == "" {
		candidate.Email = in.SenderEmail
	}
	resolution, err := s.resolver.Resolve(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("resolution failed: %w", err)
	}
	c.Resolution = resolution
	if err := c.Advance(domain.DispositionResolved); err != nil {
		return nil, err
	}

	s.enrichTracking(ctx, c)
	s.draftReply(ctx, c)

	disposition := Decide(DecisionInput{
		Classification: c.Classification,
		Resolution:     c.Resolution,
		HasDraft:       c.DraftReply != "",
		Ignored:        in.Ignored,
		Flags:          s.flags,
	})
	if err := c.Advance(domain.DispositionDecided); err != nil {
		return nil, err
	}
	now := time.Now()
	c.DecidedAt = &now

	if disposition == domain.DispositionSent {
		return s.dispatch(ctx, c)
	}

	if err := c.Advance(disposition); err != nil {
		return nil, err
	}
	return s.finish(ctx, c)
}

// enrichTracking fills in tracking data from the tracking provider when the
// storefront record has none. Failures only cost the enrichment.
func (s *TriageService) enrichTracking(ctx context.Context, c *domain.EmailCase) {
	if s.tracking == nil || c.Classification != domain.ClassTracking {
		return
	}
	if !c.Resolution.Unique() || c.Resolution.Order.TrackingNumber != "" {
		return
	}

	order := c.Resolution.Order
	info, err := s.tracking.TrackingByOrder(ctx, order.StoreID, order.Number)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("case_id", c.ID).
			Str("store_id", order.StoreID).
			Msg("Tracking enrichment failed")
		return
	}
	if info != nil {
		order.TrackingNumber = info.TrackingNumber
		order.TrackingURL = info.TrackingURL
	}
}

// draftReply asks the drafting collaborator for a reply. No draft means the
// decision engine routes the case to review.
func (s *TriageService) draftReply(ctx context.Context, c *domain.EmailCase) {
	if s.drafter == nil {
		return
	}
	draft, err := s.drafter.Draft(ctx, c, c.Resolution)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("case_id", c.ID).
			Msg("Reply drafting failed, case will go to review")
		return
	}
	c.DraftReply = draft
}

// dispatch sends the approved reply. A failed send parks the case in
// pending_review so the reply is never lost in a sent-but-unsent state.
func (s *TriageService) dispatch(ctx context.Context, c *domain.EmailCase) (*domain.EmailCase, error) {
	if s.sender == nil {
		if err := c.Advance(domain.DispositionPendingReview); err != nil {
			return nil, err
		}
		return s.finish(ctx, c)
	}

	subject := c.Subject
	if subject != "" {
		subject = "Re: " + subject
	}
	if err := s.sender.Send(ctx, c.SenderEmail, subject, c.DraftReply); err != nil {
		s.logger.Error().Err(err).
			Str("case_id", c.ID).
			Str("recipient", c.SenderEmail).
			Msg("Auto-send failed, parking case for review")
		if advErr := c.Advance(domain.DispositionPendingReview); advErr != nil {
			return nil, advErr
		}
		saved, saveErr := s.finish(ctx, c)
		if saveErr != nil {
			return nil, saveErr
		}
		if !errors.Is(err, domain.ErrSendFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
		}
		return saved, err
	}

	if err := c.Advance(domain.DispositionSent); err != nil {
		return nil, err
	}
	c.AutoSent = true
	now := time.Now()
	c.SentAt = &now
	s.metrics.RepliesSent.Inc()

	return s.finish(ctx, c)
}

func (s *TriageService) finish(ctx context.Context, c *domain.EmailCase) (*domain.EmailCase, error) {
	if err := s.cases.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to persist case: %w", err)
	}
	s.metrics.CasesTriaged.WithLabelValues(string(c.Disposition)).Inc()
	s.logger.Info().
		Str("case_id", c.ID).
		Str("message_id", c.MessageID).
		Str("classification", string(c.Classification)).
		Str("disposition", string(c.Disposition)).
		Bool("auto_sent", c.AutoSent).
		Msg("Case triaged")
	return c, nil
}

// ListCases exposes the case repository for the review dashboard.
func (s *TriageService) ListCases(ctx context.Context, disposition domain.Disposition, limit int) ([]*domain.EmailCase, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.cases.List(ctx, disposition, limit)
}

// Stats aggregates case counts by disposition.
func (s *TriageService) Stats(ctx context.Context) (map[domain.Disposition]int64, error) {
	return s.cases.CountByDisposition(ctx)
}
