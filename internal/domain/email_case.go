package domain

import (
	"fmt"
	"time"
)

// Classification is the tag the classifier collaborator assigned to an
// inbound email.
type Classification string

const (
	ClassTracking     Classification = "tracking"     // where is my order
	ClassReturn       Classification = "return"       // return, exchange or refund
	ClassProblem      Classification = "problem"      // damaged or wrong product
	ClassQuestion     Classification = "question"     // general question
	ClassModification Classification = "modification" // address change, cancellation
	ClassOther        Classification = "other"
)

// Disposition is the handling state of one email case. The lifecycle only
// moves forward; sent and discarded are terminal.
type Disposition string

const (
	DispositionNew           Disposition = "new"
	DispositionClassified    Disposition = "classified"
	DispositionResolved      Disposition = "resolved"
	DispositionDecided       Disposition = "decided"
	DispositionSent          Disposition = "sent"
	DispositionPendingReview Disposition = "pending_review"
	DispositionDiscarded     Disposition = "discarded"
)

var dispositionRank = map[Disposition]int{
	DispositionNew:           0,
	DispositionClassified:    1,
	DispositionResolved:      2,
	DispositionDecided:       3,
	DispositionSent:          4,
	DispositionPendingReview: 4,
	DispositionDiscarded:     4,
}

// EmailCase is one inbound support message moving through the pipeline.
type EmailCase struct {
	ID             string         `json:"id"`
	MessageID      string         `json:"message_id"`
	SenderEmail    string         `json:"sender_email"`
	SenderName     string         `json:"sender_name,omitempty"`
	Subject        string         `json:"subject"`
	Body           string         `json:"body"`
	Classification Classification `json:"classification"`
	Candidate      OrderCandidate `json:"candidate"`
	Resolution     *ResolvedOrder `json:"resolution,omitempty"`
	DraftReply     string         `json:"draft_reply,omitempty"`
	Disposition    Disposition    `json:"disposition"`
	AutoSent       bool           `json:"auto_sent"`
	ReceivedAt     time.Time      `json:"received_at"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
}

// Advance moves the case to the next disposition. Transitions never regress,
// and nothing follows sent or discarded.
func (c *EmailCase) Advance(next Disposition) error {
	from, ok := dispositionRank[c.Disposition]
	if !ok {
		return fmt.Errorf("unknown disposition %q", c.Disposition)
	}
	to, ok := dispositionRank[next]
	if !ok {
		return fmt.Errorf("unknown disposition %q", next)
	}
	if c.Disposition == DispositionSent || c.Disposition == DispositionDiscarded {
		return fmt.Errorf("case %s is terminal (%s), cannot move to %s", c.ID, c.Disposition, next)
	}
	if to < from {
		return fmt.Errorf("case %s cannot regress from %s to %s", c.ID, c.Disposition, next)
	}
	c.Disposition = next
	return nil
}
