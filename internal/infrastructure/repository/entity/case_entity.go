package entity

import (
	"time"

	"avena-triage-core/internal/domain"
)

// MongoOrderDoc is the embedded order snapshot inside a case document.
type MongoOrderDoc struct {
	StoreID           string     `bson:"storeId"`
	ID                int64      `bson:"orderId"`
	Number            string     `bson:"number"`
	Email             string     `bson:"email"`
	FinancialStatus   string     `bson:"financialStatus"`
	FulfillmentStatus string     `bson:"fulfillmentStatus"`
	TrackingNumber    string     `bson:"trackingNumber,omitempty"`
	TrackingURL       string     `bson:"trackingUrl,omitempty"`
	TotalPrice        string     `bson:"totalPrice,omitempty"`
	Currency          string     `bson:"currency,omitempty"`
	CreatedAt         *time.Time `bson:"createdAt,omitempty"`
}

// MongoResolutionDoc is the embedded resolution outcome.
type MongoResolutionDoc struct {
	Confidence string          `bson:"confidence"`
	Order      *MongoOrderDoc  `bson:"order,omitempty"`
	Competing  []MongoOrderDoc `bson:"competing,omitempty"`
	Skipped    []struct {
		StoreID string `bson:"storeId"`
		Reason  string `bson:"reason"`
	} `bson:"skipped,omitempty"`
}

// MongoCaseDoc represents an email case in MongoDB.
type MongoCaseDoc struct {
	ID             string              `bson:"_id"`
	MessageID      string              `bson:"messageId"`
	SenderEmail    string              `bson:"senderEmail"`
	SenderName     string              `bson:"senderName,omitempty"`
	Subject        string              `bson:"subject"`
	Body           string              `bson:"body"`
	Classification string              `bson:"classification"`
	CandidateNum   string              `bson:"candidateNumber,omitempty"`
	CandidateEmail string              `bson:"candidateEmail,omitempty"`
	Resolution     *MongoResolutionDoc `bson:"resolution,omitempty"`
	DraftReply     string              `bson:"draftReply,omitempty"`
	Disposition    string              `bson:"disposition"`
	AutoSent       bool                `bson:"autoSent"`
	ReceivedAt     time.Time           `bson:"receivedAt"`
	DecidedAt      *time.Time          `bson:"decidedAt,omitempty"`
	SentAt         *time.Time          `bson:"sentAt,omitempty"`
	UpdatedAt      time.Time           `bson:"updatedAt"`
}

func orderDocFromDomain(o *domain.Order) *MongoOrderDoc {
	if o == nil {
		return nil
	}
	return &MongoOrderDoc{
		StoreID:           o.StoreID,
		ID:                o.ID,
		Number:            o.Number,
		Email:             o.Email,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		TrackingNumber:    o.TrackingNumber,
		TrackingURL:       o.TrackingURL,
		TotalPrice:        o.TotalPrice,
		Currency:          o.Currency,
		CreatedAt:         o.CreatedAt,
	}
}

func (d *MongoOrderDoc) toDomain() *domain.Order {
	if d == nil {
		return nil
	}
	return &domain.Order{
		StoreID:           d.StoreID,
		ID:                d.ID,
		Number:            d.Number,
		Email:             d.Email,
		FinancialStatus:   d.FinancialStatus,
		FulfillmentStatus: d.FulfillmentStatus,
		TrackingNumber:    d.TrackingNumber,
		TrackingURL:       d.TrackingURL,
		TotalPrice:        d.TotalPrice,
		Currency:          d.Currency,
		CreatedAt:         d.CreatedAt,
	}
}

// MongoCaseDocFromDomain converts a domain case to a MongoDB document.
func MongoCaseDocFromDomain(c *domain.EmailCase) *MongoCaseDoc {
	doc := &MongoCaseDoc{
		ID:             c.ID,
		MessageID:      c.MessageID,
		SenderEmail:    c.SenderEmail,
		SenderName:     c.SenderName,
		Subject:        c.Subject,
		Body:           c.Body,
		Classification: string(c.Classification),
		CandidateNum:   c.Candidate.Number,
		CandidateEmail: c.Candidate.Email,
		DraftReply:     c.DraftReply,
		Disposition:    string(c.Disposition),
		AutoSent:       c.AutoSent,
		ReceivedAt:     c.ReceivedAt,
		DecidedAt:      c.DecidedAt,
		SentAt:         c.SentAt,
	}

	if c.Resolution != nil {
		res := &MongoResolutionDoc{
			Confidence: string(c.Resolution.Confidence),
			Order:      orderDocFromDomain(c.Resolution.Order),
		}
		for _, m := range c.Resolution.Competing {
			res.Competing = append(res.Competing, *orderDocFromDomain(&m))
		}
		for _, sk := range c.Resolution.Skipped {
			res.Skipped = append(res.Skipped, struct {
				StoreID string `bson:"storeId"`
				Reason  string `bson:"reason"`
			}{StoreID: sk.StoreID, Reason: sk.Reason})
		}
		doc.Resolution = res
	}

	return doc
}

// ToDomain converts the MongoDB document to a domain case.
func (d *MongoCaseDoc) ToDomain() *domain.EmailCase {
	c := &domain.EmailCase{
		ID:             d.ID,
		MessageID:      d.MessageID,
		SenderEmail:    d.SenderEmail,
		SenderName:     d.SenderName,
		Subject:        d.Subject,
		Body:           d.Body,
		Classification: domain.Classification(d.Classification),
		Candidate: domain.OrderCandidate{
			Number: d.CandidateNum,
			Email:  d.CandidateEmail,
		},
		DraftReply:  d.DraftReply,
		Disposition: domain.Disposition(d.Disposition),
		AutoSent:    d.AutoSent,
		ReceivedAt:  d.ReceivedAt,
		DecidedAt:   d.DecidedAt,
		SentAt:      d.SentAt,
	}

	if d.Resolution != nil {
		res := &domain.ResolvedOrder{
			Confidence: domain.ConfidenceTier(d.Resolution.Confidence),
			Order:      d.Resolution.Order.toDomain(),
		}
		for i := range d.Resolution.Competing {
			res.Competing = append(res.Competing, *d.Resolution.Competing[i].toDomain())
		}
		for _, sk := range d.Resolution.Skipped {
			res.Skipped = append(res.Skipped, domain.SkippedStore{StoreID: sk.StoreID, Reason: sk.Reason})
		}
		c.Resolution = res
	}

	return c
}
