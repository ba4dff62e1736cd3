package application

import (
	"avena-triage-core/internal/domain"
)

// AutoSendFlags are the operator-controlled gates for automatic dispatch.
type AutoSendFlags struct {
	Tracking      bool
	ReturnConfirm bool
}

// DecisionInput is everything the decision engine is allowed to look at.
type DecisionInput struct {
	Classification domain.Classification
	Resolution     *domain.ResolvedOrder
	HasDraft       bool
	Ignored        bool // operator marked the case ignore
	Flags          AutoSendFlags
}

// Decide maps a classified, resolved case to its disposition. It is a pure
// function: dispatch and persistence happen in the caller. An ambiguous or
// empty resolution is never auto-sent, whatever the flags say.
func Decide(in DecisionInput) domain.Disposition {
	if in.Ignored {
		return domain.DispositionDiscarded
	}

	if in.Resolution == nil || !in.Resolution.Unique() {
		return domain.DispositionPendingReview
	}

	if !in.HasDraft {
		return domain.DispositionPendingReview
	}

	switch in.Classification {
	case domain.ClassTracking:
		if in.Flags.Tracking && in.Resolution.Order.TrackingNumber != "" {
			return domain.DispositionSent
		}
	case domain.ClassReturn:
		if in.Flags.ReturnConfirm {
			return domain.DispositionSent
		}
	}

	return domain.DispositionPendingReview
}
