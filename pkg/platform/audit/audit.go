// Package audit captures security- and economy-relevant actions as immutable
// events. Ledger operations, admission rejections, and observability reports
// all flow through here so operators get one reviewable trail.
package audit

import (
	"context"
	"log/slog"
	"time"

	"dustledger/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     domain.AccountID  `json:"actor,omitempty"`
	Action    string            `json:"action"`
	Decision  string            `json:"decision,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Amount    domain.Amount     `json:"amount,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Actions recorded by the engine.
const (
	EventCredit            = "credit"
	EventDebit             = "debit"
	EventTransfer          = "transfer"
	EventStake             = "stake"
	EventUnstake           = "unstake"
	EventProposalCreated   = "proposal_created"
	EventVoteCast          = "vote_cast"
	EventProposalResolved  = "proposal_resolved"
	EventReserveAdded      = "reserve_added"
	EventAdmissionRejected = "admission_rejected"
	EventActorBanned       = "actor_banned"
	EventObserverReport    = "observer_report"
)

// Store persists audit events. Append is the only mutation; events are never
// updated or deleted.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor domain.AccountID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher emits audit events to an external sink such as Kafka.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Log records an event to the structured logger and, when a publisher is
// wired, emits it downstream. Publish failures are logged and swallowed:
// audit fan-out must never fail a ledger operation.
func Log(ctx context.Context, logger *slog.Logger, publisher Publisher, event Event) {
	if logger != nil {
		logger.InfoContext(ctx, event.Action,
			"log_type", "audit",
			"actor", event.Actor,
			"decision", event.Decision,
			"reason", event.Reason,
		)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
