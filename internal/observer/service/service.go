// Package service implements the read-only observability layer. It derives
// aggregate views of the economy from the ledger stores and never mutates
// ledger state. Storage failures degrade individual fields to neutral
// values instead of failing the whole report; callers check Partial.
package service

import (
	"context"
	"errors"
	"log/slog"

	"dustledger/internal/ledger/ports"
	"dustledger/internal/observer/metrics"
	"dustledger/internal/platform/config"
	"dustledger/pkg/platform/audit"
)

type (
	AccountStore   = ports.AccountStore
	TransactionLog = ports.TransactionLog
	ProposalStore  = ports.ProposalStore
	ReserveStore   = ports.ReserveStore
)

type Service struct {
	accounts  AccountStore
	txlog     TransactionLog
	proposals ProposalStore
	reserve   ReserveStore
	cfg       config.Config

	logger  *slog.Logger
	metrics *metrics.Metrics
	reports audit.Store
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithReportStore archives every snapshot and detector run to the audit
// trail for later review.
func WithReportStore(store audit.Store) Option {
	return func(s *Service) { s.reports = store }
}

func New(
	accounts AccountStore,
	txlog TransactionLog,
	proposals ProposalStore,
	reserve ReserveStore,
	cfg config.Config,
	opts ...Option,
) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if txlog == nil {
		return nil, errors.New("transaction log is required")
	}
	if proposals == nil {
		return nil, errors.New("proposal store is required")
	}
	if reserve == nil {
		return nil, errors.New("reserve store is required")
	}

	s := &Service{
		accounts:  accounts,
		txlog:     txlog,
		proposals: proposals,
		reserve:   reserve,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// archive appends a report event to the audit trail. Archival is best
// effort; a failed append is logged and the report still returned.
func (s *Service) archive(ctx context.Context, event audit.Event) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Append(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to archive observer report", "error", err)
	}
}
