// Package service implements the admission gate that fronts every mutating
// ledger call. A request passes four stages in order: caller authorization,
// the ban gate, payload sanitation, and the rate-limit windows. The first
// failing stage produces the verdict; rejections are values, not errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dustledger/internal/admission/metrics"
	"dustledger/internal/admission/models"
	"dustledger/internal/admission/ports"
	"dustledger/internal/platform/config"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

const (
	burstWindow  = time.Minute
	hourlyWindow = time.Hour
)

type (
	WindowStore = ports.WindowStore
	BanStore    = ports.BanStore
)

type Service struct {
	windows WindowStore
	bans    BanStore
	cfg     config.Config

	allowedCallers map[string]struct{}
	limits         map[models.Action]models.Limits
	sanitizer      sanitizer

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithLimits overrides the configured burst and hourly caps for one action.
func WithLimits(action models.Action, limits models.Limits) Option {
	return func(s *Service) { s.limits[action] = limits }
}

func New(windows WindowStore, bans BanStore, cfg config.Config, opts ...Option) (*Service, error) {
	if windows == nil {
		return nil, errors.New("window store is required")
	}
	if bans == nil {
		return nil, errors.New("ban store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Service{
		windows:        windows,
		bans:           bans,
		cfg:            cfg,
		allowedCallers: make(map[string]struct{}, len(cfg.AllowedCallers)),
		limits:         make(map[models.Action]models.Limits),
		sanitizer: sanitizer{
			maxPayloadBytes: cfg.MaxPayloadBytes,
			maxWager:        cfg.MaxWager,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, caller := range cfg.AllowedCallers {
		s.allowedCallers[caller] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check runs the admission pipeline for one request. The returned error is
// reserved for storage failures; every policy decision, including
// rejections, arrives as a Result.
func (s *Service) Check(ctx context.Context, req models.Request) (*models.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	if _, ok := s.allowedCallers[req.Caller]; !ok {
		return s.reject(ctx, req, &models.Result{
			Code:   dErrors.CodeUnauthorizedCaller,
			Reason: fmt.Sprintf("caller %q is not authorized", req.Caller),
		}, false)
	}

	banned, result, err := s.checkBan(ctx, req.Actor, now)
	if err != nil {
		return nil, err
	}
	if banned {
		s.metrics.RecordCheck(string(req.Action), "banned")
		s.auditRejection(ctx, req, result)
		return result, nil
	}

	if reason := s.sanitizer.inspect(req); reason != "" {
		return s.reject(ctx, req, &models.Result{
			Code:   dErrors.CodeInvalidInput,
			Reason: reason,
		}, true)
	}

	return s.checkWindows(ctx, req, now)
}

// CheckCaller is the static allow-list check for in-process embedders that
// bypass the token middleware.
func (s *Service) CheckCaller(caller string) error {
	if _, ok := s.allowedCallers[caller]; !ok {
		return dErrors.New(dErrors.CodeUnauthorizedCaller, fmt.Sprintf("caller %q is not authorized", caller))
	}
	return nil
}

// checkBan decides the ban gate. An expired ban is lifted in place and the
// violation counter reset, so one clean check is enough to rehabilitate.
func (s *Service) checkBan(ctx context.Context, actor string, now time.Time) (bool, *models.Result, error) {
	record, err := s.bans.Get(ctx, actor)
	if err != nil {
		return false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load ban record")
	}
	if record == nil {
		return false, nil, nil
	}
	if record.IsBanned(now) {
		retry := secondsUntil(now, *record.ExpiresAt)
		return true, &models.Result{
			Code:       dErrors.CodeBanned,
			Reason:     "actor is banned",
			RetryAfter: retry,
			ResetAt:    *record.ExpiresAt,
		}, nil
	}
	if record.ExpiresAt != nil {
		if err := s.bans.Delete(ctx, actor); err != nil {
			return false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "lift expired ban")
		}
		s.metrics.RecordBanLifted()
		s.logger.InfoContext(ctx, "ban lifted", "actor", actor)
	}
	return false, nil, nil
}

// checkWindows enforces the burst and hourly caps. The tighter window is
// consulted first so a burst overflow does not consume hourly quota state.
func (s *Service) checkWindows(ctx context.Context, req models.Request, now time.Time) (*models.Result, error) {
	limits := s.limitsFor(req.Action)

	burstCount, burstReset, err := s.windows.Incr(ctx, windowKey("burst", req), burstWindow)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "increment burst window")
	}
	if burstCount > limits.Burst {
		return s.reject(ctx, req, &models.Result{
			Code:       dErrors.CodeRateLimited,
			Reason:     fmt.Sprintf("burst limit of %d per minute exceeded", limits.Burst),
			RetryAfter: secondsUntil(now, burstReset),
			ResetAt:    burstReset,
		}, true)
	}

	hourCount, hourReset, err := s.windows.Incr(ctx, windowKey("hourly", req), hourlyWindow)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "increment hourly window")
	}
	if hourCount > limits.Hourly {
		return s.reject(ctx, req, &models.Result{
			Code:       dErrors.CodeRateLimited,
			Reason:     fmt.Sprintf("hourly limit of %d exceeded", limits.Hourly),
			RetryAfter: secondsUntil(now, hourReset),
			ResetAt:    hourReset,
		}, true)
	}

	s.metrics.RecordCheck(string(req.Action), "allowed")
	return &models.Result{
		Allowed:   true,
		Remaining: min(limits.Burst-burstCount, limits.Hourly-hourCount),
	}, nil
}

// reject finalizes a rejection: optionally records a violation, escalating
// to a ban at the configured threshold, then audits and counts the verdict.
func (s *Service) reject(ctx context.Context, req models.Request, result *models.Result, countsAsViolation bool) (*models.Result, error) {
	if countsAsViolation {
		if err := s.recordViolation(ctx, req, requestcontext.Now(ctx)); err != nil {
			return nil, err
		}
	}
	s.metrics.RecordCheck(string(req.Action), verdict(result.Code))
	s.auditRejection(ctx, req, result)
	return result, nil
}

func (s *Service) recordViolation(ctx context.Context, req models.Request, now time.Time) error {
	record, err := s.bans.Get(ctx, req.Actor)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load ban record")
	}
	if record == nil {
		record = &models.BanRecord{Actor: req.Actor}
	}
	record.Violations++

	if record.Violations >= s.cfg.BanThreshold && record.ExpiresAt == nil {
		until := now.Add(s.cfg.BanDuration)
		record.ExpiresAt = &until
		s.metrics.RecordBan()
		s.emit(ctx, audit.Event{
			Timestamp: now,
			Actor:     domain.AccountID(req.Actor),
			Action:    audit.EventActorBanned,
			Decision:  "banned",
			Reason:    fmt.Sprintf("%d violations", record.Violations),
			Details:   map[string]string{"until": until.Format(time.RFC3339)},
		})
	}

	if err := s.bans.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save ban record")
	}
	return nil
}

func (s *Service) auditRejection(ctx context.Context, req models.Request, result *models.Result) {
	s.emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Actor:     domain.AccountID(req.Actor),
		Action:    audit.EventAdmissionRejected,
		Decision:  string(result.Code),
		Reason:    result.Reason,
		Details:   map[string]string{"caller": req.Caller, "action": string(req.Action)},
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	audit.Log(ctx, s.logger, s.publisher, event)
}

func (s *Service) limitsFor(action models.Action) models.Limits {
	if l, ok := s.limits[action]; ok {
		return l
	}
	return models.Limits{Burst: s.cfg.BurstLimit, Hourly: s.cfg.HourlyLimit}
}

func windowKey(window string, req models.Request) string {
	return fmt.Sprintf("admission:%s:%s:%s", window, req.Actor, req.Action)
}

// secondsUntil rounds up so a caller that waits the advertised time always
// lands in the next window.
func secondsUntil(now, deadline time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 1
	}
	return int((remaining + time.Second - 1) / time.Second)
}

func verdict(code dErrors.Code) string {
	switch code {
	case dErrors.CodeRateLimited:
		return "rate_limited"
	case dErrors.CodeBanned:
		return "banned"
	case dErrors.CodeUnauthorizedCaller:
		return "unauthorized_caller"
	default:
		return "rejected"
	}
}
