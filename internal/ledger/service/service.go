// Package service implements the ledger core: every balance mutation, the
// append-only transaction log, staking, governance, and the reserve ledger.
//
// Mutations on a single account are linearized through per-key locks;
// operations on disjoint accounts run fully in parallel. Stores stay pure
// I/O so the same rules hold over memory and postgres backends.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dustledger/internal/ledger/metrics"
	"dustledger/internal/ledger/models"
	"dustledger/internal/ledger/ports"
	"dustledger/internal/platform/config"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/platform/audit"
	"dustledger/pkg/requestcontext"
)

// Type aliases for interfaces from the ports package so callers don't need
// to import ports directly.
type (
	AccountStore     = ports.AccountStore
	TransactionLog   = ports.TransactionLog
	ProposalStore    = ports.ProposalStore
	ReserveStore     = ports.ReserveStore
	ReputationSource = ports.ReputationSource
)

type Service struct {
	accounts   AccountStore
	txlog      TransactionLog
	proposals  ProposalStore
	reserve    ReserveStore
	reputation ReputationSource

	cfg       config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher audit.Publisher

	// accountLocks serializes read-modify-write per account key. Transfer
	// acquires both keys in lexical order to stay deadlock-free.
	accountLocks keyedLocks[domain.AccountID]
	// proposalLocks serializes vote tallies and resolution per proposal.
	proposalLocks keyedLocks[string]
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

func WithReputationSource(source ReputationSource) Option {
	return func(s *Service) { s.reputation = source }
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		accounts:  accounts,
		txlog:     txlog,
		proposals: proposals,
		reserve:   reserve,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// guardSystem rejects caller-facing mutations on system accounts. Internal
// bookkeeping reaches them through mutateLocked while holding their lock;
// letting callers in would also let an operation re-lock its own account key.
func guardSystem(id domain.AccountID) error {
	if id.IsSystem() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "system account %s cannot be operated on directly", id)
	}
	return nil
}

// Credit adds amount to the account's liquid balance and appends a log entry
// carrying the post-operation balance.
func (s *Service) Credit(ctx context.Context, id domain.AccountID, amount domain.Amount, note string) error {
	if err := guardSystem(id); err != nil {
		s.recordOp(models.KindCredit, "rejected")
		return err
	}
	if amount < 0 {
		s.recordOp(models.KindCredit, "rejected")
		return dErrors.New(dErrors.CodeInvalidInput, "credit amount cannot be negative")
	}
	unlock := s.accountLocks.lock(id)
	defer unlock()

	err := s.mutateLocked(ctx, id, models.KindCredit, amount, note, func(account *models.Account) error {
		account.Balance += amount
		return nil
	})
	s.recordOp(models.KindCredit, outcome(err))
	return err
}

// Debit removes amount from the account's liquid balance. Overdrawing is
// rejected with insufficient_funds; internal bookkeeping that may go
// negative uses debitUnchecked at explicitly marked call sites instead.
func (s *Service) Debit(ctx context.Context, id domain.AccountID, amount domain.Amount, note string) error {
	if err := guardSystem(id); err != nil {
		s.recordOp(models.KindDebit, "rejected")
		return err
	}
	if amount < 0 {
		s.recordOp(models.KindDebit, "rejected")
		return dErrors.New(dErrors.CodeInvalidInput, "debit amount cannot be negative")
	}
	unlock := s.accountLocks.lock(id)
	defer unlock()

	err := s.debitLocked(ctx, id, amount, note)
	s.recordOp(models.KindDebit, outcome(err))
	return err
}

func (s *Service) debitLocked(ctx context.Context, id domain.AccountID, amount domain.Amount, note string) error {
	return s.mutateLocked(ctx, id, models.KindDebit, amount, note, func(account *models.Account) error {
		if account.Balance < amount {
			return dErrors.Newf(dErrors.CodeInsufficientFunds,
				"balance %s is less than debit %s", account.Balance, amount)
		}
		account.Balance -= amount
		return nil
	})
}

// debitUnchecked applies a debit that is explicitly permitted to overdraw.
// Only system accounts take this path; a negative balance on a user account
// is a bug, not a policy.
func (s *Service) debitUnchecked(ctx context.Context, id domain.AccountID, amount domain.Amount, note string) error {
	return s.mutateLocked(ctx, id, models.KindDebit, amount, note, func(account *models.Account) error {
		account.Balance -= amount
		return nil
	})
}

// mutateLocked applies one balance mutation and appends its log entry. The
// caller must hold the account lock.
func (s *Service) mutateLocked(ctx context.Context, id domain.AccountID, kind models.TransactionKind, amount domain.Amount, note string, apply func(*models.Account) error) error {
	account, err := s.accounts.GetOrCreate(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load account")
	}
	if err := apply(account); err != nil {
		return err
	}
	account.LastActivityAt = requestcontext.Now(ctx)
	if err := s.accounts.Save(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save account")
	}
	if err := s.appendLog(ctx, id, kind, amount, account.Balance, note); err != nil {
		return err
	}
	s.emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Actor:     id,
		Action:    string(kind),
		Decision:  "applied",
		Amount:    amount,
		Details:   map[string]string{"note": note},
	})
	return nil
}

func (s *Service) appendLog(ctx context.Context, actor domain.AccountID, kind models.TransactionKind, amount, balance domain.Amount, note string) error {
	entry, err := models.NewTransaction(actor, kind, amount, balance, note)
	if err != nil {
		return err
	}
	entry.Timestamp = requestcontext.Now(ctx)
	if err := s.txlog.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append transaction")
	}
	return nil
}

// Balance returns the liquid balance, or not_found for unknown accounts.
func (s *Service) Balance(ctx context.Context, id domain.AccountID) (domain.Amount, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.Liquid(), nil
}

// GetAccount returns the full account record. When a reputation source is
// wired, the returned copy carries the current external score.
func (s *Service) GetAccount(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.reputation != nil {
		if score, err := s.reputation.Reputation(ctx, id); err == nil {
			account.Reputation = score
		}
	}
	return account, nil
}

// RecentTransactions returns up to limit log entries, newest first.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]*models.Transaction, error) {
	entries, err := s.txlog.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list recent transactions")
	}
	return entries, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	audit.Log(ctx, s.logger, s.publisher, event)
}

func (s *Service) recordOp(kind models.TransactionKind, outcome string) {
	s.metrics.RecordOperation(string(kind), outcome)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if dErrors.IsFatal(err) {
		return "error"
	}
	return "rejected"
}

// keyedLocks hands out one mutex per key. Keys are never garbage collected;
// the population of accounts and proposals is bounded in this system.
type keyedLocks[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*sync.Mutex
}

func (k *keyedLocks[K]) get(key K) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[K]*sync.Mutex)
	}
	if l, ok := k.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.locks[key] = l
	return l
}

func (k *keyedLocks[K]) lock(key K) func() {
	l := k.get(key)
	l.Lock()
	return l.Unlock
}

// lockOrdered acquires every key's lock in a deterministic global order so
// multi-account operations cannot deadlock.
func lockOrdered(locks *keyedLocks[domain.AccountID], keys ...domain.AccountID) func() {
	sorted := append([]domain.AccountID(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	unlocks := make([]func(), 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		unlocks = append(unlocks, locks.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// elapsedDays converts a duration into fractional days for yield math.
func elapsedDays(d time.Duration) float64 {
	return d.Hours() / 24
}
