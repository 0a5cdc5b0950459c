// Package handler exposes the ledger call boundary over HTTP. Every
// mutating route passes the admission gate before reaching the ledger
// service; read routes bypass it.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	admission "dustledger/internal/admission/models"
	"dustledger/internal/ledger/models"
	"dustledger/internal/ledger/service"
	"dustledger/internal/transport/http/shared"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
	"dustledger/pkg/requestcontext"
)

// Service is the ledger surface the handler delegates to.
type Service interface {
	Credit(ctx context.Context, id domain.AccountID, amount domain.Amount, note string) error
	Debit(ctx context.Context, id domain.AccountID, amount domain.Amount, note string) error
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount, note string, waiveFee bool) (*service.TransferResult, error)
	Stake(ctx context.Context, id domain.AccountID, amount domain.Amount) error
	Unstake(ctx context.Context, id domain.AccountID, amount domain.Amount) (*service.UnstakeResult, error)

	Balance(ctx context.Context, id domain.AccountID) (domain.Amount, error)
	GetAccount(ctx context.Context, id domain.AccountID) (*models.Account, error)
	RecentTransactions(ctx context.Context, limit int) ([]*models.Transaction, error)

	CreateProposal(ctx context.Context, creator domain.AccountID, description string, params map[string]string) (*models.Proposal, error)
	CastVote(ctx context.Context, proposalID string, voter domain.AccountID, choice models.VoteChoice) error
	ActiveProposals(ctx context.Context) ([]*models.Proposal, error)

	AddReserve(ctx context.Context, units domain.Amount, note string) (models.Reserve, error)
	ReserveStatus(ctx context.Context) (*models.ReserveStatus, error)
}

// Gate is the admission check fronting mutating routes.
type Gate interface {
	Check(ctx context.Context, req admission.Request) (*admission.Result, error)
}

// ProofVerifier validates reserve deposit proofs per chain.
type ProofVerifier interface {
	Verify(ctx context.Context, chain string, publicKey, message, signature []byte) error
}

type Handler struct {
	ledger   Service
	gate     Gate
	verifier ProofVerifier
	logger   *slog.Logger
}

func New(ledger Service, gate Gate, verifier ProofVerifier, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, gate: gate, verifier: verifier, logger: logger}
}

// Register mounts the ledger, governance, and reserve routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Post("/credit", h.handleCredit)
		r.Post("/debit", h.handleDebit)
		r.Post("/transfer", h.handleTransfer)
		r.Post("/stake", h.handleStake)
		r.Post("/unstake", h.handleUnstake)
		r.Get("/balance/{account}", h.handleBalance)
		r.Get("/accounts/{account}", h.handleGetAccount)
		r.Get("/transactions", h.handleTransactions)
	})
	r.Route("/governance", func(r chi.Router) {
		r.Post("/proposals", h.handleCreateProposal)
		r.Post("/proposals/{id}/votes", h.handleCastVote)
		r.Get("/proposals", h.handleActiveProposals)
	})
	r.Route("/reserve", func(r chi.Router) {
		r.Post("/deposits", h.handleDeposit)
		r.Get("/", h.handleReserveStatus)
	})
}

// admit runs the admission gate for a mutating call. It writes the
// rejection itself and reports whether the handler may proceed.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, actor string, action admission.Action, payload map[string]string) bool {
	result, err := h.gate.Check(r.Context(), admission.Request{
		Caller:  requestcontext.Caller(r.Context()),
		Actor:   actor,
		Action:  action,
		Payload: payload,
	})
	if err != nil {
		shared.WriteError(w, err)
		return false
	}
	if result.Allowed {
		return true
	}
	if result.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	}
	shared.WriteJSON(w, dErrors.HTTPStatus(result.Code), shared.ErrorResponse{
		Error:   string(result.Code),
		Message: result.Reason,
	})
	return false
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if !decode(w, r, &req) {
		return
	}
	id, amount, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.admit(w, r, req.Account, admission.ActionCredit, map[string]string{"note": req.Note}) {
		return
	}
	if err := h.ledger.Credit(r.Context(), id, amount, req.Note); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeBalance(w, r, id)
}

func (h *Handler) handleDebit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if !decode(w, r, &req) {
		return
	}
	id, amount, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.admit(w, r, req.Account, admission.ActionDebit, map[string]string{"note": req.Note}) {
		return
	}
	if err := h.ledger.Debit(r.Context(), id, amount, req.Note); err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeBalance(w, r, id)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	from, to, amount, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.admit(w, r, req.From, admission.ActionTransfer, map[string]string{"note": req.Note, "to": req.To}) {
		return
	}
	result, err := h.ledger.Transfer(r.Context(), from, to, amount, req.Note, req.WaiveFee)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !decode(w, r, &req) {
		return
	}
	id, amount, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.admit(w, r, req.Account, admission.ActionStake, nil) {
		return
	}
	if err := h.ledger.Stake(r.Context(), id, amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !decode(w, r, &req) {
		return
	}
	id, amount, err := req.parse()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !h.admit(w, r, req.Account, admission.ActionUnstake, nil) {
		return
	}
	result, err := h.ledger.Unstake(r.Context(), id, amount)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeBalance(w, r, id)
}

func (h *Handler) writeBalance(w http.ResponseWriter, r *http.Request, id domain.AccountID) {
	balance, err := h.ledger.Balance(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"account": id,
		"balance": balance.Float(),
	})
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	account, err := h.ledger.GetAccount(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be in [1, 1000]"))
			return
		}
		limit = parsed
	}
	entries, err := h.ledger.RecentTransactions(r.Context(), limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if !decode(w, r, &req) {
		return
	}
	creator, err := domain.ParseAccountID(req.Creator)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	payload := map[string]string{"description": req.Description}
	if !h.admit(w, r, req.Creator, admission.ActionProposal, payload) {
		return
	}
	proposal, err := h.ledger.CreateProposal(r.Context(), creator, req.Description, req.Parameters)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, proposal)
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decode(w, r, &req) {
		return
	}
	voter, err := domain.ParseAccountID(req.Voter)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	choice := models.VoteChoice(req.Choice)
	if !choice.IsValid() {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "invalid vote choice %q", req.Choice))
		return
	}
	if !h.admit(w, r, req.Voter, admission.ActionVote, nil) {
		return
	}
	if err := h.ledger.CastVote(r.Context(), chi.URLParam(r, "id"), voter, choice); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActiveProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.ledger.ActiveProposals(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, proposals)
}

// handleDeposit records externally backed reserve units. The deposit proof
// is verified against the named chain before any units are added.
func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	units, err := domain.ParseAmount(req.Units)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.verifier.Verify(r.Context(), req.Chain, req.PublicKey, req.Message, req.Signature); err != nil {
		h.logger.WarnContext(r.Context(), "deposit proof rejected",
			"chain", req.Chain,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		shared.WriteError(w, err)
		return
	}
	if !h.admit(w, r, requestcontext.Caller(r.Context()), admission.ActionReserve, nil) {
		return
	}
	reserve, err := h.ledger.AddReserve(r.Context(), units, req.Note)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reserve)
}

func (h *Handler) handleReserveStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.ledger.ReserveStatus(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, status)
}
