package handler

import (
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

type creditRequest struct {
	Account string  `json:"account"`
	Amount  float64 `json:"amount"`
	Note    string  `json:"note,omitempty"`
}

func (r creditRequest) parse() (domain.AccountID, domain.Amount, error) {
	id, err := domain.ParseAccountID(r.Account)
	if err != nil {
		return "", 0, err
	}
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return "", 0, err
	}
	return id, amount, nil
}

type transferRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note,omitempty"`
	WaiveFee bool    `json:"waive_fee,omitempty"`
}

func (r transferRequest) parse() (from, to domain.AccountID, amount domain.Amount, err error) {
	if from, err = domain.ParseAccountID(r.From); err != nil {
		return
	}
	if to, err = domain.ParseAccountID(r.To); err != nil {
		return
	}
	amount, err = domain.ParseAmount(r.Amount)
	return
}

type stakeRequest struct {
	Account string  `json:"account"`
	Amount  float64 `json:"amount"`
}

func (r stakeRequest) parse() (domain.AccountID, domain.Amount, error) {
	id, err := domain.ParseAccountID(r.Account)
	if err != nil {
		return "", 0, err
	}
	amount, err := domain.ParseAmount(r.Amount)
	if err != nil {
		return "", 0, err
	}
	return id, amount, nil
}

type proposalRequest struct {
	Creator     string            `json:"creator"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

type voteRequest struct {
	Voter  string `json:"voter"`
	Choice string `json:"choice"`
}

type depositRequest struct {
	Units     float64 `json:"units"`
	Note      string  `json:"note,omitempty"`
	Chain     string  `json:"chain"`
	PublicKey []byte  `json:"public_key"`
	Message   []byte  `json:"message"`
	Signature []byte  `json:"signature"`
}

func (r depositRequest) validate() error {
	if r.Chain == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "chain is required")
	}
	if len(r.Message) == 0 || len(r.Signature) == 0 || len(r.PublicKey) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "deposit proof is incomplete")
	}
	return nil
}
