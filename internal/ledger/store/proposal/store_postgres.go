package proposal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

// PostgresStore persists proposals with votes in a joined table keyed by
// (proposal_id, voter), which enforces one vote per voter at the schema
// level as well as in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, proposal *models.Proposal) error {
	params, err := json.Marshal(proposal.Parameters)
	if err != nil {
		return fmt.Errorf("marshal proposal parameters: %w", err)
	}
	query := `
		INSERT INTO proposals (id, creator, description, parameters, yes_weight, no_weight, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		proposal.ID,
		string(proposal.Creator),
		proposal.Description,
		params,
		int64(proposal.YesWeight),
		int64(proposal.NoWeight),
		string(proposal.Status),
		proposal.CreatedAt,
		proposal.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Proposal, error) {
	query := `
		SELECT id, creator, description, parameters, yes_weight, no_weight, status, created_at, expires_at
		FROM proposals
		WHERE id = $1
	`
	proposal, err := scanProposal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "proposal %s not found", id)
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if err := s.loadVotes(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// Update rewrites the proposal row and upserts its votes. Vote rows are only
// ever added, matching the service's one-vote-per-voter rule.
func (s *PostgresStore) Update(ctx context.Context, proposal *models.Proposal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin proposal update: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE proposals
		SET yes_weight = $2, no_weight = $3, status = $4
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, query,
		proposal.ID,
		int64(proposal.YesWeight),
		int64(proposal.NoWeight),
		string(proposal.Status),
	)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "proposal %s not found", proposal.ID)
	}

	voteQuery := `
		INSERT INTO proposal_votes (proposal_id, voter, choice, weight, cast_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (proposal_id, voter) DO NOTHING
	`
	for voter, vote := range proposal.Votes {
		if _, err := tx.ExecContext(ctx, voteQuery,
			proposal.ID,
			string(voter),
			string(vote.Choice),
			int64(vote.Weight),
			vote.CastAt,
		); err != nil {
			return fmt.Errorf("upsert proposal vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit proposal update: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Proposal, error) {
	query := `
		SELECT id, creator, description, parameters, yes_weight, no_weight, status, created_at, expires_at
		FROM proposals
		WHERE status = 'active'
		ORDER BY created_at ASC
	`
	return s.list(ctx, query, "list active proposals")
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Proposal, error) {
	query := `
		SELECT id, creator, description, parameters, yes_weight, no_weight, status, created_at, expires_at
		FROM proposals
		ORDER BY created_at ASC
	`
	return s.list(ctx, query, "list proposals")
}

func (s *PostgresStore) list(ctx context.Context, query, op string) ([]*models.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		proposals = append(proposals, proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, proposal := range proposals {
		if err := s.loadVotes(ctx, proposal); err != nil {
			return nil, err
		}
	}
	return proposals, nil
}

func (s *PostgresStore) loadVotes(ctx context.Context, proposal *models.Proposal) error {
	query := `
		SELECT voter, choice, weight, cast_at
		FROM proposal_votes
		WHERE proposal_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, proposal.ID)
	if err != nil {
		return fmt.Errorf("load proposal votes: %w", err)
	}
	defer rows.Close()

	proposal.Votes = make(map[domain.AccountID]models.Vote)
	for rows.Next() {
		var (
			voter  string
			choice string
			weight int64
			vote   models.Vote
		)
		if err := rows.Scan(&voter, &choice, &weight, &vote.CastAt); err != nil {
			return fmt.Errorf("scan proposal vote: %w", err)
		}
		vote.Voter = domain.AccountID(voter)
		vote.Choice = models.VoteChoice(choice)
		vote.Weight = domain.Amount(weight)
		proposal.Votes[vote.Voter] = vote
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (*models.Proposal, error) {
	var (
		proposal  models.Proposal
		creator   string
		params    []byte
		yesWeight int64
		noWeight  int64
		status    string
	)
	err := row.Scan(&proposal.ID, &creator, &proposal.Description, &params, &yesWeight, &noWeight, &status, &proposal.CreatedAt, &proposal.ExpiresAt)
	if err != nil {
		return nil, err
	}
	proposal.Creator = domain.AccountID(creator)
	proposal.YesWeight = domain.Amount(yesWeight)
	proposal.NoWeight = domain.Amount(noWeight)
	proposal.Status = models.ProposalStatus(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &proposal.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal proposal parameters: %w", err)
		}
	}
	return &proposal, nil
}
