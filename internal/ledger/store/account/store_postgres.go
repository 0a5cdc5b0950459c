package account

import (
	"context"
	"database/sql"
	"fmt"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
	dErrors "dustledger/pkg/errors"
)

// PostgresStore persists accounts in PostgreSQL. Pure I/O; overdraft and
// stake policy belong to the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	query := `
		SELECT identity, balance, staked, stake_started_at, reputation, created_at, last_activity_at
		FROM accounts
		WHERE identity = $1
	`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, string(id)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "account %s not found", id)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	query := `
		INSERT INTO accounts (identity, balance, staked, stake_started_at, reputation, created_at, last_activity_at)
		VALUES ($1, 0, 0, NULL, 0, NOW(), NOW())
		ON CONFLICT (identity) DO UPDATE SET
			identity = EXCLUDED.identity
		RETURNING identity, balance, staked, stake_started_at, reputation, created_at, last_activity_at
	`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, string(id)))
	if err != nil {
		return nil, fmt.Errorf("get or create account: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) Save(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (identity, balance, staked, stake_started_at, reputation, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity) DO UPDATE SET
			balance = EXCLUDED.balance,
			staked = EXCLUDED.staked,
			stake_started_at = EXCLUDED.stake_started_at,
			reputation = EXCLUDED.reputation,
			last_activity_at = EXCLUDED.last_activity_at
	`
	_, err := s.db.ExecContext(ctx, query,
		string(account.ID),
		int64(account.Balance),
		int64(account.Staked),
		account.StakeStartedAt,
		account.Reputation,
		account.CreatedAt,
		account.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT identity, balance, staked, stake_started_at, reputation, created_at, last_activity_at
		FROM accounts
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account  models.Account
		identity string
		balance  int64
		staked   int64
	)
	err := row.Scan(&identity, &balance, &staked, &account.StakeStartedAt, &account.Reputation, &account.CreatedAt, &account.LastActivityAt)
	if err != nil {
		return nil, err
	}
	account.ID = domain.AccountID(identity)
	account.Balance = domain.Amount(balance)
	account.Staked = domain.Amount(staked)
	return &account, nil
}
