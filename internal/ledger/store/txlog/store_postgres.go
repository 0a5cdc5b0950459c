package txlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
)

// PostgresStore persists the transaction log. The table is insert-only;
// there is deliberately no UPDATE or DELETE path here.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, created_at, actor, kind, amount, balance, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.Timestamp,
		string(tx.Actor),
		string(tx.Kind),
		int64(tx.Amount),
		int64(tx.Balance),
		tx.Note,
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, created_at, actor, kind, amount, balance, note
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor domain.AccountID, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, created_at, actor, kind, amount, balance, note
		FROM transactions
		WHERE actor = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, string(actor), limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions by actor: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PostgresStore) ListSince(ctx context.Context, since time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT id, created_at, actor, kind, amount, balance, note
		FROM transactions
		WHERE created_at >= $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("list transactions since: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for rows.Next() {
		var (
			tx      models.Transaction
			actor   string
			kind    string
			amount  int64
			balance int64
		)
		if err := rows.Scan(&tx.ID, &tx.Timestamp, &actor, &kind, &amount, &balance, &tx.Note); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Actor = domain.AccountID(actor)
		tx.Kind = models.TransactionKind(kind)
		tx.Amount = domain.Amount(amount)
		tx.Balance = domain.Amount(balance)
		out = append(out, &tx)
	}
	return out, rows.Err()
}
