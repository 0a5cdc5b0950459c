package reserve

import (
	"context"
	"database/sql"
	"fmt"

	"dustledger/internal/ledger/models"
	"dustledger/pkg/domain"
)

// PostgresStore keeps the reserve as a single row, incremented atomically so
// concurrent burns never lose an update.
type PostgresStore struct {
	db           *sql.DB
	backingRatio float64
}

func NewPostgresStore(db *sql.DB, backingRatio float64) *PostgresStore {
	return &PostgresStore{db: db, backingRatio: backingRatio}
}

func (s *PostgresStore) Get(ctx context.Context) (models.Reserve, error) {
	var units int64
	err := s.db.QueryRowContext(ctx, `SELECT units FROM reserve WHERE id = 1`).Scan(&units)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Reserve{BackingRatio: s.backingRatio}, nil
		}
		return models.Reserve{}, fmt.Errorf("get reserve: %w", err)
	}
	return models.Reserve{Units: domain.Amount(units), BackingRatio: s.backingRatio}, nil
}

func (s *PostgresStore) Add(ctx context.Context, units domain.Amount) (models.Reserve, error) {
	query := `
		INSERT INTO reserve (id, units)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET units = reserve.units + EXCLUDED.units
		RETURNING units
	`
	var total int64
	if err := s.db.QueryRowContext(ctx, query, int64(units)).Scan(&total); err != nil {
		return models.Reserve{}, fmt.Errorf("add reserve: %w", err)
	}
	return models.Reserve{Units: domain.Amount(total), BackingRatio: s.backingRatio}, nil
}
