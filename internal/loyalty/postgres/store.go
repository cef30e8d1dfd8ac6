package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads loyalty balances. Credits happen only inside the order
// finalization transaction (see checkout), debits only through redemption at
// checkout, so there is no standalone write path here.
type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

func (s *Store) Points(ctx context.Context, userID string) (int, error) {
	var points int
	err := s.pool.QueryRow(ctx, `SELECT points FROM accounts WHERE user_id=$1`, userID).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return points, nil
}

// CreditTx adjusts the balance inside the caller's transaction. delta may be
// negative when a redemption outweighs the points earned.
func CreditTx(ctx context.Context, tx pgx.Tx, userID string, delta int) error {
	_, err := tx.Exec(ctx, `INSERT INTO accounts (user_id, points) VALUES ($1,$2)
		ON CONFLICT (user_id) DO UPDATE SET points = accounts.points + EXCLUDED.points`,
		userID, delta)
	return err
}
