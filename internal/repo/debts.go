package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
)

type Debts struct{ pool *pgxpool.Pool }

func NewDebts(p *pgxpool.Pool) *Debts { return &Debts{pool: p} }

func (r *Debts) Create(ctx context.Context, d domain.Debt) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO debts(user_id, type, person_name, amount, description)
		VALUES($1,$2,$3,$4,$5)
		RETURNING id
	`, d.UserID, d.Direction, d.Counterparty, d.Amount, d.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert debt: %w", err)
	}
	return id, nil
}

// List returns the user's debts with the given status, newest first.
func (r *Debts) List(ctx context.Context, userID int64, status domain.DebtStatus) ([]domain.Debt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, person_name, amount, description, status, created_at, paid_at
		FROM debts
		WHERE user_id=$1 AND status=$2
		ORDER BY created_at DESC, id DESC
	`, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Debt, 0, 32)
	for rows.Next() {
		var d domain.Debt
		if err := rows.Scan(&d.ID, &d.UserID, &d.Direction, &d.Counterparty, &d.Amount,
			&d.Description, &d.Status, &d.CreatedAt, &d.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
