package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
)

type Transactions struct{ pool *pgxpool.Pool }

func NewTransactions(p *pgxpool.Pool) *Transactions { return &Transactions{pool: p} }

func (r *Transactions) Create(ctx context.Context, t domain.Transaction) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions(user_id, type, category, amount, description, mode)
		VALUES($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, t.UserID, t.Direction, t.Category, t.Amount, t.Description, t.Mode).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (r *Transactions) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id=$1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *Transactions) Balance(ctx context.Context, userID int64, mode domain.Mode) (domain.Balance, error) {
	return r.balance(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE type='income'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE type='expense'), 0)
		FROM transactions
		WHERE user_id=$1 AND mode=$2
	`, userID, mode)
}

// MonthlyBalance limits the totals to the calendar month containing now.
func (r *Transactions) MonthlyBalance(ctx context.Context, userID int64, mode domain.Mode, now time.Time) (domain.Balance, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)
	return r.balance(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE type='income'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE type='expense'), 0)
		FROM transactions
		WHERE user_id=$1 AND mode=$2 AND created_at >= $3 AND created_at < $4
	`, userID, mode, from, to)
}

func (r *Transactions) balance(ctx context.Context, query string, args ...any) (domain.Balance, error) {
	var b domain.Balance
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.Income, &b.Expense); err != nil {
		return domain.Balance{}, fmt.Errorf("balance: %w", err)
	}
	return domain.NewBalance(b.Income, b.Expense), nil
}

func (r *Transactions) ByCategory(ctx context.Context, userID int64, dir domain.Direction, mode domain.Mode) ([]domain.CategoryTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, SUM(amount) AS total
		FROM transactions
		WHERE user_id=$1 AND type=$2 AND mode=$3
		GROUP BY category
		ORDER BY total DESC, category
	`, userID, dir, mode)
	if err != nil {
		return nil, fmt.Errorf("transactions by category: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CategoryTotal, 0, 16)
	for rows.Next() {
		var c domain.CategoryTotal
		if err := rows.Scan(&c.Category, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// List returns every transaction of the user in mode, newest first.
func (r *Transactions) List(ctx context.Context, userID int64, mode domain.Mode) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, category, amount, description, mode, created_at
		FROM transactions
		WHERE user_id=$1 AND mode=$2
		ORDER BY created_at DESC, id DESC
	`, userID, mode)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0, 32)
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Direction, &t.Category, &t.Amount,
			&t.Description, &t.Mode, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
