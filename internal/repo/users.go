package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Users struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewUsers(p *pgxpool.Pool) *Users { return &Users{pool: p, now: time.Now} }

// Upsert registers a user on first contact and refreshes the profile
// afterwards. Subscription columns are left untouched on conflict.
func (r *Users) Upsert(ctx context.Context, id int64, username, firstName, lastName string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users(user_id, username, first_name, last_name, last_active)
		VALUES($1,$2,$3,$4,now())
		ON CONFLICT (user_id) DO UPDATE
		SET username=EXCLUDED.username,
			first_name=EXCLUDED.first_name,
			last_name=EXCLUDED.last_name,
			last_active=now()
	`, id, nullable(username), nullable(firstName), nullable(lastName))
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", id, err)
	}
	return nil
}

func (r *Users) TouchLastActive(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_active=now() WHERE user_id=$1`, id)
	if err != nil {
		return fmt.Errorf("touch user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscription returns the stored tier window. Unknown users get the free tier.
func (r *Users) Subscription(ctx context.Context, id int64) (domain.Subscription, error) {
	u := domain.User{ID: id}
	err := r.pool.QueryRow(ctx, `
		SELECT subscription_tier, subscription_start, subscription_end
		FROM users WHERE user_id=$1
	`, id).Scan(&u.Tier, &u.SubscriptionStart, &u.SubscriptionEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SubscriptionAt(u, r.now()), nil
	}
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("get subscription %d: %w", id, err)
	}
	return domain.SubscriptionAt(u, r.now()), nil
}

// SetSubscription moves the user to tier for days starting today and records
// the approval in subscription_history.
func (r *Users) SetSubscription(ctx context.Context, id int64, tier string, days int, price int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start := r.now()
	end := start.AddDate(0, 0, days)

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET subscription_tier=$1, subscription_start=$2::date, subscription_end=$3::date
		WHERE user_id=$4
	`, tier, start, end, id)
	if err != nil {
		return fmt.Errorf("update subscription %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO subscription_history(user_id, tier, amount, payment_method, status, approved_at)
		VALUES($1,$2,$3,'manual','approved',now())
	`, id, tier, price)
	if err != nil {
		return fmt.Errorf("insert subscription history %d: %w", id, err)
	}
	return tx.Commit(ctx)
}

func (r *Users) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	out := make([]int64, 0, 64)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Users) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id,
		       COALESCE(username,''),
		       COALESCE(first_name,''),
		       COALESCE(last_name,''),
		       subscription_tier,
		       subscription_start,
		       subscription_end,
		       created_at,
		       last_active
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.User, 0, 64)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Tier,
			&u.SubscriptionStart, &u.SubscriptionEnd, &u.CreatedAt, &u.LastActive); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Stats aggregates the admin counters. Active today is measured in the
// database's time zone.
func (r *Users) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	err := r.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM transactions),
		       (SELECT COUNT(*) FROM users WHERE last_active::date = CURRENT_DATE)
	`).Scan(&s.TotalUsers, &s.TotalTransactions, &s.ActiveToday)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
