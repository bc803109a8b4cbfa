package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

func (d Direction) Valid() bool { return d == Income || d == Expense }

type Mode string

const (
	ModePersonal Mode = "personal"
	ModeBusiness Mode = "business"
)

// DebtDirection values are the Indonesian terms stored in debts.type.
type DebtDirection string

const (
	OwedByMe DebtDirection = "hutang"
	OwedToMe DebtDirection = "piutang"
)

type DebtStatus string

const (
	DebtUnpaid DebtStatus = "unpaid"
	DebtPaid   DebtStatus = "paid"
)

type User struct {
	ID                int64
	Username          string
	FirstName         string
	LastName          string
	Tier              string
	SubscriptionStart *time.Time
	SubscriptionEnd   *time.Time
	CreatedAt         time.Time
	LastActive        time.Time
}

type Transaction struct {
	ID          int64
	UserID      int64
	Direction   Direction
	Category    string
	Amount      decimal.Decimal
	Description string
	Mode        Mode
	CreatedAt   time.Time
}

type Debt struct {
	ID           int64
	UserID       int64
	Direction    DebtDirection
	Counterparty string
	Amount       decimal.Decimal
	Description  string
	Status       DebtStatus
	CreatedAt    time.Time
	PaidAt       *time.Time // never set; no paid transition exists yet
}

type Balance struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

func NewBalance(income, expense decimal.Decimal) Balance {
	return Balance{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

type Subscription struct {
	Tier     string
	Start    *time.Time
	End      *time.Time
	IsActive bool
}

// SubscriptionAt derives the subscription view of u at now. An end date in the
// past makes the subscription inactive.
func SubscriptionAt(u User, now time.Time) Subscription {
	s := Subscription{Tier: u.Tier, Start: u.SubscriptionStart, End: u.SubscriptionEnd, IsActive: true}
	if s.Tier == "" {
		s.Tier = TierFree
	}
	if s.End != nil && !now.Before(*s.End) {
		s.IsActive = false
	}
	return s
}

type Stats struct {
	TotalUsers        int
	TotalTransactions int
	ActiveToday       int
}
