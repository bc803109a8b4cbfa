// Package session keeps the in-progress conversation of each user in memory.
// Sessions are lost on restart.
package session

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
)

type Flow string

const (
	FlowTransaction Flow = "transaction"
	FlowDebt        Flow = "debt"
	FlowBroadcast   Flow = "broadcast"
)

type State string

const (
	AwaitingType         State = "awaiting_type"
	AwaitingCategory     State = "awaiting_category"
	AwaitingDirection    State = "awaiting_direction"
	AwaitingCounterparty State = "awaiting_counterparty"
	AwaitingAmount       State = "awaiting_amount"
	AwaitingDescription  State = "awaiting_description"
	AwaitingMessage      State = "awaiting_message"
)

// TransactionDraft is the partially collected transaction.
type TransactionDraft struct {
	Direction  domain.Direction
	Categories []string
	Category   string
	Amount     decimal.Decimal
	Mode       domain.Mode
}

type DebtDraft struct {
	Direction    domain.DebtDirection
	Counterparty string
	Amount       decimal.Decimal
}

type Session struct {
	UserID      int64
	Flow        Flow
	State       State
	Transaction TransactionDraft
	Debt        DebtDraft
}

// Store holds at most one session per user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Start replaces any session the user already has and returns a copy of the
// new one. Changes to the copy are kept only through Update.
func (s *Store) Start(userID int64, flow Flow, state State) Session {
	sess := &Session{UserID: userID, Flow: flow, State: state}
	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()
	return *sess
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Update stores sess if the user still has a session of the same flow.
func (s *Store) Update(sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[sess.UserID]
	if !ok || cur.Flow != sess.Flow {
		return false
	}
	*cur = sess
	return true
}

func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
