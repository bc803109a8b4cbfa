package bot

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/satriacloudx/FinanceBotMe/internal/config"
	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/metrics"
	"github.com/satriacloudx/FinanceBotMe/internal/render"
	"github.com/satriacloudx/FinanceBotMe/internal/repo"
	"github.com/satriacloudx/FinanceBotMe/internal/session"
)

const (
	adminID = int64(1)
	userID  = int64(42)
)

var (
	errDown = errors.New("store unavailable")
	now     = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

type outbound struct {
	ChatID int64
	Kind   string // text, edit, photo, document
	Msg    Message
	File   File
}

type fakeMessenger struct {
	mu      sync.Mutex
	out     []outbound
	failFor map[int64]bool
}

func (m *fakeMessenger) record(o outbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[o.ChatID] {
		return errors.New("chat not found")
	}
	m.out = append(m.out, o)
	return nil
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, msg Message) error {
	return m.record(outbound{ChatID: chatID, Kind: "text", Msg: msg})
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, _ int, msg Message) error {
	return m.record(outbound{ChatID: chatID, Kind: "edit", Msg: msg})
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID int64, f File, caption string) error {
	return m.record(outbound{ChatID: chatID, Kind: "photo", File: f, Msg: Message{Text: caption}})
}

func (m *fakeMessenger) SendDocument(_ context.Context, chatID int64, f File, caption string) error {
	return m.record(outbound{ChatID: chatID, Kind: "document", File: f, Msg: Message{Text: caption}})
}

func (m *fakeMessenger) to(chatID int64) []outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []outbound
	for _, o := range m.out {
		if o.ChatID == chatID {
			res = append(res, o)
		}
	}
	return res
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	m.out = nil
	m.mu.Unlock()
}

// texts joins everything sent to chatID.
func (m *fakeMessenger) texts(chatID int64) string {
	var b strings.Builder
	for _, o := range m.to(chatID) {
		b.WriteString(o.Msg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

type fakeUsers struct {
	users map[int64]*domain.User
	err   error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[int64]*domain.User{}} }

func (f *fakeUsers) Upsert(_ context.Context, id int64, username, firstName, lastName string) error {
	if f.err != nil {
		return f.err
	}
	u, ok := f.users[id]
	if !ok {
		u = &domain.User{ID: id, Tier: domain.TierFree, CreatedAt: now}
		f.users[id] = u
	}
	u.Username, u.FirstName, u.LastName = username, firstName, lastName
	u.LastActive = now
	return nil
}

func (f *fakeUsers) TouchLastActive(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.LastActive = now
	return nil
}

func (f *fakeUsers) Subscription(_ context.Context, id int64) (domain.Subscription, error) {
	if f.err != nil {
		return domain.Subscription{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return domain.SubscriptionAt(domain.User{ID: id}, now), nil
	}
	return domain.SubscriptionAt(*u, now), nil
}

func (f *fakeUsers) SetSubscription(_ context.Context, id int64, tier string, days int, _ int64) error {
	u, ok := f.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	start, end := now, now.AddDate(0, 0, days)
	u.Tier, u.SubscriptionStart, u.SubscriptionEnd = tier, &start, &end
	return nil
}

func (f *fakeUsers) set(id int64, tier string, end time.Time) {
	u, ok := f.users[id]
	if !ok {
		u = &domain.User{ID: id}
		f.users[id] = u
	}
	u.Tier, u.SubscriptionEnd = tier, &end
}

func (f *fakeUsers) ListIDs(context.Context) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeUsers) List(ctx context.Context) ([]domain.User, error) {
	ids, err := f.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		res = append(res, *f.users[id])
	}
	return res, nil
}

func (f *fakeUsers) Stats(context.Context) (domain.Stats, error) {
	return domain.Stats{TotalUsers: len(f.users)}, nil
}

type fakeTransactions struct {
	rows []domain.Transaction
	err  error
}

func (f *fakeTransactions) Create(_ context.Context, t domain.Transaction) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	t.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, t)
	return t.ID, nil
}

func (f *fakeTransactions) add(userID int64, dir domain.Direction, category string, amount int64) {
	f.rows = append(f.rows, domain.Transaction{
		ID:        int64(len(f.rows) + 1),
		UserID:    userID,
		Direction: dir,
		Category:  category,
		Amount:    decimal.NewFromInt(amount),
		Mode:      domain.ModePersonal,
		CreatedAt: now,
	})
}

func (f *fakeTransactions) of(userID int64) []domain.Transaction {
	var res []domain.Transaction
	for _, t := range f.rows {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	return res
}

func (f *fakeTransactions) Count(_ context.Context, userID int64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.of(userID)), nil
}

func (f *fakeTransactions) Balance(_ context.Context, userID int64, mode domain.Mode) (domain.Balance, error) {
	return f.balance(userID, mode, func(domain.Transaction) bool { return true }), nil
}

func (f *fakeTransactions) MonthlyBalance(_ context.Context, userID int64, mode domain.Mode, at time.Time) (domain.Balance, error) {
	return f.balance(userID, mode, func(t domain.Transaction) bool {
		return t.CreatedAt.Year() == at.Year() && t.CreatedAt.Month() == at.Month()
	}), nil
}

func (f *fakeTransactions) balance(userID int64, mode domain.Mode, keep func(domain.Transaction) bool) domain.Balance {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range f.of(userID) {
		if t.Mode != mode || !keep(t) {
			continue
		}
		if t.Direction == domain.Income {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return domain.NewBalance(income, expense)
}

func (f *fakeTransactions) ByCategory(_ context.Context, userID int64, dir domain.Direction, mode domain.Mode) ([]domain.CategoryTotal, error) {
	totals := map[string]decimal.Decimal{}
	for _, t := range f.of(userID) {
		if t.Direction == dir && t.Mode == mode {
			totals[t.Category] = totals[t.Category].Add(t.Amount)
		}
	}
	res := make([]domain.CategoryTotal, 0, len(totals))
	for c, v := range totals {
		res = append(res, domain.CategoryTotal{Category: c, Total: v})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Total.GreaterThan(res[j].Total) })
	return res, nil
}

func (f *fakeTransactions) List(_ context.Context, userID int64, mode domain.Mode) ([]domain.Transaction, error) {
	var res []domain.Transaction
	rows := f.of(userID)
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Mode == mode {
			res = append(res, rows[i])
		}
	}
	return res, nil
}

type fakeDebts struct {
	rows []domain.Debt
	err  error
}

func (f *fakeDebts) Create(_ context.Context, d domain.Debt) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	d.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, d)
	return d.ID, nil
}

func (f *fakeDebts) List(_ context.Context, userID int64, status domain.DebtStatus) ([]domain.Debt, error) {
	var res []domain.Debt
	for i := len(f.rows) - 1; i >= 0; i-- {
		if d := f.rows[i]; d.UserID == userID && d.Status == status {
			res = append(res, d)
		}
	}
	return res, nil
}

type harness struct {
	*Handler
	msg      *fakeMessenger
	users    *fakeUsers
	txs      *fakeTransactions
	debts    *fakeDebts
	sessions *session.Store
	metrics  *metrics.Collector
	catalog  domain.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hs := &harness{
		msg:      &fakeMessenger{failFor: map[int64]bool{}},
		users:    newFakeUsers(),
		txs:      &fakeTransactions{},
		debts:    &fakeDebts{},
		sessions: session.NewStore(),
		metrics:  metrics.New(),
		catalog:  domain.DefaultCatalog(),
	}
	cfg := config.Config{
		AdminID:         adminID,
		DefaultPlanDays: 30,
		PaymentInfo:     "Transfer to BCA 1234567890",
		AdminContactURL: "https://t.me/financeadmin",
	}
	hs.Handler = NewHandler(cfg, Deps{
		Messenger:    hs.msg,
		Users:        hs.users,
		Transactions: hs.txs,
		Debts:        hs.debts,
		Sessions:     hs.sessions,
		Charts:       render.NewCharts(),
		Exporter:     render.NewExporter(),
		Catalog:      hs.catalog,
		Metrics:      hs.metrics,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, hs.users.Upsert(context.Background(), adminID, "admin", "Admin", ""))
	require.NoError(t, hs.users.Upsert(context.Background(), userID, "budi", "Budi", "Santoso"))
	return hs
}

func (hs *harness) action(user int64, data string) {
	hs.Handle(context.Background(), Event{Kind: ActionEvent, UserID: user, ChatID: user, MessageID: 100, Data: data})
}

func (hs *harness) text(user int64, text string) {
	hs.Handle(context.Background(), Event{Kind: TextEvent, UserID: user, ChatID: user, Data: text})
}

func (hs *harness) state(user int64) session.State {
	sess, ok := hs.sessions.Get(user)
	if !ok {
		return ""
	}
	return sess.State
}
