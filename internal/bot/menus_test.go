package bot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type editRejecting struct{ *fakeMessenger }

func (editRejecting) Edit(context.Context, int64, int, Message) error {
	return errors.New("message can't be edited")
}

func lastOf(t *testing.T, hs *harness, chatID int64, kind string) outbound {
	t.Helper()
	out := hs.msg.to(chatID)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Kind == kind {
			return out[i]
		}
	}
	t.Fatalf("no %s sent to %d", kind, chatID)
	return outbound{}
}

func hasAction(kb Keyboard, action string) bool {
	for _, row := range kb {
		for _, b := range row {
			if b.Action == action {
				return true
			}
		}
	}
	return false
}

func TestStartRegistersUser(t *testing.T) {
	hs := newHarness(t)

	hs.Handle(context.Background(), Event{Kind: TextEvent, UserID: 7, ChatID: 7, Username: "sari", FirstName: "Sari", Data: "/start"})

	u, ok := hs.users.users[7]
	require.True(t, ok)
	assert.Equal(t, "sari", u.Username)
	msg := lastOf(t, hs, 7, "text")
	assert.Contains(t, msg.Msg.Text, "Hello, <b>Sari</b>")
	assert.True(t, hasAction(msg.Msg.Keyboard, actAddTx))
	assert.False(t, hasAction(msg.Msg.Keyboard, actAdminPanel))
}

func TestActionFromUnknownUserRegisters(t *testing.T) {
	hs := newHarness(t)

	hs.action(9, actHelp)

	_, ok := hs.users.users[9]
	assert.True(t, ok)
}

func TestAdminSeesAdminButton(t *testing.T) {
	hs := newHarness(t)
	hs.text(adminID, "/start")
	assert.True(t, hasAction(lastOf(t, hs, adminID, "text").Msg.Keyboard, actAdminPanel))
}

func TestDashboard(t *testing.T) {
	hs := newHarness(t)
	hs.txs.add(userID, domain.Income, "Salary", 1000000)
	hs.txs.add(userID, domain.Expense, "Food", 800000)

	hs.action(userID, actDashboard)

	text := lastOf(t, hs, userID, "edit").Msg.Text
	assert.Contains(t, text, "Balance: Rp 200.000")
	assert.Contains(t, text, "March")
	assert.Contains(t, text, "Expense ratio: 80.0%")
	assert.Contains(t, text, "Moderate")
}

func TestExpenseStatus(t *testing.T) {
	tests := []struct {
		income, expense int64
		want            string
	}{
		{0, 500, "Healthy"},
		{1000, 700, "Healthy"},
		{1000, 701, "Moderate"},
		{1000, 950, "High spending"},
	}
	for _, tt := range tests {
		b := domain.NewBalance(dec(tt.income), dec(tt.expense))
		assert.Contains(t, expenseStatus(expenseRatio(b)), tt.want)
	}
}

func TestChartEmptyState(t *testing.T) {
	hs := newHarness(t)

	hs.action(userID, actChart+"expense_pie")

	for _, o := range hs.msg.to(userID) {
		assert.NotEqual(t, "photo", o.Kind)
	}
	msg := lastOf(t, hs, userID, "edit")
	assert.Contains(t, msg.Msg.Text, "No transactions")
	assert.True(t, hasAction(msg.Msg.Keyboard, actVisualReport))
}

func TestChartSendsImage(t *testing.T) {
	hs := newHarness(t)
	hs.txs.add(userID, domain.Expense, "Food", 50000)
	hs.txs.add(userID, domain.Expense, "Transport", 20000)

	hs.action(userID, actChart+"expense_pie")

	photo := lastOf(t, hs, userID, "photo")
	assert.True(t, bytes.HasPrefix(photo.File.Data, []byte("\x89PNG")))
	assert.Equal(t, "chart_expense_pie.png", photo.File.Name)
	assert.Contains(t, lastOf(t, hs, userID, "text").Msg.Text, "Main menu")
}

func TestChartKindGatedByTier(t *testing.T) {
	hs := newHarness(t)
	hs.txs.add(userID, domain.Expense, "Food", 50000)

	hs.action(userID, actChart+"expense_bar")
	for _, o := range hs.msg.to(userID) {
		assert.NotEqual(t, "photo", o.Kind)
	}
	assert.Contains(t, lastOf(t, hs, userID, "edit").Msg.Text, "not included in the Free plan")

	hs.users.set(userID, domain.TierBasic, now.Add(time.Hour))
	hs.action(userID, actChart+"expense_bar")
	lastOf(t, hs, userID, "photo")
}

func TestParseChartAction(t *testing.T) {
	dir, kind, ok := parseChartAction("chart_income_bar")
	require.True(t, ok)
	assert.Equal(t, domain.Income, dir)
	assert.Equal(t, domain.ChartBar, kind)

	for _, bad := range []string{"chart_", "chart_income", "chart_savings_pie", "chart_income_"} {
		_, _, ok := parseChartAction(bad)
		assert.False(t, ok, bad)
	}
}

func TestExportEmptyState(t *testing.T) {
	hs := newHarness(t)

	hs.action(userID, actExportCSV)

	assert.Contains(t, lastOf(t, hs, userID, "edit").Msg.Text, "No transactions to export")
	for _, o := range hs.msg.to(userID) {
		assert.NotEqual(t, "document", o.Kind)
	}
}

func TestExportCSV(t *testing.T) {
	hs := newHarness(t)
	hs.txs.add(userID, domain.Expense, "Food", 150000)

	hs.action(userID, actExportCSV)

	doc := lastOf(t, hs, userID, "document")
	assert.Equal(t, "transactions_42.csv", doc.File.Name)
	lines := strings.Split(strings.TrimPrefix(string(doc.File.Data), "\ufeff"), "\n")
	assert.Equal(t, "Date,Type,Category,Amount,Description", lines[0])
	assert.Equal(t, "2026-03-15 10:00:00,expense,Food,150000,", lines[1])
}

func TestExportExcelRespectsTierLimit(t *testing.T) {
	hs := newHarness(t)
	free := hs.catalog.Tier(domain.TierFree)
	for i := 0; i < int(free.ExportLimit)+5; i++ {
		hs.txs.add(userID, domain.Expense, "Food", 1000)
	}

	hs.action(userID, actExportExcel)

	doc := lastOf(t, hs, userID, "document")
	assert.Equal(t, "transactions_42.xlsx", doc.File.Name)
	assert.True(t, bytes.HasPrefix(doc.File.Data, []byte("PK")))
	assert.Contains(t, doc.Msg.Text, "Latest 10 of 15")
}

func TestHistoryShowsLatestTen(t *testing.T) {
	hs := newHarness(t)
	for i := 0; i < 12; i++ {
		hs.txs.add(userID, domain.Expense, "Food", int64(1000*(i+1)))
	}

	hs.action(userID, actHistory)

	text := lastOf(t, hs, userID, "edit").Msg.Text
	assert.Contains(t, text, "1. 💸 <b>Food</b>\n   Rp 12.000")
	assert.Contains(t, text, "10. 💸")
	assert.NotContains(t, text, "11. 💸")
	assert.Contains(t, text, "... and 2 more")
}

func TestHistoryEmpty(t *testing.T) {
	hs := newHarness(t)
	hs.action(userID, actHistory)
	assert.Contains(t, lastOf(t, hs, userID, "edit").Msg.Text, "No transactions yet")
}

func TestPlansOfferHigherTiers(t *testing.T) {
	hs := newHarness(t)

	hs.action(userID, actSubscription)
	kb := lastOf(t, hs, userID, "edit").Msg.Keyboard
	assert.True(t, hasAction(kb, actUpgrade+domain.TierBasic))
	assert.True(t, hasAction(kb, actUpgrade+domain.TierPremium))

	hs.users.set(userID, domain.TierPremium, now.Add(time.Hour))
	hs.action(userID, actSubscription)
	msg := lastOf(t, hs, userID, "edit").Msg
	assert.False(t, hasAction(msg.Keyboard, actUpgrade+domain.TierBasic))
	assert.False(t, hasAction(msg.Keyboard, actUpgrade+domain.TierPremium))
	assert.Contains(t, msg.Text, "Rp 79.000/month")
}

func TestUpgradeInfo(t *testing.T) {
	hs := newHarness(t)

	hs.action(userID, actUpgrade+domain.TierPremium)

	msg := lastOf(t, hs, userID, "edit").Msg
	assert.Contains(t, msg.Text, "Upgrade to Premium")
	assert.Contains(t, msg.Text, "Transfer to BCA 1234567890")
	assert.Contains(t, msg.Text, "<code>42</code>")
	require.NotEmpty(t, msg.Keyboard)
	assert.Equal(t, "https://t.me/financeadmin", msg.Keyboard[0][0].URL)

	hs.msg.reset()
	hs.action(userID, actUpgrade+"platinum")
	assert.Empty(t, hs.msg.to(userID))
}

func TestSetPlan(t *testing.T) {
	hs := newHarness(t)

	hs.text(adminID, "/setplan 42 premium 7")

	u := hs.users.users[userID]
	assert.Equal(t, domain.TierPremium, u.Tier)
	require.NotNil(t, u.SubscriptionEnd)
	assert.Equal(t, now.AddDate(0, 0, 7), *u.SubscriptionEnd)
	assert.Contains(t, hs.msg.texts(adminID), "now on Premium for 7 days")
	assert.Contains(t, hs.msg.texts(userID), "Your Premium plan is active")
}

func TestSetPlanDefaultsAndErrors(t *testing.T) {
	hs := newHarness(t)

	hs.text(adminID, "/setplan 42 basic")
	assert.Equal(t, now.AddDate(0, 0, 30), *hs.users.users[userID].SubscriptionEnd)

	for in, want := range map[string]string{
		"/setplan":              "Usage",
		"/setplan 42":           "Usage",
		"/setplan abc basic":    "Invalid user ID",
		"/setplan 42 gold":      "Unknown tier",
		"/setplan 42 basic -1":  "Invalid number of days",
		"/setplan 999 basic 30": "never used the bot",
	} {
		hs.msg.reset()
		hs.text(adminID, in)
		assert.Contains(t, hs.msg.texts(adminID), want, in)
	}
}

func TestAdminStatsAndUsers(t *testing.T) {
	hs := newHarness(t)

	hs.text(adminID, "/admin")
	assert.True(t, hasAction(lastOf(t, hs, adminID, "text").Msg.Keyboard, actAdminStats))

	hs.action(adminID, actAdminStats)
	assert.Contains(t, lastOf(t, hs, adminID, "edit").Msg.Text, "Total users: <b>2</b>")

	hs.action(adminID, actAdminUsers)
	doc := lastOf(t, hs, adminID, "document")
	assert.Equal(t, "users_20260315.csv", doc.File.Name)
	assert.Contains(t, string(doc.File.Data), "42,budi,Budi,Santoso,free")
	assert.Contains(t, doc.Msg.Text, "Total: 2 users")

	hs.action(adminID, actAdminClose)
	assert.Contains(t, lastOf(t, hs, adminID, "edit").Msg.Text, "closed")
}

func TestBusinessMenuAndEmptyDebts(t *testing.T) {
	hs := newHarness(t)

	hs.action(userID, actBusinessMenu)
	assert.True(t, hasAction(lastOf(t, hs, userID, "edit").Msg.Keyboard, actAddDebt))

	hs.action(userID, actViewDebts)
	assert.Contains(t, lastOf(t, hs, userID, "edit").Msg.Text, "Nothing recorded yet")
}

func TestEditFailureFallsBackToSend(t *testing.T) {
	hs := newHarness(t)
	hs.Handler.msg = editRejecting{hs.msg}

	hs.action(userID, actHelp)

	assert.Contains(t, lastOf(t, hs, userID, "text").Msg.Text, "Help")
}
