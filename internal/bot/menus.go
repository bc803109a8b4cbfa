package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/render"
)

const (
	rule         = "━━━━━━━━━━━━━━━━━━━━━━"
	historyLimit = 10
	dateLayout   = "2006-01-02"
)

var backToMain = []Button{{Text: "🔙 Back", Action: actMainMenu}}

func tierBadge(key string) string {
	switch key {
	case domain.TierFree:
		return "🆓"
	case domain.TierPremium:
		return "👑"
	}
	return "⭐"
}

// effectiveTier resolves the tier that applies to the user right now. Lookup
// failures fall back to the lowest tier.
func (h *Handler) effectiveTier(ctx context.Context, userID int64) domain.Tier {
	sub, err := h.users.Subscription(ctx, userID)
	if err != nil {
		h.log.Warn("get subscription", zap.Int64("user_id", userID), zap.Error(err))
		return h.catalog.Tiers[0]
	}
	return h.catalog.Effective(sub)
}

func (h *Handler) mainKeyboard(userID int64) Keyboard {
	kb := Keyboard{
		{{Text: "📊 Dashboard", Action: actDashboard}, {Text: "➕ Add transaction", Action: actAddTx}},
		{{Text: "📈 Visual report", Action: actVisualReport}, {Text: "📥 Export", Action: actExportMenu}},
		{{Text: "💼 Business", Action: actBusinessMenu}, {Text: "📜 History", Action: actHistory}},
		{{Text: "⭐ Subscription", Action: actSubscription}, {Text: "❓ Help", Action: actHelp}},
	}
	if h.isAdmin(userID) {
		kb = append(kb, []Button{{Text: "🔐 Admin panel", Action: actAdminPanel}})
	}
	return kb
}

func (h *Handler) showWelcome(ctx context.Context, ev Event) {
	tier := h.effectiveTier(ctx, ev.UserID)
	name := ev.FirstName
	if name == "" {
		name = "there"
	}
	h.send(ctx, ev.ChatID, Message{
		Text: fmt.Sprintf(
			"👋 Hello, <b>%s</b>!\n\nWelcome to your personal finance tracker.\n"+
				"Record income and expenses, keep track of debts, and see where your money goes.\n\n"+
				"%s Current plan: <b>%s</b>",
			html.EscapeString(name), tierBadge(tier.Key), html.EscapeString(tier.Name),
		),
		HTML:     true,
		Keyboard: h.mainKeyboard(ev.UserID),
	})
}

func (h *Handler) showMainMenu(ctx context.Context, ev Event) {
	tier := h.effectiveTier(ctx, ev.UserID)
	h.reply(ctx, ev, Message{
		Text: fmt.Sprintf(
			"🏠 <b>Main menu</b>\n\n%s Plan: <b>%s</b>\n\nChoose a menu:",
			tierBadge(tier.Key), html.EscapeString(tier.Name),
		),
		HTML:     true,
		Keyboard: h.mainKeyboard(ev.UserID),
	})
}

func expenseStatus(ratio decimal.Decimal) string {
	switch {
	case ratio.GreaterThan(decimal.NewFromInt(90)):
		return "🔴 High spending"
	case ratio.GreaterThan(decimal.NewFromInt(70)):
		return "🟡 Moderate"
	}
	return "🟢 Healthy"
}

// expenseRatio is expense as a percentage of income; zero without income.
func expenseRatio(b domain.Balance) decimal.Decimal {
	if !b.Income.IsPositive() {
		return decimal.Zero
	}
	return b.Expense.Div(b.Income).Mul(decimal.NewFromInt(100))
}

func (h *Handler) showDashboard(ctx context.Context, ev Event) {
	total, err := h.txs.Balance(ctx, ev.UserID, domain.ModePersonal)
	if err != nil {
		h.fail(ctx, ev, "get balance", err)
		return
	}
	now := h.now()
	month, err := h.txs.MonthlyBalance(ctx, ev.UserID, domain.ModePersonal, now)
	if err != nil {
		h.fail(ctx, ev, "get monthly balance", err)
		return
	}
	tier := h.effectiveTier(ctx, ev.UserID)
	ratio := expenseRatio(month)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Financial dashboard</b> %s\n%s\n\n", tierBadge(tier.Key), rule)
	b.WriteString("<b>💼 All time:</b>\n")
	fmt.Fprintf(&b, "├ 💰 Income: %s\n", FormatCurrency(total.Income))
	fmt.Fprintf(&b, "├ 💸 Expense: %s\n", FormatCurrency(total.Expense))
	fmt.Fprintf(&b, "└ 💎 <b>Balance: %s</b>\n\n", FormatCurrency(total.Balance))
	fmt.Fprintf(&b, "<b>📅 %s:</b>\n", monthName(now))
	fmt.Fprintf(&b, "├ 💰 Income: %s\n", FormatCurrency(month.Income))
	fmt.Fprintf(&b, "├ 💸 Expense: %s\n", FormatCurrency(month.Expense))
	fmt.Fprintf(&b, "├ 💎 Balance: %s\n", FormatCurrency(month.Balance))
	fmt.Fprintf(&b, "└ 📈 Status: %s\n\n", expenseStatus(ratio))
	fmt.Fprintf(&b, "%s\n💡 <i>Expense ratio: %s%%</i>", rule, ratio.StringFixed(1))

	h.reply(ctx, ev, Message{Text: b.String(), HTML: true, Keyboard: Keyboard{backToMain}})
}

func (h *Handler) showChartMenu(ctx context.Context, ev Event) {
	h.reply(ctx, ev, Message{
		Text: "📈 <b>Visual report</b>\n\nChoose a chart:",
		HTML: true,
		Keyboard: Keyboard{
			{{Text: "📊 Expenses (pie)", Action: actChart + "expense_pie"}},
			{{Text: "📈 Expenses (bar)", Action: actChart + "expense_bar"}},
			{{Text: "💰 Income (pie)", Action: actChart + "income_pie"}},
			{{Text: "💰 Income (bar)", Action: actChart + "income_bar"}},
			backToMain,
		},
	})
}

// parseChartAction splits "chart_<direction>_<kind>".
func parseChartAction(data string) (domain.Direction, domain.ChartKind, bool) {
	dir, kind, ok := strings.Cut(strings.TrimPrefix(data, actChart), "_")
	if !ok || !domain.Direction(dir).Valid() || kind == "" {
		return "", "", false
	}
	return domain.Direction(dir), domain.ChartKind(kind), true
}

func (h *Handler) sendChart(ctx context.Context, ev Event) {
	dir, kind, ok := parseChartAction(ev.Data)
	if !ok {
		h.log.Debug("bad chart action", zap.String("action", ev.Data))
		return
	}
	tier := h.effectiveTier(ctx, ev.UserID)
	if !tier.AllowsChart(kind) {
		h.reply(ctx, ev, Message{
			Text: fmt.Sprintf(
				"🔒 %s charts are not included in the %s plan.",
				strings.ToUpper(string(kind[:1]))+string(kind[1:]), tier.Name,
			),
			Keyboard: Keyboard{
				{{Text: "⭐ Upgrade", Action: actSubscription}},
				{{Text: "🔙 Back", Action: actVisualReport}},
			},
		})
		return
	}

	data, err := h.txs.ByCategory(ctx, ev.UserID, dir, domain.ModePersonal)
	if err != nil {
		h.fail(ctx, ev, "group transactions", err)
		return
	}
	title := "Expenses by category"
	if dir == domain.Income {
		title = "Income by category"
	}
	img, err := h.charts.Render(kind, title, data)
	if err != nil {
		h.fail(ctx, ev, "render chart", err)
		return
	}
	if img == nil {
		h.reply(ctx, ev, Message{
			Text:     "❌ No transactions to show yet.\n\nAdd a transaction first!",
			Keyboard: Keyboard{{{Text: "🔙 Back", Action: actVisualReport}}},
		})
		return
	}

	f := File{Name: fmt.Sprintf("chart_%s_%s.png", dir, kind), Data: img}
	if err := h.msg.SendPhoto(ctx, ev.ChatID, f, fmt.Sprintf("📊 <b>%s</b>", title)); err != nil {
		h.fail(ctx, ev, "send chart", err)
		return
	}
	h.showMainMenu(ctx, Event{Kind: TextEvent, UserID: ev.UserID, ChatID: ev.ChatID})
}

func (h *Handler) showExportMenu(ctx context.Context, ev Event) {
	h.reply(ctx, ev, Message{
		Text: "📥 <b>Export data</b>\n\nChoose a file format:",
		HTML: true,
		Keyboard: Keyboard{
			{{Text: "📄 CSV", Action: actExportCSV}},
			{{Text: "📊 Excel", Action: actExportExcel}},
			backToMain,
		},
	})
}

func (h *Handler) exportCSV(ctx context.Context, ev Event) {
	h.export(ctx, ev, func(t render.Table) ([]byte, error) { return h.exporter.CSV(t) }, "csv", "📄 Your transactions (CSV)")
}

func (h *Handler) exportExcel(ctx context.Context, ev Event) {
	h.export(ctx, ev, func(t render.Table) ([]byte, error) { return h.exporter.Excel(t, "Transactions") }, "xlsx", "📊 Your transactions (Excel)")
}

func (h *Handler) export(ctx context.Context, ev Event, encode func(render.Table) ([]byte, error), ext, caption string) {
	txs, err := h.txs.List(ctx, ev.UserID, domain.ModePersonal)
	if err != nil {
		h.fail(ctx, ev, "list transactions", err)
		return
	}
	tier := h.effectiveTier(ctx, ev.UserID)
	if lim := tier.ExportLimit; !lim.Unlimited() && len(txs) > int(lim) {
		caption += fmt.Sprintf("\nLatest %d of %d, the %s plan exports up to %s rows.", int(lim), len(txs), tier.Name, lim)
		txs = txs[:lim]
	}

	file, err := encode(transactionTable(txs))
	if err != nil {
		h.fail(ctx, ev, "export transactions", err)
		return
	}
	if file == nil {
		h.reply(ctx, ev, Message{
			Text:     "❌ No transactions to export yet.\n\nAdd a transaction first!",
			Keyboard: Keyboard{{{Text: "🔙 Back", Action: actExportMenu}}},
		})
		return
	}

	f := File{Name: fmt.Sprintf("transactions_%d.%s", ev.UserID, ext), Data: file}
	if err := h.msg.SendDocument(ctx, ev.ChatID, f, caption); err != nil {
		h.fail(ctx, ev, "send export", err)
		return
	}
	h.showMainMenu(ctx, Event{Kind: TextEvent, UserID: ev.UserID, ChatID: ev.ChatID})
}

func transactionTable(txs []domain.Transaction) render.Table {
	t := render.Table{Header: []string{"Date", "Type", "Category", "Amount", "Description"}}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []any{
			tx.CreatedAt.Format("2006-01-02 15:04:05"),
			string(tx.Direction),
			tx.Category,
			tx.Amount.InexactFloat64(),
			tx.Description,
		})
	}
	return t
}

func (h *Handler) showBusinessMenu(ctx context.Context, ev Event) {
	h.reply(ctx, ev, Message{
		Text: "💼 <b>Business</b>\n\nTrack money you owe and money owed to you:",
		HTML: true,
		Keyboard: Keyboard{
			{{Text: "📝 Record a debt", Action: actAddDebt}},
			{{Text: "📋 Debt list", Action: actViewDebts}},
			backToMain,
		},
	})
}

func (h *Handler) showDebts(ctx context.Context, ev Event) {
	debts, err := h.debts.List(ctx, ev.UserID, domain.DebtUnpaid)
	if err != nil {
		h.fail(ctx, ev, "list debts", err)
		return
	}

	var b strings.Builder
	b.WriteString("📋 <b>Debts</b>\n")
	if len(debts) == 0 {
		b.WriteString("\n❌ Nothing recorded yet.")
	} else {
		b.WriteString(rule + "\n\n")
		for _, d := range debts {
			fmt.Fprintf(&b, "<b>%s</b>\n👤 %s\n💵 %s\n📝 %s\n📅 %s\n\n",
				debtLabel(d.Direction),
				html.EscapeString(d.Counterparty),
				FormatCurrency(d.Amount),
				html.EscapeString(d.Description),
				d.CreatedAt.Format(dateLayout),
			)
		}
	}

	h.reply(ctx, ev, Message{
		Text:     strings.TrimRight(b.String(), "\n"),
		HTML:     true,
		Keyboard: Keyboard{{{Text: "🔙 Back", Action: actBusinessMenu}}},
	})
}

func (h *Handler) showHistory(ctx context.Context, ev Event) {
	txs, err := h.txs.List(ctx, ev.UserID, domain.ModePersonal)
	if err != nil {
		h.fail(ctx, ev, "list transactions", err)
		return
	}

	var b strings.Builder
	if len(txs) == 0 {
		fmt.Fprintf(&b, "📋 <b>Transaction history</b>\n%s\n\n❌ No transactions yet.\n\nStart recording now!", rule)
	} else {
		fmt.Fprintf(&b, "📋 <b>Latest transactions</b>\n%s\n\n", rule)
		for i, tx := range txs[:min(len(txs), historyLimit)] {
			icon := "💸"
			if tx.Direction == domain.Income {
				icon = "💰"
			}
			fmt.Fprintf(&b, "%d. %s <b>%s</b>\n   %s\n   📝 %s\n   📅 %s\n\n",
				i+1, icon,
				html.EscapeString(tx.Category),
				FormatCurrency(tx.Amount),
				html.EscapeString(tx.Description),
				tx.CreatedAt.Format(dateLayout),
			)
		}
		if rest := len(txs) - historyLimit; rest > 0 {
			fmt.Fprintf(&b, "<i>... and %d more</i>\n\n", rest)
		}
		b.WriteString("💡 <i>Export to see every transaction</i>")
	}

	h.reply(ctx, ev, Message{Text: b.String(), HTML: true, Keyboard: Keyboard{backToMain}})
}

func (h *Handler) showPlans(ctx context.Context, ev Event) {
	current := h.effectiveTier(ctx, ev.UserID)

	var b strings.Builder
	fmt.Fprintf(&b, "👑 <b>Subscription plans</b>\n%s\n\n", rule)
	for _, t := range h.catalog.Tiers {
		fmt.Fprintf(&b, "%s <b>%s</b>", tierBadge(t.Key), html.EscapeString(t.Name))
		if t.Key == current.Key {
			b.WriteString(" ✅ <i>(current)</i>")
		}
		b.WriteString("\n")
		if t.Price > 0 {
			fmt.Fprintf(&b, "💰 %s/month\n", FormatCurrency(decimal.NewFromInt(t.Price)))
		} else {
			b.WriteString("💰 FREE\n")
		}
		fmt.Fprintf(&b, "📝 Transactions: %s\n", t.MaxTransactions)
		for _, f := range t.Features {
			fmt.Fprintf(&b, "  ✓ %s\n", html.EscapeString(f))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\n💡 <i>Upgrade to unlock every feature!</i>", rule)

	var kb Keyboard
	var row []Button
	for _, t := range h.catalog.Above(current.Key) {
		row = append(row, Button{Text: fmt.Sprintf("%s Upgrade to %s", tierBadge(t.Key), t.Name), Action: actUpgrade + t.Key})
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	kb = append(kb, backToMain)

	h.reply(ctx, ev, Message{Text: b.String(), HTML: true, Keyboard: kb})
}

func (h *Handler) showUpgrade(ctx context.Context, ev Event) {
	key := strings.TrimPrefix(ev.Data, actUpgrade)
	if !h.catalog.HasTier(key) {
		h.log.Debug("unknown tier", zap.String("tier", key))
		return
	}
	t := h.catalog.Tier(key)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Upgrade to %s</b>\n%s\n\n", tierBadge(t.Key), html.EscapeString(t.Name), rule)
	fmt.Fprintf(&b, "💰 <b>Price:</b> %s/month\n\n<b>✨ You get:</b>\n", FormatCurrency(decimal.NewFromInt(t.Price)))
	for _, f := range t.Features {
		fmt.Fprintf(&b, "  ✓ %s\n", html.EscapeString(f))
	}
	fmt.Fprintf(&b, "\n%s\n<b>📱 How to pay:</b>\n\n%s\n\n", rule, html.EscapeString(h.cfg.PaymentInfo))
	fmt.Fprintf(&b, "Your user ID: <code>%d</code>\n💡 <i>The admin activates the plan after confirming payment.</i>", ev.UserID)

	var kb Keyboard
	if h.cfg.AdminContactURL != "" {
		kb = append(kb, []Button{{Text: "📞 Contact admin", URL: h.cfg.AdminContactURL}})
	}
	kb = append(kb, []Button{{Text: "🔙 Back", Action: actSubscription}})

	h.reply(ctx, ev, Message{Text: b.String(), HTML: true, Keyboard: kb})
}

func (h *Handler) showHelp(ctx context.Context, ev Event) {
	h.reply(ctx, ev, Message{
		Text: "❓ <b>Help</b>\n\n" +
			"<b>Commands</b>\n" +
			"/start - open the main menu\n" +
			"/help - show this help\n" +
			"/cancel - stop the current entry\n" +
			"/skip - leave a description empty\n\n" +
			"<b>Amounts</b>\n" +
			"Type whole numbers; 50000, 50.000 and 50,000 are the same amount.\n\n" +
			"<b>Menus</b>\n" +
			"📊 Dashboard shows totals and this month's balance.\n" +
			"📈 Visual report draws charts by category.\n" +
			"📥 Export sends your transactions as CSV or Excel.\n" +
			"💼 Business keeps track of debts.",
		HTML:     true,
		Keyboard: Keyboard{backToMain},
	})
}
