package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/metrics"
	"github.com/satriacloudx/FinanceBotMe/internal/session"
)

const skipDescription = "-"

func (h *Handler) startTransaction(ctx context.Context, ev Event) {
	allowed, tier, err := h.checkTransactionLimit(ctx, ev.UserID)
	if err != nil {
		h.fail(ctx, ev, "check transaction limit", err)
		return
	}
	if !allowed {
		h.sessions.Delete(ev.UserID)
		h.metrics.GateRefused()
		h.reply(ctx, ev, Message{
			Text: fmt.Sprintf(
				"⚠️ <b>Transaction limit reached</b>\n\nThe %s plan allows %s transactions.\nUpgrade your plan to keep recording.",
				html.EscapeString(tier.Name), tier.MaxTransactions,
			),
			HTML: true,
			Keyboard: Keyboard{
				{{Text: "⭐ Upgrade", Action: actSubscription}},
				{{Text: "🔙 Main menu", Action: actMainMenu}},
			},
		})
		return
	}

	sess := h.sessions.Start(ev.UserID, session.FlowTransaction, session.AwaitingType)
	sess.Transaction.Mode = domain.ModePersonal
	h.sessions.Update(sess)
	h.metrics.Conversation(string(session.FlowTransaction), metrics.Started)

	h.reply(ctx, ev, Message{
		Text: "💰 <b>New transaction</b>\n\nChoose the transaction type:",
		HTML: true,
		Keyboard: Keyboard{
			{{Text: "💵 Income", Action: actTxIncome}, {Text: "💸 Expense", Action: actTxExpense}},
			{{Text: "❌ Cancel", Action: actCancel}},
		},
	})
}

// checkTransactionLimit reports whether the user may record one more
// transaction under their effective tier.
func (h *Handler) checkTransactionLimit(ctx context.Context, userID int64) (bool, domain.Tier, error) {
	sub, err := h.users.Subscription(ctx, userID)
	if err != nil {
		return false, domain.Tier{}, err
	}
	tier := h.catalog.Effective(sub)
	if tier.MaxTransactions.Unlimited() {
		return true, tier, nil
	}
	n, err := h.txs.Count(ctx, userID)
	if err != nil {
		return false, tier, err
	}
	return !tier.MaxTransactions.Reached(n), tier, nil
}

func (h *Handler) stepTransaction(ctx context.Context, ev Event, sess session.Session) outcome {
	switch sess.State {
	case session.AwaitingType:
		if ev.Kind != ActionEvent {
			return unmatched
		}
		var dir domain.Direction
		switch ev.Data {
		case actTxIncome:
			dir = domain.Income
		case actTxExpense:
			dir = domain.Expense
		default:
			return unmatched
		}
		sess.Transaction.Direction = dir
		sess.Transaction.Categories = h.catalog.Categories(dir)
		sess.State = session.AwaitingCategory
		h.sessions.Update(sess)
		h.askCategory(ctx, ev, sess.Transaction)
		return handled

	case session.AwaitingCategory:
		if ev.Kind != ActionEvent || !strings.HasPrefix(ev.Data, actCategory) {
			return unmatched
		}
		i, err := strconv.Atoi(strings.TrimPrefix(ev.Data, actCategory))
		if err != nil || i < 0 || i >= len(sess.Transaction.Categories) {
			return unmatched
		}
		sess.Transaction.Category = sess.Transaction.Categories[i]
		sess.State = session.AwaitingAmount
		h.sessions.Update(sess)
		h.reply(ctx, ev, Message{
			Text: fmt.Sprintf(
				"Category: <b>%s</b>\n\n💵 Enter the amount:\n<i>Example: 50000 or 50.000</i>",
				html.EscapeString(sess.Transaction.Category),
			),
			HTML: true,
		})
		return handled

	case session.AwaitingAmount:
		amount, ok, matched := h.readAmount(ctx, ev)
		if !matched {
			return unmatched
		}
		if !ok {
			return handled
		}
		sess.Transaction.Amount = amount
		sess.State = session.AwaitingDescription
		h.sessions.Update(sess)
		h.askDescription(ctx, ev, amount)
		return handled

	case session.AwaitingDescription:
		desc, ok := readDescription(ev)
		if !ok {
			return unmatched
		}
		h.sessions.Delete(ev.UserID)
		h.saveTransaction(ctx, ev, sess.Transaction, desc)
		return handled
	}
	return unmatched
}

func (h *Handler) askCategory(ctx context.Context, ev Event, d session.TransactionDraft) {
	kb := make(Keyboard, 0, len(d.Categories)/2+2)
	for i := 0; i < len(d.Categories); i += 2 {
		row := []Button{{Text: d.Categories[i], Action: actCategory + strconv.Itoa(i)}}
		if i+1 < len(d.Categories) {
			row = append(row, Button{Text: d.Categories[i+1], Action: actCategory + strconv.Itoa(i+1)})
		}
		kb = append(kb, row)
	}
	kb = append(kb, []Button{{Text: "❌ Cancel", Action: actCancel}})

	label := "💸 Expense"
	if d.Direction == domain.Income {
		label = "💵 Income"
	}
	h.reply(ctx, ev, Message{
		Text:     fmt.Sprintf("<b>%s</b>\n\nChoose a category:", label),
		HTML:     true,
		Keyboard: kb,
	})
}

// readAmount validates an amount reply. matched is false when the event is
// not an amount reply at all; ok is false when it was rejected, in which case
// the user has already been told.
func (h *Handler) readAmount(ctx context.Context, ev Event) (amount decimal.Decimal, ok, matched bool) {
	if ev.Kind != TextEvent {
		return amount, false, false
	}
	if _, _, isCmd := ev.Command(); isCmd {
		return amount, false, false
	}
	amount, ok = ParseAmount(ev.Data)
	if !ok {
		h.send(ctx, ev.ChatID, Message{
			Text: "❌ Invalid amount. Enter a positive number.\n<i>Example: 50000 or 50.000</i>",
			HTML: true,
		})
		return amount, false, true
	}
	return amount, true, true
}

func (h *Handler) askDescription(ctx context.Context, ev Event, amount decimal.Decimal) {
	h.send(ctx, ev.ChatID, Message{
		Text: fmt.Sprintf(
			"Amount: <b>%s</b>\n\n📝 Add a description, or send /skip to leave it empty:",
			FormatCurrency(amount),
		),
		HTML: true,
	})
}

// readDescription accepts any non-command text, or the /skip sentinel.
func readDescription(ev Event) (string, bool) {
	if ev.Kind != TextEvent {
		return "", false
	}
	if cmd, _, isCmd := ev.Command(); isCmd {
		if cmd == cmdSkip {
			return skipDescription, true
		}
		return "", false
	}
	desc := strings.TrimSpace(ev.Data)
	if desc == "" {
		desc = skipDescription
	}
	return desc, true
}

func (h *Handler) saveTransaction(ctx context.Context, ev Event, d session.TransactionDraft, desc string) {
	t := domain.Transaction{
		UserID:      ev.UserID,
		Direction:   d.Direction,
		Category:    d.Category,
		Amount:      d.Amount,
		Description: desc,
		Mode:        d.Mode,
		CreatedAt:   h.now(),
	}
	id, err := h.txs.Create(ctx, t)
	if err != nil {
		h.metrics.Conversation(string(session.FlowTransaction), metrics.Failed)
		h.fail(ctx, ev, "save transaction", err)
		return
	}
	h.metrics.Conversation(string(session.FlowTransaction), metrics.Completed)
	h.log.Info("transaction saved",
		zap.Int64("user_id", ev.UserID),
		zap.Int64("transaction_id", id),
		zap.String("direction", string(t.Direction)),
	)

	icon, label := "💸", "Expense"
	if t.Direction == domain.Income {
		icon, label = "💵", "Income"
	}
	h.send(ctx, ev.ChatID, Message{
		Text: fmt.Sprintf(
			"✅ <b>Transaction saved</b>\n\n%s Type: %s\n📁 Category: %s\n💰 Amount: %s\n📝 Description: %s",
			icon, label,
			html.EscapeString(t.Category),
			FormatCurrency(t.Amount),
			html.EscapeString(t.Description),
		),
		HTML: true,
	})
	h.showMainMenu(ctx, Event{Kind: TextEvent, UserID: ev.UserID, ChatID: ev.ChatID})
}
