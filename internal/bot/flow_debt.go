package bot

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/metrics"
	"github.com/satriacloudx/FinanceBotMe/internal/session"
)

func (h *Handler) startDebt(ctx context.Context, ev Event) {
	h.sessions.Start(ev.UserID, session.FlowDebt, session.AwaitingDirection)
	h.metrics.Conversation(string(session.FlowDebt), metrics.Started)

	h.reply(ctx, ev, Message{
		Text: "📝 <b>Record a debt</b>\n\nChoose the debt type:",
		HTML: true,
		Keyboard: Keyboard{
			{{Text: "📤 I owe someone", Action: actDebtOwedByMe}},
			{{Text: "📥 Someone owes me", Action: actDebtOwedToMe}},
			{{Text: "❌ Cancel", Action: actCancel}},
		},
	})
}

func (h *Handler) stepDebt(ctx context.Context, ev Event, sess session.Session) outcome {
	switch sess.State {
	case session.AwaitingDirection:
		if ev.Kind != ActionEvent {
			return unmatched
		}
		switch ev.Data {
		case actDebtOwedByMe:
			sess.Debt.Direction = domain.OwedByMe
		case actDebtOwedToMe:
			sess.Debt.Direction = domain.OwedToMe
		default:
			return unmatched
		}
		sess.State = session.AwaitingCounterparty
		h.sessions.Update(sess)
		h.reply(ctx, ev, Message{Text: "👤 Enter the person's or company's name:"})
		return handled

	case session.AwaitingCounterparty:
		if ev.Kind != TextEvent {
			return unmatched
		}
		if _, _, isCmd := ev.Command(); isCmd {
			return unmatched
		}
		sess.Debt.Counterparty = ev.Data
		sess.State = session.AwaitingAmount
		h.sessions.Update(sess)
		h.send(ctx, ev.ChatID, Message{
			Text: fmt.Sprintf(
				"Name: <b>%s</b>\n\n💵 Enter the amount:\n<i>Example: 50000 or 50.000</i>",
				html.EscapeString(sess.Debt.Counterparty),
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
		sess.Debt.Amount = amount
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
		h.saveDebt(ctx, ev, sess.Debt, desc)
		return handled
	}
	return unmatched
}

func (h *Handler) saveDebt(ctx context.Context, ev Event, d session.DebtDraft, desc string) {
	debt := domain.Debt{
		UserID:       ev.UserID,
		Direction:    d.Direction,
		Counterparty: d.Counterparty,
		Amount:       d.Amount,
		Description:  desc,
		Status:       domain.DebtUnpaid,
		CreatedAt:    h.now(),
	}
	id, err := h.debts.Create(ctx, debt)
	if err != nil {
		h.metrics.Conversation(string(session.FlowDebt), metrics.Failed)
		h.fail(ctx, ev, "save debt", err)
		return
	}
	h.metrics.Conversation(string(session.FlowDebt), metrics.Completed)
	h.log.Info("debt saved", zap.Int64("user_id", ev.UserID), zap.Int64("debt_id", id))

	h.send(ctx, ev.ChatID, Message{
		Text: fmt.Sprintf(
			"✅ <b>Debt recorded</b>\n\n%s\n👤 Name: %s\n💰 Amount: %s\n📝 Description: %s",
			debtLabel(debt.Direction),
			html.EscapeString(debt.Counterparty),
			FormatCurrency(debt.Amount),
			html.EscapeString(debt.Description),
		),
		HTML:     true,
		Keyboard: Keyboard{{{Text: "🔙 Business menu", Action: actBusinessMenu}}},
	})
}

func debtLabel(d domain.DebtDirection) string {
	if d == domain.OwedToMe {
		return "📥 Someone owes me"
	}
	return "📤 I owe someone"
}
