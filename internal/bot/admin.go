package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/render"
	"github.com/satriacloudx/FinanceBotMe/internal/repo"
)

func (h *Handler) adminKeyboard() Keyboard {
	return Keyboard{
		{{Text: "📊 System stats", Action: actAdminStats}},
		{{Text: "📢 Broadcast", Action: actBroadcast}},
		{{Text: "👥 User list", Action: actAdminUsers}},
		{{Text: "❌ Close", Action: actAdminClose}},
	}
}

func (h *Handler) showAdminPanel(ctx context.Context, ev Event) {
	h.reply(ctx, ev, Message{
		Text:     "🔐 <b>Admin panel</b>\n" + rule + "\n\nWelcome, admin!\nChoose a menu:",
		HTML:     true,
		Keyboard: h.adminKeyboard(),
	})
}

func (h *Handler) showAdminStats(ctx context.Context, ev Event) {
	st, err := h.users.Stats(ctx)
	if err != nil {
		h.fail(ctx, ev, "get stats", err)
		return
	}
	h.reply(ctx, ev, Message{
		Text: fmt.Sprintf(
			"📊 <b>System statistics</b>\n%s\n\n👥 Total users: <b>%d</b>\n💳 Total transactions: <b>%d</b>\n✅ Active today: <b>%d</b>\n\n📅 Generated: %s",
			rule, st.TotalUsers, st.TotalTransactions, st.ActiveToday, h.now().Format("2006-01-02 15:04:05"),
		),
		HTML:     true,
		Keyboard: Keyboard{{{Text: "🔙 Admin panel", Action: actAdminPanel}}},
	})
}

func (h *Handler) exportUsers(ctx context.Context, ev Event) {
	users, err := h.users.List(ctx)
	if err != nil {
		h.fail(ctx, ev, "list users", err)
		return
	}

	t := render.Table{Header: []string{"User ID", "Username", "First name", "Last name", "Tier", "Joined", "Last active"}}
	for _, u := range users {
		t.Rows = append(t.Rows, []any{
			u.ID, u.Username, u.FirstName, u.LastName, u.Tier,
			u.CreatedAt.Format(dateLayout), u.LastActive.Format("2006-01-02 15:04:05"),
		})
	}
	file, err := h.exporter.CSV(t)
	if err != nil {
		h.fail(ctx, ev, "export users", err)
		return
	}
	if file == nil {
		h.reply(ctx, ev, Message{
			Text:     "❌ No registered users yet.",
			Keyboard: Keyboard{{{Text: "🔙 Admin panel", Action: actAdminPanel}}},
		})
		return
	}

	f := File{Name: fmt.Sprintf("users_%s.csv", h.now().Format("20060102")), Data: file}
	if err := h.msg.SendDocument(ctx, ev.ChatID, f, fmt.Sprintf("👥 <b>User list</b>\n\nTotal: %d users", len(users))); err != nil {
		h.fail(ctx, ev, "send user list", err)
		return
	}
	h.reply(ctx, ev, Message{
		Text:     "✅ User list sent!",
		Keyboard: Keyboard{{{Text: "🔙 Admin panel", Action: actAdminPanel}}},
	})
}

func (h *Handler) closeAdminPanel(ctx context.Context, ev Event) {
	h.reply(ctx, ev, Message{Text: "🔐 Admin panel closed."})
}

const setPlanUsage = "Usage: /setplan <user_id> <tier> [days]"

// setPlan activates a paid tier after the admin has confirmed payment.
func (h *Handler) setPlan(ctx context.Context, ev Event, args []string) {
	if len(args) < 2 || len(args) > 3 {
		h.send(ctx, ev.ChatID, Message{Text: setPlanUsage})
		return
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		h.send(ctx, ev.ChatID, Message{Text: "❌ Invalid user ID.\n" + setPlanUsage})
		return
	}
	key := strings.ToLower(args[1])
	if !h.catalog.HasTier(key) {
		keys := make([]string, 0, len(h.catalog.Tiers))
		for _, t := range h.catalog.Tiers {
			keys = append(keys, t.Key)
		}
		h.send(ctx, ev.ChatID, Message{Text: fmt.Sprintf("❌ Unknown tier %q. Available: %s", key, strings.Join(keys, ", "))})
		return
	}
	days := h.cfg.DefaultPlanDays
	if len(args) == 3 {
		days, err = strconv.Atoi(args[2])
		if err != nil || days <= 0 {
			h.send(ctx, ev.ChatID, Message{Text: "❌ Invalid number of days.\n" + setPlanUsage})
			return
		}
	}

	tier := h.catalog.Tier(key)
	err = h.users.SetSubscription(ctx, userID, tier.Key, days, tier.Price)
	if errors.Is(err, repo.ErrNotFound) {
		h.send(ctx, ev.ChatID, Message{Text: fmt.Sprintf("❌ User %d has never used the bot.", userID)})
		return
	}
	if err != nil {
		h.fail(ctx, ev, "set subscription", err)
		return
	}
	h.log.Info("subscription set",
		zap.Int64("user_id", userID),
		zap.String("tier", tier.Key),
		zap.Int("days", days),
	)

	h.send(ctx, ev.ChatID, Message{Text: fmt.Sprintf("✅ User %d is now on %s for %d days.", userID, tier.Name, days)})
	if err := h.msg.Send(ctx, userID, Message{
		Text: fmt.Sprintf(
			"%s <b>Your %s plan is active!</b>\n\nValid for %d days. Price: %s\nThank you for your support.",
			tierBadge(tier.Key), tier.Name, days, FormatCurrency(decimal.NewFromInt(tier.Price)),
		),
		HTML: true,
	}); err != nil {
		h.log.Warn("notify upgraded user", zap.Int64("user_id", userID), zap.Error(err))
	}
}
