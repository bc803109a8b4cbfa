package bot

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/metrics"
	"github.com/satriacloudx/FinanceBotMe/internal/session"
)

const broadcastHeader = "📢 <b>Announcement from the admin</b>\n\n"

// BroadcastReport counts delivery attempts of one broadcast.
type BroadcastReport struct {
	ID      string
	Success int
	Failure int
}

func (h *Handler) startBroadcast(ctx context.Context, ev Event) {
	if !h.isAdmin(ev.UserID) {
		h.log.Debug("broadcast refused", zap.Int64("user_id", ev.UserID))
		return
	}
	h.sessions.Start(ev.UserID, session.FlowBroadcast, session.AwaitingMessage)
	h.metrics.Conversation(string(session.FlowBroadcast), metrics.Started)

	h.reply(ctx, ev, Message{
		Text: "📢 <b>Broadcast</b>\n\nType the message to send to every user.\nSend /cancel to stop.",
		HTML: true,
	})
}

func (h *Handler) stepBroadcast(ctx context.Context, ev Event, sess session.Session) outcome {
	if !h.isAdmin(ev.UserID) {
		return unauthorized
	}
	if sess.State != session.AwaitingMessage || ev.Kind != TextEvent {
		return unmatched
	}
	if _, _, isCmd := ev.Command(); isCmd {
		return unmatched
	}
	h.sessions.Delete(ev.UserID)

	ids, err := h.users.ListIDs(ctx)
	if err != nil {
		h.metrics.Conversation(string(session.FlowBroadcast), metrics.Failed)
		h.fail(ctx, ev, "list broadcast recipients", err)
		return handled
	}
	h.send(ctx, ev.ChatID, Message{Text: fmt.Sprintf("📤 Sending to %d users...", len(ids))})

	rep := h.broadcast(ctx, ids, Message{Text: broadcastHeader + html.EscapeString(ev.Data), HTML: true})
	h.metrics.Conversation(string(session.FlowBroadcast), metrics.Completed)

	h.send(ctx, ev.ChatID, Message{
		Text: fmt.Sprintf(
			"✅ <b>Broadcast finished</b>\n\n✓ Delivered: %d\n✗ Failed: %d",
			rep.Success, rep.Failure,
		),
		HTML:     true,
		Keyboard: Keyboard{{{Text: "🔙 Admin panel", Action: actAdminPanel}}},
	})
	return handled
}

// broadcast makes exactly one delivery attempt per recipient; a failed
// recipient never stops the rest.
func (h *Handler) broadcast(ctx context.Context, ids []int64, msg Message) BroadcastReport {
	rep := BroadcastReport{ID: uuid.NewString()}
	log := h.log.With(zap.String("broadcast_id", rep.ID))

	for _, id := range ids {
		if err := h.msg.Send(ctx, id, msg); err != nil {
			rep.Failure++
			h.metrics.BroadcastResult(false)
			log.Warn("broadcast delivery failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		rep.Success++
		h.metrics.BroadcastResult(true)
	}
	log.Info("broadcast finished",
		zap.Int("recipients", len(ids)),
		zap.Int("success", rep.Success),
		zap.Int("failure", rep.Failure),
	)
	return rep
}
