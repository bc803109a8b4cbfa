package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriacloudx/FinanceBotMe/internal/config"
	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/metrics"
	"github.com/satriacloudx/FinanceBotMe/internal/repo"
	"github.com/satriacloudx/FinanceBotMe/internal/session"
)

// Action identifiers carried by buttons.
const (
	actMainMenu     = "main_menu"
	actAddTx        = "add_transaction"
	actTxIncome     = "trans_income"
	actTxExpense    = "trans_expense"
	actCategory     = "cat_"
	actAddDebt      = "add_debt"
	actDebtOwedByMe = "debt_hutang"
	actDebtOwedToMe = "debt_piutang"
	actCancel       = "cancel"
	actDashboard    = "dashboard"
	actVisualReport = "visual_report"
	actChart        = "chart_"
	actExportMenu   = "export_menu"
	actExportCSV    = "export_csv"
	actExportExcel  = "export_excel"
	actBusinessMenu = "business_menu"
	actViewDebts    = "view_debts"
	actSubscription = "subscription_menu"
	actUpgrade      = "upgrade_"
	actHistory      = "transaction_history"
	actHelp         = "help"
	actAdminPanel   = "admin_panel"
	actAdminStats   = "admin_stats"
	actAdminUsers   = "admin_users"
	actAdminClose   = "admin_close"
	actBroadcast    = "admin_broadcast"
)

const (
	cmdStart   = "/start"
	cmdHelp    = "/help"
	cmdAdmin   = "/admin"
	cmdCancel  = "/cancel"
	cmdSkip    = "/skip"
	cmdSetPlan = "/setplan"
)

// outcome is what a conversation step did with an event.
type outcome int

const (
	handled outcome = iota
	unmatched
	unauthorized
)

type route struct {
	id     string
	prefix bool
	admin  bool
	fn     func(ctx context.Context, ev Event)
}

type Deps struct {
	Messenger    Messenger
	Users        UserStore
	Transactions TransactionStore
	Debts        DebtStore
	Sessions     *session.Store
	Charts       ChartRenderer
	Exporter     TableExporter
	Catalog      domain.Catalog
	Metrics      *metrics.Collector
	Log          *zap.Logger
	Now          func() time.Time
}

type Handler struct {
	cfg config.Config
	log *zap.Logger
	now func() time.Time

	msg      Messenger
	users    UserStore
	txs      TransactionStore
	debts    DebtStore
	sessions *session.Store
	charts   ChartRenderer
	exporter TableExporter
	catalog  domain.Catalog
	metrics  *metrics.Collector

	entries map[string]func(ctx context.Context, ev Event)
	routes  []route
}

func NewHandler(cfg config.Config, d Deps) *Handler {
	h := &Handler{
		cfg:      cfg,
		log:      d.Log,
		now:      d.Now,
		msg:      d.Messenger,
		users:    d.Users,
		txs:      d.Transactions,
		debts:    d.Debts,
		sessions: d.Sessions,
		charts:   d.Charts,
		exporter: d.Exporter,
		catalog:  d.Catalog,
		metrics:  d.Metrics,
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.sessions == nil {
		h.sessions = session.NewStore()
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}

	h.entries = map[string]func(context.Context, Event){
		actAddTx:     h.startTransaction,
		actAddDebt:   h.startDebt,
		actBroadcast: h.startBroadcast,
	}
	h.routes = []route{
		{id: actMainMenu, fn: h.showMainMenu},
		{id: actDashboard, fn: h.showDashboard},
		{id: actVisualReport, fn: h.showChartMenu},
		{id: actChart, prefix: true, fn: h.sendChart},
		{id: actExportMenu, fn: h.showExportMenu},
		{id: actExportCSV, fn: h.exportCSV},
		{id: actExportExcel, fn: h.exportExcel},
		{id: actBusinessMenu, fn: h.showBusinessMenu},
		{id: actViewDebts, fn: h.showDebts},
		{id: actSubscription, fn: h.showPlans},
		{id: actUpgrade, prefix: true, fn: h.showUpgrade},
		{id: actHistory, fn: h.showHistory},
		{id: actHelp, fn: h.showHelp},
		{id: actAdminPanel, admin: true, fn: h.showAdminPanel},
		{id: actAdminStats, admin: true, fn: h.showAdminStats},
		{id: actAdminUsers, admin: true, fn: h.exportUsers},
		{id: actAdminClose, admin: true, fn: h.closeAdminPanel},
	}
	return h
}

// Handle processes one event. Events of a single user are expected to arrive
// in order; different users never share state.
func (h *Handler) Handle(ctx context.Context, ev Event) {
	h.register(ctx, ev)

	if h.isCancel(ev) {
		h.cancel(ctx, ev)
		return
	}

	if ev.Kind == ActionEvent {
		if start, ok := h.entries[ev.Data]; ok {
			start(ctx, ev)
			return
		}
	}

	if sess, ok := h.sessions.Get(ev.UserID); ok {
		switch h.step(ctx, ev, sess) {
		case handled:
			return
		case unauthorized:
			h.log.Debug("step refused", zap.Int64("user_id", ev.UserID), zap.String("flow", string(sess.Flow)))
			return
		}
		if ev.Kind == TextEvent {
			if _, _, isCmd := ev.Command(); !isCmd {
				h.remind(ctx, ev)
				return
			}
		}
	}

	switch ev.Kind {
	case ActionEvent:
		h.routeAction(ctx, ev)
	case TextEvent:
		h.routeCommand(ctx, ev)
	}
}

// register creates the user on first contact and refreshes last-active.
// Button presses only touch the row unless it is missing.
func (h *Handler) register(ctx context.Context, ev Event) {
	if ev.Kind == ActionEvent {
		err := h.users.TouchLastActive(ctx, ev.UserID)
		if err == nil {
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			h.log.Warn("touch user", zap.Int64("user_id", ev.UserID), zap.Error(err))
			return
		}
	}
	if err := h.users.Upsert(ctx, ev.UserID, ev.Username, ev.FirstName, ev.LastName); err != nil {
		h.log.Warn("upsert user", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
}

func (h *Handler) isCancel(ev Event) bool {
	switch ev.Kind {
	case ActionEvent:
		return ev.Data == actCancel
	case TextEvent:
		cmd, _, ok := ev.Command()
		return ok && cmd == cmdCancel
	}
	return false
}

// cancel discards the active session, if any, without touching storage.
func (h *Handler) cancel(ctx context.Context, ev Event) {
	sess, ok := h.sessions.Get(ev.UserID)
	if !ok {
		h.showMainMenu(ctx, ev)
		return
	}
	h.sessions.Delete(ev.UserID)
	h.metrics.Conversation(string(sess.Flow), metrics.Cancelled)

	text := "❌ Transaction cancelled."
	switch sess.Flow {
	case session.FlowDebt:
		text = "❌ Debt entry cancelled."
	case session.FlowBroadcast:
		text = "❌ Broadcast cancelled."
	}
	h.reply(ctx, ev, Message{Text: text})
	h.showMainMenu(ctx, Event{Kind: TextEvent, UserID: ev.UserID, ChatID: ev.ChatID})
}

func (h *Handler) step(ctx context.Context, ev Event, sess session.Session) outcome {
	switch sess.Flow {
	case session.FlowTransaction:
		return h.stepTransaction(ctx, ev, sess)
	case session.FlowDebt:
		return h.stepDebt(ctx, ev, sess)
	case session.FlowBroadcast:
		return h.stepBroadcast(ctx, ev, sess)
	}
	return unmatched
}

// remind answers free text sent while a button choice is pending.
func (h *Handler) remind(ctx context.Context, ev Event) {
	h.send(ctx, ev.ChatID, Message{Text: "Please use the buttons above, or /cancel to stop."})
}

func (h *Handler) routeAction(ctx context.Context, ev Event) {
	for _, r := range h.routes {
		if r.id != ev.Data && !(r.prefix && strings.HasPrefix(ev.Data, r.id)) {
			continue
		}
		if r.admin && !h.isAdmin(ev.UserID) {
			h.log.Debug("admin action refused", zap.Int64("user_id", ev.UserID), zap.String("action", ev.Data))
			return
		}
		r.fn(ctx, ev)
		return
	}
	h.log.Debug("unknown action", zap.Int64("user_id", ev.UserID), zap.String("action", ev.Data))
}

func (h *Handler) routeCommand(ctx context.Context, ev Event) {
	cmd, args, ok := ev.Command()
	if !ok {
		return
	}
	switch cmd {
	case cmdStart:
		h.showWelcome(ctx, ev)
	case cmdHelp:
		h.showHelp(ctx, ev)
	case cmdAdmin, cmdSetPlan:
		if !h.isAdmin(ev.UserID) {
			h.log.Debug("admin command refused", zap.Int64("user_id", ev.UserID), zap.String("command", cmd))
			return
		}
		if cmd == cmdAdmin {
			h.showAdminPanel(ctx, ev)
			return
		}
		h.setPlan(ctx, ev, args)
	}
}

func (h *Handler) isAdmin(userID int64) bool {
	return h.cfg.AdminID != 0 && userID == h.cfg.AdminID
}

// reply edits the message that carried the pressed button, or sends a new one.
func (h *Handler) reply(ctx context.Context, ev Event, msg Message) {
	if ev.Kind == ActionEvent && ev.MessageID != 0 {
		err := h.msg.Edit(ctx, ev.ChatID, ev.MessageID, msg)
		if err == nil {
			return
		}
		h.log.Debug("edit message", zap.Int64("chat_id", ev.ChatID), zap.Error(err))
	}
	h.send(ctx, ev.ChatID, msg)
}

func (h *Handler) send(ctx context.Context, chatID int64, msg Message) {
	if err := h.msg.Send(ctx, chatID, msg); err != nil {
		h.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// fail logs err and tells the user, leaving a way back to the main menu.
func (h *Handler) fail(ctx context.Context, ev Event, what string, err error) {
	h.log.Error(what, zap.Int64("user_id", ev.UserID), zap.Error(err))
	h.send(ctx, ev.ChatID, Message{
		Text:     "❌ Something went wrong, please try again later.",
		Keyboard: Keyboard{backToMain},
	})
}
