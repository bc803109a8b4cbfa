package bot

import (
	"context"
	"strings"
	"time"

	"github.com/satriacloudx/FinanceBotMe/internal/domain"
	"github.com/satriacloudx/FinanceBotMe/internal/render"
)

type EventKind int

const (
	// ActionEvent is a button press; Data is the action identifier.
	ActionEvent EventKind = iota + 1
	// TextEvent is a free-text message; Data is the text.
	TextEvent
)

// Event is one inbound interaction, already stripped of transport details.
type Event struct {
	Kind      EventKind
	UserID    int64
	ChatID    int64
	MessageID int // message that carried the pressed button, 0 for text
	Username  string
	FirstName string
	LastName  string
	Data      string
}

func (e Event) Command() (string, []string, bool) {
	if e.Kind != TextEvent || !strings.HasPrefix(e.Data, "/") {
		return "", nil, false
	}
	fields := strings.Fields(e.Data)
	cmd := fields[0]
	// "/start@FinanceBot" in groups
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:], true
}

type Button struct {
	Text   string
	Action string
	URL    string
}

type Keyboard [][]Button

type Message struct {
	Text     string
	HTML     bool
	Keyboard Keyboard
}

type File struct {
	Name string
	Data []byte
}

// Messenger delivers responses back to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg Message) error
	Edit(ctx context.Context, chatID int64, messageID int, msg Message) error
	SendPhoto(ctx context.Context, chatID int64, f File, caption string) error
	SendDocument(ctx context.Context, chatID int64, f File, caption string) error
}

type UserStore interface {
	Upsert(ctx context.Context, id int64, username, firstName, lastName string) error
	TouchLastActive(ctx context.Context, id int64) error
	Subscription(ctx context.Context, id int64) (domain.Subscription, error)
	SetSubscription(ctx context.Context, id int64, tier string, days int, price int64) error
	ListIDs(ctx context.Context) ([]int64, error)
	List(ctx context.Context) ([]domain.User, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t domain.Transaction) (int64, error)
	Count(ctx context.Context, userID int64) (int, error)
	Balance(ctx context.Context, userID int64, mode domain.Mode) (domain.Balance, error)
	MonthlyBalance(ctx context.Context, userID int64, mode domain.Mode, now time.Time) (domain.Balance, error)
	ByCategory(ctx context.Context, userID int64, dir domain.Direction, mode domain.Mode) ([]domain.CategoryTotal, error)
	List(ctx context.Context, userID int64, mode domain.Mode) ([]domain.Transaction, error)
}

type DebtStore interface {
	Create(ctx context.Context, d domain.Debt) (int64, error)
	List(ctx context.Context, userID int64, status domain.DebtStatus) ([]domain.Debt, error)
}

type ChartRenderer interface {
	Render(kind domain.ChartKind, title string, data []domain.CategoryTotal) ([]byte, error)
}

type TableExporter interface {
	CSV(t render.Table) ([]byte, error)
	Excel(t render.Table, sheet string) ([]byte, error)
}
