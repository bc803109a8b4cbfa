package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram delivers messages through the Bot API and feeds updates to a
// Handler.
type Telegram struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewTelegram(api *tgbotapi.BotAPI, log *zap.Logger) *Telegram {
	return &Telegram{api: api, log: log}
}

// Run long-polls for updates and handles them one at a time until ctx is done.
func (t *Telegram) Run(ctx context.Context, h *Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if q := upd.CallbackQuery; q != nil {
				if _, err := t.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
					t.log.Debug("answer callback", zap.Error(err))
				}
			}
			if ev, ok := EventFromUpdate(upd); ok {
				h.Handle(ctx, ev)
			}
		}
	}
}

// EventFromUpdate converts button presses and private text messages. Other
// updates are reported as not ok.
func EventFromUpdate(upd tgbotapi.Update) (Event, bool) {
	if q := upd.CallbackQuery; q != nil {
		if q.From == nil || q.Data == "" {
			return Event{}, false
		}
		ev := Event{
			Kind:      ActionEvent,
			UserID:    q.From.ID,
			ChatID:    q.From.ID,
			Username:  q.From.UserName,
			FirstName: q.From.FirstName,
			LastName:  q.From.LastName,
			Data:      q.Data,
		}
		if q.Message != nil {
			ev.ChatID = q.Message.Chat.ID
			ev.MessageID = q.Message.MessageID
		}
		return ev, true
	}

	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return Event{}, false
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Event{}, false
	}
	return Event{
		Kind:      TextEvent,
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Data:      text,
	}, true
}

func inlineKeyboard(kb Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Action))
		}
		rows = append(rows, row)
	}
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}

func parseMode(html bool) string {
	if html {
		return tgbotapi.ModeHTML
	}
	return ""
}

func (t *Telegram) Send(_ context.Context, chatID int64, msg Message) error {
	m := tgbotapi.NewMessage(chatID, msg.Text)
	m.ParseMode = parseMode(msg.HTML)
	if kb := inlineKeyboard(msg.Keyboard); kb != nil {
		m.ReplyMarkup = *kb
	}
	_, err := t.api.Send(m)
	return err
}

func (t *Telegram) Edit(_ context.Context, chatID int64, messageID int, msg Message) error {
	m := tgbotapi.NewEditMessageText(chatID, messageID, msg.Text)
	m.ParseMode = parseMode(msg.HTML)
	m.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	_, err := t.api.Send(m)
	return err
}

func (t *Telegram) SendPhoto(_ context.Context, chatID int64, f File, caption string) error {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data})
	p.Caption = caption
	p.ParseMode = tgbotapi.ModeHTML
	_, err := t.api.Send(p)
	return err
}

func (t *Telegram) SendDocument(_ context.Context, chatID int64, f File, caption string) error {
	d := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data})
	d.Caption = caption
	d.ParseMode = tgbotapi.ModeHTML
	_, err := t.api.Send(d)
	return err
}
