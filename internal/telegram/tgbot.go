package telegram

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/iksnae/corebos/internal"
)

const pollTimeout = 60

// TelegramPlatform talks to the Telegram bot API with long polling.
type TelegramPlatform struct {
	api *tgbotapi.BotAPI
}

var _ Platform = (*TelegramPlatform)(nil)

// NewTelegramPlatform connects with apiKey and checks it with getMe. A nil
// client uses a default HTTP client; endpoint defaults to the public API.
func NewTelegramPlatform(apiKey, endpoint string, client *http.Client) (*TelegramPlatform, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}

	api, err := tgbotapi.NewBotAPIWithClient(apiKey, endpoint, client)
	if err != nil {
		return nil, internal.NewError(internal.KindConnectFailed, "FailedToConnectToTelegram", err)
	}
	internal.LogDebug("Authorized on Telegram as @%s", api.Self.UserName)

	return &TelegramPlatform{api: api}, nil
}

// Username is the bot's Telegram user name
func (p *TelegramPlatform) Username() string {
	return p.api.Self.UserName
}

func (p *TelegramPlatform) SendMessage(ctx context.Context, chatID int64, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	if msg.Markdown {
		cfg.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(msg.Buttons) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	_, err := p.api.Send(cfg)
	return err
}

func (p *TelegramPlatform) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmds := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, c := range commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.Command, Description: c.Description})
	}
	_, err := p.api.Request(tgbotapi.NewSetMyCommands(cmds...))
	return err
}

func (p *TelegramPlatform) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (p *TelegramPlatform) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// Updates long-polls for updates until ctx is done.
func (p *TelegramPlatform) Updates(ctx context.Context) <-chan Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	in := p.api.GetUpdatesChan(u)

	out := make(chan Event)
	go func() {
		defer close(out)
		defer p.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-in:
				if !ok {
					return
				}
				ev, ok := toEvent(upd)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// toEvent keeps commands and button presses and drops everything else.
func toEvent(upd tgbotapi.Update) (Event, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		ev := Event{Kind: EventCallback, CallbackID: cq.ID, Data: cq.Data}
		if cq.From != nil {
			ev.From = cq.From.ID
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		return ev, true
	}

	msg := upd.Message
	if msg == nil || !msg.IsCommand() {
		return Event{}, false
	}
	ev := Event{
		Kind:      EventCommand,
		MessageID: msg.MessageID,
		Command:   msg.Command(),
		Args:      msg.CommandArguments(),
	}
	if msg.From != nil {
		ev.From = msg.From.ID
	}
	if msg.Chat != nil {
		ev.ChatID = msg.Chat.ID
	}
	return ev, true
}
