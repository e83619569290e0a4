// Package telegram runs the node status bot: the operator gate, command
// routing and the Telegram transport.
package telegram

import "context"

// EventKind tells commands from button presses
type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
)

// Event is one incoming command or button press.
type Event struct {
	Kind       EventKind
	From       int64
	ChatID     int64
	MessageID  int
	Command    string // without the leading slash
	Args       string
	Data       string // callback data of a button
	CallbackID string
}

// Button is an inline keyboard button
type Button struct {
	Label string
	Data  string
}

// Message is an outgoing chat message. Buttons are laid out in one row.
type Message struct {
	Text     string
	Markdown bool
	Buttons  []Button
}

// BotCommand is an entry of the bot's command menu
type BotCommand struct {
	Command     string
	Description string
}

// Platform is the slice of the bot API the bot uses. Updates closes its
// channel once ctx is done.
type Platform interface {
	SendMessage(ctx context.Context, chatID int64, msg Message) error
	SetMyCommands(ctx context.Context, commands []BotCommand) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID string) error
	Updates(ctx context.Context) <-chan Event
}
