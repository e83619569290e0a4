package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/iksnae/corebos/internal/lightning"
)

const (
	iconBot          = "🤖"
	iconInfo         = "ℹ️"
	iconConnected    = "⚡️"
	iconDisconnected = "⚠️"

	buttonTerminateBot   = "terminate-bot"
	buttonRemoveMessage  = "remove-message"
	buttonNodeInfoPrefix = "node-info:"
)

// Commands registered with the bot menu, in /help order.
var botCommands = []BotCommand{
	{Command: "connect", Description: "Get connect code for the bot"},
	{Command: "help", Description: "Show the list of commands"},
	{Command: "info", Description: "Show wallet info"},
	{Command: "stop", Description: "Stop the bot"},
	{Command: "version", Description: "View current bot version"},
}

var (
	msgStart          = iconBot + " Hi! Send /connect to get your connect code, then pass it to `corebos telegram --connect <code>` or enter it when the bot asks."
	msgBotIsConnected = iconBot + " Bot is already connected."
	msgDenied         = iconBot + " This command requires the connect code. Send /connect to get it."
	msgStopConfirm    = iconBot + " Are you sure that you want to stop the bot?"
	msgStopped        = iconBot + " Bot stopped."
	msgVersionFailed  = iconBot + " Failed to get version information from the Go module proxy"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func connectCodeMessage(from int64) string {
	return fmt.Sprintf("%s Connection code is: `%d`", iconBot, from)
}

func apologyMessage(action string) string {
	return fmt.Sprintf("%s Sorry, %s failed. Check the bot logs for details.", iconBot, action)
}

func helpMessage(saved []string) string {
	var b strings.Builder
	b.WriteString(iconBot + "\n")
	for _, c := range botCommands {
		fmt.Fprintf(&b, "/%s - %s\n", c.Command, c.Description)
	}
	if len(saved) > 0 {
		fmt.Fprintf(&b, "\nSaved nodes: %s", strings.Join(saved, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func runningVersionMessage(v string) string {
	return fmt.Sprintf("%s Running version: %s", iconBot, v)
}

func latestVersionMessage(latest string, newer bool, module string) string {
	msg := fmt.Sprintf("%s Latest version: %s", iconBot, latest)
	if newer {
		msg += fmt.Sprintf("\nUpdate with `go install %s@latest`", module)
	}
	return msg
}

func nodeInfoMessage(info lightning.NodeInfo) string {
	channels := "active channels"
	if info.NumActiveChannels == 1 {
		channels = "active channel"
	}
	return fmt.Sprintf("%s Info: %s running %s\n`%s`\n%d %s",
		iconInfo, escape(info.Alias), escape(info.Version), info.PublicKey, info.NumActiveChannels, channels)
}

func nodeOfflineLine(name string) string {
	return fmt.Sprintf("%s %s is offline", iconDisconnected, escape(name))
}

func nodeLabel(alias, id string) string {
	return strings.TrimSpace(alias + " " + shortID(id))
}

// Legacy Markdown has no escapes inside an entity, so the status posts carry
// escaped labels in plain text.
func nodesOnlineMessage(labels []string) string {
	return fmt.Sprintf("%s Connected to %s", iconConnected, escape(strings.Join(labels, ", ")))
}

func nodesOfflineMessage(labels []string) string {
	return fmt.Sprintf("%s Lost connection! Cannot connect to %s.", iconDisconnected, escape(strings.Join(labels, ", ")))
}
