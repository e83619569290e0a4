package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/release"
	"golang.org/x/sync/errgroup"
)

func (b *Bot) handleStart(ctx context.Context, ev Event) error {
	if b.operator.ID() != 0 {
		return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: msgBotIsConnected})
	}
	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: msgStart, Markdown: true})
}

func (b *Bot) handleConnect(ctx context.Context, ev Event) error {
	if b.operator.ID() != 0 {
		return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: msgBotIsConnected})
	}
	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: connectCodeMessage(ev.From), Markdown: true})
}

func (b *Bot) handleHelp(ctx context.Context, ev Event) error {
	var saved []string
	if b.deps.Saved != nil {
		names, err := b.deps.Saved.SavedNodes()
		if err != nil {
			internal.LogWarn("Failed to list saved nodes: %v", err)
		}
		saved = names
	}
	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: helpMessage(saved)})
}

// handleInfo refreshes every node concurrently and replies with one summary.
// Offline nodes are listed rather than failing the command.
func (b *Bot) handleInfo(ctx context.Context, ev Event) error {
	if err := b.deps.Platform.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		internal.LogDebug("Failed to delete /info message: %v", err)
	}

	var g errgroup.Group
	for _, n := range b.nodes {
		g.Go(func() error {
			b.refresh(ctx, n)
			return nil
		})
	}
	_ = g.Wait()

	parts := make([]string, 0, len(b.nodes))
	buttons := make([]Button, 0, len(b.nodes))
	for _, n := range b.nodes {
		if n.online {
			parts = append(parts, nodeInfoMessage(n.info))
		} else {
			parts = append(parts, nodeOfflineLine(n.label()))
		}
		buttons = append(buttons, Button{Label: "🔄 " + n.label(), Data: buttonNodeInfoPrefix + buttonNodeName(n)})
	}

	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{
		Text:     strings.Join(parts, "\n\n"),
		Markdown: true,
		Buttons:  buttons,
	})
}

func (b *Bot) handleNodeInfo(ctx context.Context, ev Event) error {
	name := strings.TrimPrefix(ev.Data, buttonNodeInfoPrefix)
	n := b.findNode(name)
	if n == nil {
		return fmt.Errorf("no node named %q in this bot", name)
	}

	b.refresh(ctx, n)
	text := nodeOfflineLine(n.label())
	if n.online {
		text = nodeInfoMessage(n.info)
	}
	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: text, Markdown: true})
}

func (b *Bot) handleStop(ctx context.Context, ev Event) error {
	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{
		Text: msgStopConfirm,
		Buttons: []Button{
			{Label: "Cancel", Data: buttonRemoveMessage},
			{Label: "Stop bot", Data: buttonTerminateBot},
		},
	})
}

func (b *Bot) handleTerminate(ctx context.Context, ev Event) error {
	if err := b.deps.Platform.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		internal.LogDebug("Failed to delete stop message: %v", err)
	}
	err := b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: msgStopped})
	internal.LogInfo("Stop requested from Telegram")
	if b.stop != nil {
		b.stop()
	}
	return err
}

func (b *Bot) handleRemoveMessage(ctx context.Context, ev Event) error {
	return b.deps.Platform.DeleteMessage(ctx, ev.ChatID, ev.MessageID)
}

// handleVersion always reports the running version. A failed lookup of the
// latest version is answered, not returned.
func (b *Bot) handleVersion(ctx context.Context, ev Event) error {
	if err := b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: runningVersionMessage(b.cfg.Version)}); err != nil {
		return err
	}

	if b.deps.Versions == nil {
		return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: msgVersionFailed})
	}
	latest, err := b.deps.Versions.Latest(ctx)
	if err != nil {
		internal.LogWarn("Version lookup failed: %v", err)
		return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{Text: msgVersionFailed})
	}

	newer := release.IsNewer(latest, b.cfg.Version)
	return b.deps.Platform.SendMessage(ctx, ev.ChatID, Message{
		Text:     latestVersionMessage(latest, newer, b.cfg.Module),
		Markdown: true,
	})
}
