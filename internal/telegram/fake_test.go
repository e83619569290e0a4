package telegram

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/corebos/internal"
)

type sentMessage struct {
	chatID int64
	msg    Message
}

// fakePlatform records everything the bot sends. Events sent on events are
// delivered through Updates.
type fakePlatform struct {
	mu       sync.Mutex
	sent     []sentMessage
	deleted  []int
	answered []string
	commands []BotCommand
	sendErr  error

	events chan Event
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{events: make(chan Event)}
}

func (f *fakePlatform) SendMessage(_ context.Context, chatID int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, msg: msg})
	return nil
}

func (f *fakePlatform) SetMyCommands(_ context.Context, commands []BotCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = commands
	return nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakePlatform) AnswerCallback(_ context.Context, callbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakePlatform) Updates(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-f.events:
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

func (f *fakePlatform) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakePlatform) texts() []string {
	var texts []string
	for _, m := range f.messages() {
		texts = append(texts, m.msg.Text)
	}
	return texts
}

func (f *fakePlatform) deletedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deleted...)
}

// waitFor polls cond until it holds or a few seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type staticVersions struct {
	version string
	err     error
}

func (s staticVersions) Latest(context.Context) (string, error) {
	return s.version, s.err
}

// linePrompter answers prompts from the given lines
func linePrompter(lines ...string) internal.Prompter {
	return internal.NewLinePrompter(strings.NewReader(strings.Join(lines, "\n")+"\n"), io.Discard)
}
