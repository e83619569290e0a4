package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/iksnae/corebos/internal/lightning/lightningtest"
	"github.com/iksnae/corebos/internal/release"
)

const (
	testAPIKey   = "111:secret"
	testOperator = int64(42)
)

type staticNodes []string

func (s staticNodes) SavedNodes() ([]string, error) { return s, nil }

func testConnector() *lightningtest.FakeConnector {
	return &lightningtest.FakeConnector{
		Default: "alpha",
		Sessions: map[string]*lightningtest.FakeSession{
			"alpha": {NodeName: "alpha", Info: lightning.NodeInfo{
				PublicKey: "02aaaaaaaaaaaaaaaa", Alias: "Alpha", Version: "v24.08", NumActiveChannels: 3,
			}},
			"beta": {NodeName: "beta", Info: lightning.NodeInfo{
				PublicKey: "03bbbbbbbbbbbbbbbb", Alias: "Beta", Version: "v24.08", NumActiveChannels: 1,
			}},
		},
		Errs: map[string]error{"gamma": errors.New("connection refused")},
	}
}

type runningBot struct {
	bot      *Bot
	platform *fakePlatform
	done     chan error
	cancel   context.CancelFunc
}

func startBot(t *testing.T, cfg Config, deps Deps) *runningBot {
	t.Helper()
	p := newFakePlatform()
	deps.Platform = p
	if cfg.APIKey == "" {
		cfg.APIKey = testAPIKey
	}

	b := NewBot(cfg, deps)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	rb := &runningBot{bot: b, platform: p, done: done, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("bot did not stop")
		}
	})
	return rb
}

// send delivers ev and waits until the platform has seen n messages in total.
func (rb *runningBot) send(t *testing.T, ev Event, n int) {
	t.Helper()
	rb.platform.events <- ev
	waitFor(t, "replies", func() bool { return len(rb.platform.messages()) >= n })
}

func command(name string, from int64) Event {
	return Event{Kind: EventCommand, Command: name, From: from, ChatID: from, MessageID: 7}
}

func button(data string, from int64) Event {
	return Event{Kind: EventCallback, Data: data, From: from, ChatID: from, MessageID: 8, CallbackID: "cb-" + data}
}

func TestBot_RunPostsStatus(t *testing.T) {
	rb := startBot(t, Config{ConnectCode: "42", Nodes: []string{"alpha", "gamma"}}, Deps{Connector: testConnector()})
	waitFor(t, "status messages", func() bool { return len(rb.platform.messages()) >= 2 })

	msgs := rb.platform.messages()
	if msgs[0].chatID != testOperator || msgs[1].chatID != testOperator {
		t.Errorf("status sent to %d and %d, want operator", msgs[0].chatID, msgs[1].chatID)
	}
	if !strings.Contains(msgs[0].msg.Text, "Connected to Alpha 02aaaaaa") {
		t.Errorf("online message = %q", msgs[0].msg.Text)
	}
	if !strings.Contains(msgs[1].msg.Text, "Cannot connect to gamma") {
		t.Errorf("offline message = %q", msgs[1].msg.Text)
	}

	rb.platform.mu.Lock()
	commands := len(rb.platform.commands)
	rb.platform.mu.Unlock()
	if commands != len(botCommands) {
		t.Errorf("registered %d commands, want %d", commands, len(botCommands))
	}
}

func TestBot_RunRejectsBadConnectCode(t *testing.T) {
	conn := testConnector()
	b := NewBot(Config{APIKey: testAPIKey, ConnectCode: "111"}, Deps{Platform: newFakePlatform(), Connector: conn})

	err := b.Run(context.Background())
	if internal.KindOf(err) != internal.KindInvalidConnectCode {
		t.Fatalf("Run() error = %v, want InvalidConnectCode", err)
	}
	if len(conn.Connected()) != 0 {
		t.Errorf("connected %v before the code was accepted", conn.Connected())
	}
}

func TestBot_RunNoNodes(t *testing.T) {
	conn := &lightningtest.FakeConnector{Errs: map[string]error{"x": errors.New("down")}}
	b := NewBot(Config{APIKey: testAPIKey, ConnectCode: "42", Nodes: []string{"x"}}, Deps{Platform: newFakePlatform(), Connector: conn})

	err := b.Run(context.Background())
	if !errors.Is(err, internal.ErrKind(internal.KindNoSessionsEstablished)) {
		t.Errorf("Run() error = %v, want NoSessionsEstablished", err)
	}
}

func TestBot_PromptsForConnectCode(t *testing.T) {
	rb := startBot(t, Config{}, Deps{
		Connector: testConnector(),
		Prompter:  linePrompter("abc", "111", "42"),
	})
	waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

	if got := rb.bot.Operator().ID(); got != testOperator {
		t.Errorf("operator = %d, want %d", got, testOperator)
	}
}

func TestBot_PromptAbortStopsRun(t *testing.T) {
	b := NewBot(Config{APIKey: testAPIKey}, Deps{
		Platform:  newFakePlatform(),
		Connector: testConnector(),
		Prompter:  linePrompter(),
	})

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Run() should fail when the prompt is aborted")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
	}
}

func TestBot_OpenCommands(t *testing.T) {
	rb := startBot(t, Config{}, Deps{
		Connector: testConnector(),
		Prompter:  linePrompter("42"),
	})
	waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

	rb.send(t, command("connect", 99), 2)
	rb.send(t, command("start", 99), 3)

	texts := rb.platform.texts()
	if texts[1] != msgBotIsConnected || texts[2] != msgBotIsConnected {
		t.Errorf("replies after connect = %q", texts[1:])
	}
}

func TestBot_ConnectBeforeOperator(t *testing.T) {
	p := newFakePlatform()
	b := NewBot(Config{APIKey: testAPIKey}, Deps{Platform: p})

	b.router.Dispatch(context.Background(), command("connect", 1234))
	b.router.Dispatch(context.Background(), command("start", 1234))

	texts := p.texts()
	if len(texts) != 2 {
		t.Fatalf("got %d replies, want 2", len(texts))
	}
	if !strings.Contains(texts[0], "`1234`") {
		t.Errorf("connect reply = %q, want the sender id as code", texts[0])
	}
	if texts[1] != msgStart {
		t.Errorf("start reply = %q", texts[1])
	}
}

func TestBot_Denied(t *testing.T) {
	rb := startBot(t, Config{ConnectCode: "42"}, Deps{Connector: testConnector()})
	waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

	rb.send(t, command("info", 7), 2)
	rb.send(t, button(buttonTerminateBot, 7), 3)

	msgs := rb.platform.messages()
	for _, m := range msgs[1:] {
		if m.chatID != 7 || m.msg.Text != msgDenied {
			t.Errorf("reply = %d %q, want denial to 7", m.chatID, m.msg.Text)
		}
	}
	select {
	case <-rb.done:
		t.Error("a stranger stopped the bot")
	default:
	}
}

func TestBot_Info(t *testing.T) {
	rb := startBot(t, Config{ConnectCode: "42", Nodes: []string{"alpha", "gamma"}}, Deps{Connector: testConnector()})
	waitFor(t, "status messages", func() bool { return len(rb.platform.messages()) >= 2 })

	rb.send(t, command("info", testOperator), 3)

	reply := rb.platform.messages()[2].msg
	if !strings.Contains(reply.Text, "Alpha running v24.08") || !strings.Contains(reply.Text, "3 active channels") {
		t.Errorf("info reply missing node details: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "gamma is offline") {
		t.Errorf("info reply missing offline node: %q", reply.Text)
	}
	if len(reply.Buttons) != 2 || reply.Buttons[0].Data != "node-info:alpha" || reply.Buttons[1].Data != "node-info:gamma" {
		t.Errorf("buttons = %+v", reply.Buttons)
	}
	if ids := rb.platform.deletedIDs(); len(ids) != 1 || ids[0] != 7 {
		t.Errorf("deleted = %v, want the /info message", ids)
	}

	rb.send(t, button("node-info:alpha", testOperator), 4)
	if got := rb.platform.messages()[3].msg.Text; !strings.Contains(got, "Alpha running") {
		t.Errorf("node info reply = %q", got)
	}
}

func TestBot_InfoFollowsRequestedOrder(t *testing.T) {
	conn := testConnector()
	rb := startBot(t, Config{ConnectCode: "42", Nodes: []string{"gamma", "beta", "alpha", "", "Beta"}}, Deps{Connector: conn})
	waitFor(t, "status messages", func() bool { return len(rb.platform.messages()) >= 2 })

	rb.send(t, command("info", testOperator), 3)

	var got []string
	for _, b := range rb.platform.messages()[2].msg.Buttons {
		got = append(got, b.Data)
	}
	want := []string{"node-info:gamma", "node-info:beta", "node-info:alpha"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("info buttons mismatch (-want +got):\n%s", diff)
	}
	if online := rb.platform.messages()[0].msg.Text; strings.Count(online, "Alpha") != 1 {
		t.Errorf("default node listed more than once: %q", online)
	}
}

func TestBot_InfoReconnectsLostSession(t *testing.T) {
	conn := testConnector()
	rb := startBot(t, Config{ConnectCode: "42"}, Deps{Connector: conn})
	waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

	lost := conn.Sessions["alpha"]
	conn.Sessions["alpha"] = &lightningtest.FakeSession{NodeName: "alpha", Info: lost.Info}
	lost.Destroy()
	rb.send(t, command("info", testOperator), 2)

	if got := rb.platform.messages()[1].msg.Text; !strings.Contains(got, "Alpha running") {
		t.Errorf("info reply = %q", got)
	}
	if got := len(conn.Connected()); got != 2 {
		t.Errorf("connects = %d, want a reconnect", got)
	}
}

func TestBot_Help(t *testing.T) {
	rb := startBot(t, Config{ConnectCode: "42"}, Deps{Connector: testConnector(), Saved: staticNodes{"alpha", "beta"}})
	waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

	rb.send(t, command("help", testOperator), 2)

	got := rb.platform.messages()[1].msg.Text
	for _, want := range []string{"/info - Show wallet info", "/stop - Stop the bot", "Saved nodes: alpha, beta"} {
		if !strings.Contains(got, want) {
			t.Errorf("help reply missing %q:\n%s", want, got)
		}
	}
}

func TestBot_Version(t *testing.T) {
	tests := []struct {
		name     string
		versions release.Checker
		want     string
	}{
		{"newer release", staticVersions{version: "v1.3.0"}, "go install example.com/corebos@latest"},
		{"same release", staticVersions{version: "v1.2.0"}, "Latest version: v1.2.0"},
		{"lookup fails", staticVersions{err: errors.New("offline")}, msgVersionFailed},
		{"no checker", nil, msgVersionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := startBot(t, Config{ConnectCode: "42", Version: "v1.2.0", Module: "example.com/corebos"},
				Deps{Connector: testConnector(), Versions: tt.versions})
			waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

			rb.send(t, command("version", testOperator), 3)

			texts := rb.platform.texts()
			if texts[1] != runningVersionMessage("v1.2.0") {
				t.Errorf("first reply = %q", texts[1])
			}
			if !strings.Contains(texts[2], tt.want) {
				t.Errorf("second reply = %q, want it to contain %q", texts[2], tt.want)
			}
			if tt.name == "same release" && strings.Contains(texts[2], "go install") {
				t.Errorf("no update hint expected: %q", texts[2])
			}
		})
	}
}

func TestBot_StopFlow(t *testing.T) {
	conn := testConnector()
	rb := startBot(t, Config{ConnectCode: "42"}, Deps{Connector: conn})
	waitFor(t, "status message", func() bool { return len(rb.platform.messages()) >= 1 })

	rb.send(t, command("stop", testOperator), 2)
	confirm := rb.platform.messages()[1].msg
	if confirm.Text != msgStopConfirm || len(confirm.Buttons) != 2 {
		t.Fatalf("stop reply = %+v", confirm)
	}
	if confirm.Buttons[0].Data != buttonRemoveMessage || confirm.Buttons[1].Data != buttonTerminateBot {
		t.Errorf("stop buttons = %+v", confirm.Buttons)
	}

	rb.platform.events <- button(buttonRemoveMessage, testOperator)
	waitFor(t, "cancel", func() bool { return len(rb.platform.deletedIDs()) == 1 })

	rb.send(t, button(buttonTerminateBot, testOperator), 3)
	select {
	case err := <-rb.done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}
	rb.done <- nil

	if got := rb.platform.texts()[2]; got != msgStopped {
		t.Errorf("final reply = %q", got)
	}
	if !conn.Sessions["alpha"].Destroyed() {
		t.Error("sessions should be destroyed when the bot stops")
	}
}
