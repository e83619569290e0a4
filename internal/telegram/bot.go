package telegram

import (
	"context"
	"time"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/lightning"
	"github.com/iksnae/corebos/internal/release"
	"golang.org/x/sync/errgroup"
)

const nodeTimeout = 30 * time.Second

// NodeLister lists saved node names for /help. *credentials.Store
// implements it.
type NodeLister interface {
	SavedNodes() ([]string, error)
}

// Config holds the settings of one bot run.
type Config struct {
	APIKey      string
	ConnectCode string   // optional, skips the connect code prompt
	Nodes       []string // empty means the default node
	Version     string
	Module      string // module path used for /version lookups
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Platform  Platform
	Connector lightning.Connector
	Prompter  internal.Prompter
	Versions  release.Checker
	Saved     NodeLister
}

// node is one requested node. session is nil until a connect succeeds and
// is replaced when it was destroyed. Only the update loop touches it after
// startup.
type node struct {
	name    string
	session lightning.Session
	info    lightning.NodeInfo
	online  bool
}

func (n *node) label() string {
	if n.online {
		return nodeLabel(n.info.Alias, n.info.PublicKey)
	}
	if n.session != nil {
		return n.session.Name()
	}
	return lightning.DisplayName(n.name)
}

// Bot owns the operator identity and the node sessions for one run.
type Bot struct {
	cfg      Config
	deps     Deps
	operator *Operator
	router   *Router
	nodes    []*node
	stop     context.CancelFunc
}

// NewBot wires the command routes.
func NewBot(cfg Config, deps Deps) *Bot {
	b := &Bot{cfg: cfg, deps: deps, operator: &Operator{}}
	b.router = NewRouter(deps.Platform, b.operator)

	b.router.Command("start", b.handleStart)
	b.router.Command("connect", b.handleConnect)
	b.router.PrivilegedCommand("help", b.handleHelp)
	b.router.PrivilegedCommand("info", b.handleInfo)
	b.router.PrivilegedCommand("stop", b.handleStop)
	b.router.PrivilegedCommand("version", b.handleVersion)
	b.router.Button(buttonTerminateBot, b.handleTerminate)
	b.router.Button(buttonRemoveMessage, b.handleRemoveMessage)
	b.router.ButtonPrefix(buttonNodeInfoPrefix, b.handleNodeInfo)

	return b
}

// Operator exposes the bot's operator gate
func (b *Bot) Operator() *Operator {
	return b.operator
}

// Run connects to the nodes, serves updates and blocks until ctx is done or
// the operator stops the bot. Sessions are destroyed before it returns.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.stop = cancel

	if b.cfg.ConnectCode != "" {
		if err := b.operator.Confirm(b.cfg.ConnectCode, b.cfg.APIKey); err != nil {
			return err
		}
	}

	if err := b.connectNodes(ctx); err != nil {
		return err
	}
	defer b.destroySessions()
	online, offline := b.status()

	if err := b.deps.Platform.SetMyCommands(ctx, botCommands); err != nil {
		internal.LogWarn("Failed to register bot commands: %v", err)
	}

	updates := b.deps.Platform.Updates(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range updates {
			b.router.Dispatch(ctx, ev)
		}
	}()

	if b.operator.ID() == 0 {
		if err := b.askConnectCode(); err != nil {
			cancel()
			<-done
			return err
		}
	}

	internal.LogInfo("Connected to Telegram, operator %d", b.operator.ID())
	b.postStatus(ctx, online, offline)

	<-ctx.Done()
	<-done
	internal.LogInfo("Telegram bot stopped")
	return nil
}

// connectNodes opens the requested sessions, in request order, and fetches
// getinfo from each. Nodes that fail either step start out offline.
func (b *Bot) connectNodes(ctx context.Context) error {
	var cause error
	for _, r := range lightning.NewPool(b.deps.Connector).Open(ctx, b.cfg.Nodes) {
		n := &node{name: r.Name, session: r.Session}
		if r.Session != nil {
			n.name = r.Session.Name()
		} else if cause == nil {
			cause = r.Err
		}
		b.nodes = append(b.nodes, n)
	}
	if !b.anySession() {
		b.nodes = nil
		return internal.NewError(internal.KindNoSessionsEstablished, "", cause)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range b.nodes {
		if n.session == nil {
			continue
		}
		g.Go(func() error {
			b.refresh(gctx, n)
			return nil
		})
	}
	return g.Wait()
}

func (b *Bot) anySession() bool {
	for _, n := range b.nodes {
		if n.session != nil {
			return true
		}
	}
	return false
}

// refresh reconnects n when needed and updates its info.
func (b *Bot) refresh(ctx context.Context, n *node) {
	ctx, cancel := context.WithTimeout(ctx, nodeTimeout)
	defer cancel()

	if n.session == nil || n.session.Destroyed() {
		s, err := b.deps.Connector.Connect(ctx, n.name)
		if err != nil {
			internal.LogWarn("Node %s is offline: %v", lightning.DisplayName(n.name), err)
			n.online = false
			return
		}
		n.session = s
	}

	info, err := n.session.GetInfo(ctx)
	if err != nil {
		internal.LogWarn("Node %s is offline: %v", n.session.Name(), err)
		n.online = false
		return
	}
	n.info = info
	n.online = true
}

func (b *Bot) destroySessions() {
	for _, n := range b.nodes {
		if n.session != nil {
			n.session.Destroy()
		}
	}
}

func (b *Bot) askConnectCode() error {
	for {
		code, err := b.deps.Prompter.Ask(internal.Question{
			Message: "Enter the connect code from the bot's /connect command",
			Name:    "code",
			Validate: func(s string) error {
				_, err := ParseConnectCode(s, b.cfg.APIKey)
				return err
			},
		})
		if err != nil {
			return err
		}
		err = b.operator.Confirm(code, b.cfg.APIKey)
		if internal.KindOf(err) == internal.KindInvalidConnectCode {
			internal.LogWarn("%v", err)
			continue
		}
		return err
	}
}

// status labels the nodes as they were at startup. It must run before the
// update loop starts.
func (b *Bot) status() (online, offline []string) {
	for _, n := range b.nodes {
		if n.online {
			online = append(online, n.label())
		} else {
			offline = append(offline, n.label())
		}
	}
	return online, offline
}

func (b *Bot) postStatus(ctx context.Context, online, offline []string) {
	chat := b.operator.ID()
	if len(online) > 0 {
		b.send(ctx, chat, Message{Text: nodesOnlineMessage(online), Markdown: true})
	}
	if len(offline) > 0 {
		b.send(ctx, chat, Message{Text: nodesOfflineMessage(offline), Markdown: true})
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, msg Message) {
	if err := b.deps.Platform.SendMessage(ctx, chatID, msg); err != nil {
		internal.LogError("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) findNode(name string) *node {
	for _, n := range b.nodes {
		if n.name == name || (n.session != nil && n.session.Name() == name) {
			return n
		}
	}
	return nil
}

// buttonNodeName is the name carried in node-info button data.
func buttonNodeName(n *node) string {
	if n.session != nil {
		return n.session.Name()
	}
	return n.name
}
