package telegram

import (
	"context"
	"strings"

	"github.com/iksnae/corebos/internal"
)

// Handler acts on one event. A returned error is logged and answered with an
// apology.
type Handler func(ctx context.Context, ev Event) error

type route struct {
	name       string
	handler    Handler
	privileged bool
}

// Router maps commands and button data to handlers. Privileged routes pass
// the operator gate before running and every button is privileged.
type Router struct {
	platform Platform
	operator *Operator
	commands map[string]route
	buttons  map[string]route
	prefixes []string
	byPrefix map[string]route
}

// NewRouter creates a router replying through p and gating on op
func NewRouter(p Platform, op *Operator) *Router {
	return &Router{
		platform: p,
		operator: op,
		commands: make(map[string]route),
		buttons:  make(map[string]route),
		byPrefix: make(map[string]route),
	}
}

// Command registers an open command that skips the operator gate
func (r *Router) Command(name string, h Handler) {
	r.commands[name] = route{name: "/" + name, handler: h}
}

// PrivilegedCommand registers a command only the operator may run
func (r *Router) PrivilegedCommand(name string, h Handler) {
	r.commands[name] = route{name: "/" + name, handler: h, privileged: true}
}

// Button registers a handler for exact callback data
func (r *Router) Button(data string, h Handler) {
	r.buttons[data] = route{name: data, handler: h, privileged: true}
}

// ButtonPrefix registers a handler for callback data starting with prefix.
// Prefixes must not overlap.
func (r *Router) ButtonPrefix(prefix string, h Handler) {
	if _, ok := r.byPrefix[prefix]; !ok {
		r.prefixes = append(r.prefixes, prefix)
	}
	r.byPrefix[prefix] = route{name: strings.TrimSuffix(prefix, ":"), handler: h, privileged: true}
}

// Dispatch routes ev. It never fails: problems are logged and, for known
// routes, answered in the chat.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventCommand:
		rt, ok := r.commands[ev.Command]
		if !ok {
			internal.LogDebug("Ignoring unknown command /%s", ev.Command)
			return
		}
		r.run(ctx, rt, ev)

	case EventCallback:
		if err := r.platform.AnswerCallback(ctx, ev.CallbackID); err != nil {
			internal.LogDebug("Failed to answer callback: %v", err)
		}
		rt, ok := r.matchButton(ev.Data)
		if !ok {
			internal.LogWarn("Unknown button pushed: %q", ev.Data)
			return
		}
		r.run(ctx, rt, ev)
	}
}

// matchButton tries an exact match before the prefixes.
func (r *Router) matchButton(data string) (route, bool) {
	if rt, ok := r.buttons[data]; ok {
		return rt, true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(data, p) {
			return r.byPrefix[p], true
		}
	}
	return route{}, false
}

func (r *Router) run(ctx context.Context, rt route, ev Event) {
	if rt.privileged {
		if err := CheckAccess(ev.From, r.operator.ID()); err != nil {
			internal.LogWarn("Denied %s from %d: %v", rt.name, ev.From, err)
			r.reply(ctx, ev, Message{Text: msgDenied})
			return
		}
	}

	if err := rt.handler(ctx, ev); err != nil {
		internal.LogError("%s failed: %v", rt.name, err)
		r.reply(ctx, ev, Message{Text: apologyMessage(rt.name)})
	}
}

func (r *Router) reply(ctx context.Context, ev Event, msg Message) {
	if ev.ChatID == 0 {
		return
	}
	if err := r.platform.SendMessage(ctx, ev.ChatID, msg); err != nil {
		internal.LogError("Failed to reply in chat %d: %v", ev.ChatID, err)
	}
}
