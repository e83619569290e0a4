package lightning

import (
	"context"
	"strings"
	"sync"

	"github.com/iksnae/corebos/internal"
	"golang.org/x/sync/errgroup"
)

// NameResolver maps a requested node name to the saved node it refers to.
// Connectors that implement it let the pool dedupe by resolved node, so the
// default node requested by name and by "" opens one session.
type NameResolver interface {
	ResolveName(name string) (string, error)
}

// NodeError pairs a requested node name with the reason it could not be
// reached. The empty name is the default node.
type NodeError struct {
	Name string
	Err  error
}

// NodeResult is the outcome for one requested node. Exactly one of Session
// and Err is set.
type NodeResult struct {
	Name    string
	Session Session
	Err     error
}

// Pool resolves requested node names into sessions.
type Pool struct {
	connector Connector
}

// NewPool creates a pool connecting through c
func NewPool(c Connector) *Pool {
	return &Pool{connector: c}
}

// Dedupe lowercases names and drops repeats, keeping the first occurrence of
// each. An empty request becomes a single request for the default node.
func Dedupe(names []string) []string {
	if len(names) == 0 {
		return []string{""}
	}
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true
		unique = append(unique, name)
	}
	return unique
}

// requests dedupes names and, when the connector can, resolves each to its
// saved node and dedupes again. Names that fail to resolve come back with
// their error set.
func (p *Pool) requests(names []string) []NodeResult {
	unique := Dedupe(names)
	resolver, ok := p.connector.(NameResolver)
	if !ok {
		reqs := make([]NodeResult, 0, len(unique))
		for _, name := range unique {
			reqs = append(reqs, NodeResult{Name: name})
		}
		return reqs
	}

	seen := make(map[string]bool, len(unique))
	reqs := make([]NodeResult, 0, len(unique))
	for _, name := range unique {
		resolved, err := resolver.ResolveName(name)
		if err != nil {
			reqs = append(reqs, NodeResult{Name: name, Err: err})
			continue
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		reqs = append(reqs, NodeResult{Name: resolved})
	}
	return reqs
}

// dropRepeats destroys any session whose node already has one earlier in
// results and removes it from the list.
func dropRepeats(results []NodeResult) []NodeResult {
	seen := make(map[string]bool, len(results))
	kept := results[:0]
	for _, r := range results {
		if r.Session != nil {
			if seen[r.Session.Name()] {
				internal.LogDebug("Dropping second session to %s", r.Session.Name())
				r.Session.Destroy()
				continue
			}
			seen[r.Session.Name()] = true
		}
		kept = append(kept, r)
	}
	return kept
}

// Resolve opens one session per unique node, in first-seen order. If any node
// fails, the sessions already opened are destroyed and NoSessionsEstablished
// is returned.
func (p *Pool) Resolve(ctx context.Context, names []string) ([]Session, error) {
	reqs := p.requests(names)
	for _, r := range reqs {
		if r.Err != nil {
			return nil, internal.NewError(internal.KindNoSessionsEstablished, "", r.Err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range reqs {
		g.Go(func() error {
			s, err := p.connector.Connect(gctx, reqs[i].Name)
			if err != nil {
				return err
			}
			reqs[i].Session = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, r := range reqs {
			if r.Session != nil {
				r.Session.Destroy()
			}
		}
		return nil, internal.NewError(internal.KindNoSessionsEstablished, "", err)
	}

	reqs = dropRepeats(reqs)
	sessions := make([]Session, 0, len(reqs))
	for _, r := range reqs {
		sessions = append(sessions, r.Session)
	}
	return sessions, nil
}

// Open connects to every unique node and reports each outcome in first-seen
// order. Failed nodes are logged and returned with Err set; Open never fails
// as a whole.
func (p *Pool) Open(ctx context.Context, names []string) []NodeResult {
	reqs := p.requests(names)

	var wg sync.WaitGroup
	for i := range reqs {
		if reqs[i].Err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			reqs[i].Session, reqs[i].Err = p.connector.Connect(ctx, reqs[i].Name)
		}()
	}
	wg.Wait()

	for _, r := range reqs {
		if r.Err != nil {
			internal.LogWarn("Node %q is unavailable: %v", DisplayName(r.Name), r.Err)
		}
	}
	return dropRepeats(reqs)
}

// ResolvePartial is Resolve for long running callers: nodes that fail are
// reported alongside the sessions that came up. It only fails when no session
// could be opened.
func (p *Pool) ResolvePartial(ctx context.Context, names []string) ([]Session, []NodeError, error) {
	var up []Session
	var failed []NodeError
	for _, r := range p.Open(ctx, names) {
		if r.Err != nil {
			failed = append(failed, NodeError{Name: r.Name, Err: r.Err})
			continue
		}
		up = append(up, r.Session)
	}

	if len(up) == 0 {
		return nil, failed, noSessions(failed)
	}
	return up, failed, nil
}

func noSessions(failed []NodeError) error {
	var cause error
	if len(failed) > 0 {
		cause = failed[0].Err
	}
	return internal.NewError(internal.KindNoSessionsEstablished, "", cause)
}

// DestroyAll destroys every non-nil session
func DestroyAll(sessions []Session) {
	for _, s := range sessions {
		if s != nil {
			s.Destroy()
		}
	}
}

// DisplayName labels a requested node name for messages.
func DisplayName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
