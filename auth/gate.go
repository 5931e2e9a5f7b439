package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prompt asks the user to log in again.
type Prompt struct {
	FlowID   string
	Reason   error
	RaisedAt time.Time
}

// Handler surfaces a Prompt, typically by opening a login dialog.
type Handler func(Prompt)

type subscription struct {
	id      int
	handler Handler
}

// Gate owns the session credential and the unauthorized signal. At most one
// prompt is active per flow: raising again before the prompt is dismissed or
// a login succeeds is a no-op.
type Gate struct {
	session *Session
	logger  zerolog.Logger

	mu       sync.Mutex
	handlers []subscription
	nextID   int
	active   map[string]Prompt
}

func NewGate(session *Session) *Gate {
	if session == nil {
		session = NewSession("")
	}
	return &Gate{
		session: session,
		logger:  log.With().Str("component", "authGate").Logger(),
		active:  make(map[string]Prompt),
	}
}

func (g *Gate) Session() *Session {
	return g.session
}

// CurrentToken returns the credential to attach, empty when there is none.
func (g *Gate) CurrentToken() string {
	return g.session.Token()
}

// OnUnauthorized registers h and returns a function that unregisters it.
func (g *Gate) OnUnauthorized(h Handler) func() {
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.handlers = append(g.handlers, subscription{id: id, handler: h})
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, s := range g.handlers {
			if s.id == id {
				g.handlers = append(g.handlers[:i], g.handlers[i+1:]...)
				return
			}
		}
	}
}

// Raise surfaces a prompt for the flow of ctx. It reports whether handlers were
// called; false means a prompt for that flow is already open.
func (g *Gate) Raise(ctx context.Context, reason error) bool {
	flow := FlowID(ctx)

	g.mu.Lock()
	if _, open := g.active[flow]; open {
		g.mu.Unlock()
		g.logger.Debug().Str("flow", flow).Msg("unauthorized signal suppressed, prompt already open")
		return false
	}
	prompt := Prompt{FlowID: flow, Reason: reason, RaisedAt: time.Now()}
	g.active[flow] = prompt
	handlers := make([]Handler, 0, len(g.handlers))
	for _, s := range g.handlers {
		handlers = append(handlers, s.handler)
	}
	g.mu.Unlock()

	ev := g.logger.Warn().Str("flow", flow)
	if reason != nil {
		ev = ev.Err(reason)
	}
	ev.Msg("re-authentication required")

	for _, h := range handlers {
		h(prompt)
	}
	return true
}

// Active reports whether the flow of ctx has an open prompt.
func (g *Gate) Active(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, open := g.active[FlowID(ctx)]
	return open
}

// Dismiss closes the prompt of the flow of ctx without logging in. The next
// rejection in that flow raises again.
func (g *Gate) Dismiss(ctx context.Context) {
	g.mu.Lock()
	delete(g.active, FlowID(ctx))
	g.mu.Unlock()
}

// Login installs a freshly issued token and closes every open prompt. Callers
// resubmit manually; nothing is replayed.
func (g *Gate) Login(token string) {
	g.session.Set(token)

	g.mu.Lock()
	closed := len(g.active)
	clear(g.active)
	g.mu.Unlock()

	ev := g.logger.Info().Int("closedPrompts", closed)
	if claims, err := g.session.Claims(); err == nil {
		ev = ev.Str("subject", claims.Subject)
		if !claims.ExpiresAt.IsZero() {
			ev = ev.Time("expiresAt", claims.ExpiresAt)
		}
	}
	ev.Msg("session credential updated")
}
