// Package agentbridge forwards grabbed selections to an external agent
// provider and tracks the resulting sessions. The provider owns the request
// lifecycle; the bridge's only core-owned logic is the abort-reentry
// contract: when a session aborts and its element is still attached, the
// engine is asked to re-open prompt entry with the session's original text.
package agentbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/grab/pkg/dom"
	"github.com/entrhq/grab/pkg/logging"
	"github.com/entrhq/grab/pkg/types"
)

var (
	// ErrNoProvider is returned when no agent provider is registered.
	ErrNoProvider = errors.New("no agent provider registered")

	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("agent session not found")
)

// SessionStatus is the bridge's view of a session's lifecycle.
type SessionStatus string

const (
	StatusProcessing SessionStatus = "processing" // StatusProcessing indicates the provider is working on the request.
	StatusCompleted  SessionStatus = "completed"  // StatusCompleted indicates the provider finished the request.
	StatusAborted    SessionStatus = "aborted"    // StatusAborted indicates the request was aborted before completion.
)

// Session is one outstanding agent request tied to an element and a prompt.
type Session struct {
	ID              string
	Element         dom.Element
	Prompt          string
	Context         string
	Position        types.Point
	SelectionBounds *types.Rect
	StartedAt       time.Time
	Status          SessionStatus
}

// StartRequest is the record handed to the provider.
type StartRequest struct {
	SessionID       string
	Element         dom.Element
	Prompt          string
	Context         string
	Position        types.Point
	SelectionBounds *types.Rect
}

// ResumedSession describes a session the provider carried across a reload.
// Elements do not survive reloads, so only prompt and position come back.
type ResumedSession struct {
	ID       string
	Prompt   string
	Position types.Point
}

// Provider is the external agent subsystem's contract.
type Provider interface {
	// StartSession begins processing a request. It may block for the full
	// request duration; the bridge calls it on its own goroutine.
	StartSession(ctx context.Context, req StartRequest) error

	// AbortSession cancels an in-flight request.
	AbortSession(ctx context.Context, sessionID string) error

	// ResumeSessions returns sessions that survived a reload.
	ResumeSessions(ctx context.Context) ([]ResumedSession, error)
}

// Options configures the bridge's provider and host callbacks.
type Options struct {
	Provider       Provider
	OnSessionStart func(Session)
	OnSessionEnd   func(Session)
}

// ReentryFunc is invoked when an aborted session should re-open prompt
// entry. The bridge only calls it when the session's element is still
// attached to the document.
type ReentryFunc func(Session)

// Bridge tracks agent sessions and mediates between engine and provider.
type Bridge struct {
	mu       sync.Mutex
	options  Options
	sessions map[string]*Session
	order    []string
	reentry  ReentryFunc

	broadcaster *types.Broadcaster
	logger      *logging.Logger
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithBroadcaster sets the page-global broadcaster.
func WithBroadcaster(b *types.Broadcaster) Option {
	return func(br *Bridge) { br.broadcaster = b }
}

// WithLogger sets the component logger.
func WithLogger(logger *logging.Logger) Option {
	return func(br *Bridge) { br.logger = logger }
}

// New creates a bridge with no provider. SetOptions registers one later.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		sessions: make(map[string]*Session),
		logger:   logging.NewNopLogger("agentbridge"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetReentry registers the engine's abort-reentry callback.
func (b *Bridge) SetReentry(fn ReentryFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reentry = fn
}

// SetOptions replaces the provider and callbacks at runtime. Registering a
// provider immediately tries to resume sessions that survived a reload.
func (b *Bridge) SetOptions(ctx context.Context, options Options) {
	b.mu.Lock()
	hadProvider := b.options.Provider != nil
	b.options = options
	b.mu.Unlock()

	if options.Provider != nil && !hadProvider {
		b.TryResumeSessions(ctx)
	}
}

// GetOptions returns the current options.
func (b *Bridge) GetOptions() Options {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.options
}

// HasProvider reports whether an agent provider is registered.
func (b *Bridge) HasProvider() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.options.Provider != nil
}

// StartSession records a session and hands it to the provider without
// waiting for completion. The returned id identifies the session to Abort.
func (b *Bridge) StartSession(ctx context.Context, element dom.Element, prompt, contextText string, position types.Point, selectionBounds *types.Rect) (string, error) {
	b.mu.Lock()
	provider := b.options.Provider
	onStart := b.options.OnSessionStart
	if provider == nil {
		b.mu.Unlock()
		return "", ErrNoProvider
	}

	session := &Session{
		ID:              uuid.New().String(),
		Element:         element,
		Prompt:          prompt,
		Context:         contextText,
		Position:        position,
		SelectionBounds: selectionBounds,
		StartedAt:       time.Now(),
		Status:          StatusProcessing,
	}
	b.sessions[session.ID] = session
	b.order = append(b.order, session.ID)
	snapshot := *session
	b.mu.Unlock()

	b.logger.Infof("agent session %s started for <%s>", session.ID, elementTag(element))
	b.publish(types.EventTypeAgentSessionStarted, session.ID)
	if onStart != nil {
		onStart(snapshot)
	}

	// Fire and forget: the provider owns the request lifecycle.
	go func() {
		err := provider.StartSession(ctx, StartRequest{
			SessionID:       session.ID,
			Element:         element,
			Prompt:          prompt,
			Context:         contextText,
			Position:        position,
			SelectionBounds: selectionBounds,
		})
		if err != nil {
			b.logger.Warnf("agent session %s failed: %v", session.ID, err)
			b.finishSession(ctx, session.ID, StatusAborted, true)
			return
		}
		b.finishSession(ctx, session.ID, StatusCompleted, false)
	}()

	return session.ID, nil
}

// IsProcessing reports whether any session is mid-flight.
func (b *Bridge) IsProcessing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		if s.Status == StatusProcessing {
			return true
		}
	}
	return false
}

// Sessions returns the current session list, oldest first, for rendering.
func (b *Bridge) Sessions() []Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	sessions := make([]Session, 0, len(b.order))
	for _, id := range b.order {
		if s, ok := b.sessions[id]; ok {
			sessions = append(sessions, *s)
		}
	}
	return sessions
}

// AbortSession aborts one in-flight session. The provider is told first;
// then the abort-reentry contract runs if the element is still attached.
func (b *Bridge) AbortSession(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	provider := b.options.Provider
	session, ok := b.sessions[sessionID]
	if !ok || session.Status != StatusProcessing {
		b.mu.Unlock()
		return ErrSessionNotFound
	}
	b.mu.Unlock()

	if provider != nil {
		if err := provider.AbortSession(ctx, sessionID); err != nil {
			b.logger.Warnf("provider abort for session %s failed: %v", sessionID, err)
		}
	}

	b.finishSession(ctx, sessionID, StatusAborted, true)
	return nil
}

// AbortAllSessions aborts every in-flight session.
func (b *Bridge) AbortAllSessions(ctx context.Context) {
	for _, s := range b.Sessions() {
		if s.Status == StatusProcessing {
			if err := b.AbortSession(ctx, s.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
				b.logger.Warnf("abort of session %s failed: %v", s.ID, err)
			}
		}
	}
}

// NotifyAborted is called by the host when the external agent subsystem
// aborts a session on its own. Unknown or already finished sessions are
// ignored.
func (b *Bridge) NotifyAborted(ctx context.Context, sessionID string) {
	b.finishSession(ctx, sessionID, StatusAborted, true)
}

// TryResumeSessions reattaches to sessions that survived a reload. Called
// once at startup and whenever a provider is registered.
func (b *Bridge) TryResumeSessions(ctx context.Context) {
	b.mu.Lock()
	provider := b.options.Provider
	b.mu.Unlock()
	if provider == nil {
		return
	}

	resumed, err := provider.ResumeSessions(ctx)
	if err != nil {
		b.logger.Warnf("session resume failed: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range resumed {
		if _, exists := b.sessions[r.ID]; exists {
			continue
		}
		b.sessions[r.ID] = &Session{
			ID:        r.ID,
			Prompt:    r.Prompt,
			Position:  r.Position,
			StartedAt: time.Now(),
			Status:    StatusProcessing,
		}
		b.order = append(b.order, r.ID)
		b.logger.Infof("resumed agent session %s", r.ID)
	}
}

// finishSession transitions a session out of processing. For aborts, the
// reentry callback runs when the session's element is still attached; a
// detached element absorbs the abort silently.
func (b *Bridge) finishSession(ctx context.Context, sessionID string, status SessionStatus, aborted bool) {
	b.mu.Lock()
	session, ok := b.sessions[sessionID]
	if !ok || session.Status != StatusProcessing {
		b.mu.Unlock()
		return
	}
	session.Status = status
	snapshot := *session
	reentry := b.reentry
	onEnd := b.options.OnSessionEnd
	b.mu.Unlock()

	if aborted {
		b.publish(types.EventTypeAgentSessionAborted, sessionID)
		if reentry != nil && snapshot.Element != nil && snapshot.Element.Attached(ctx) {
			reentry(snapshot)
		}
	}
	if onEnd != nil {
		onEnd(snapshot)
	}
}

func (b *Bridge) publish(eventType types.GrabEventType, sessionID string) {
	if b.broadcaster == nil {
		return
	}
	b.broadcaster.Publish(types.GrabEvent{Type: eventType, SessionID: sessionID})
}

func elementTag(el dom.Element) string {
	if el == nil {
		return ""
	}
	return el.TagName()
}

// String implements fmt.Stringer for diagnostics.
func (s Session) String() string {
	return fmt.Sprintf("session %s (%s)", s.ID, s.Status)
}
