package types

import "sync"

// GrabEventType defines the type of event broadcast by the grab engine.
type GrabEventType string

const (
	EventTypeElementsGrabbed     GrabEventType = "elements_grabbed"      // EventTypeElementsGrabbed indicates a copy completed; carries the selected elements' tag names.
	EventTypeActivated           GrabEventType = "activated"             // EventTypeActivated indicates the overlay entered its live hover mode.
	EventTypeDeactivated         GrabEventType = "deactivated"           // EventTypeDeactivated indicates the overlay was torn down.
	EventTypeInputModeChanged    GrabEventType = "input_mode_changed"    // EventTypeInputModeChanged indicates prompt entry opened or closed.
	EventTypeAgentSessionStarted GrabEventType = "agent_session_started" // EventTypeAgentSessionStarted indicates a selection was handed to the agent provider.
	EventTypeAgentSessionAborted GrabEventType = "agent_session_aborted" // EventTypeAgentSessionAborted indicates an in-flight agent session was aborted.
)

// GrabEvent is the page-global event shape delivered to broadcast
// subscribers. It deliberately carries tag names rather than element
// references so listeners are decoupled from DOM lifetime.
type GrabEvent struct {
	// Type indicates the kind of event.
	Type GrabEventType

	// TagNames holds the selected elements' tag names for grab events.
	TagNames []string

	// Active reports the overlay's live state for activation events.
	Active bool

	// InputMode reports whether prompt entry is open for input mode events.
	InputMode bool

	// SessionID identifies the agent session for agent events.
	SessionID string
}

// Broadcaster fans GrabEvents out to any number of subscribers.
// Delivery is non-blocking: a subscriber that stops draining its channel
// loses events rather than stalling the publisher.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan GrabEvent
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan GrabEvent)}
}

// Subscribe registers a new subscriber and returns its event channel along
// with an unsubscribe function. Unsubscribing closes the channel.
func (b *Broadcaster) Subscribe() (<-chan GrabEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan GrabEvent, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every current subscriber without blocking.
func (b *Broadcaster) Publish(event GrabEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
