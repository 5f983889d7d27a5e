// Package link maintains a durable bidirectional JSON-message connection
// to the dispatcher, reconnecting on disconnect without ever buffering
// unsent messages across reconnects. It runs as its own goroutine — the
// "event-loop with explicit state machine" model from the design notes —
// so inbound frames arrive via a channel the Agent reads, decoupling
// receive from job execution.
package link

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dontdude/execagent/internal/domain"
)

// State is one of the three states in the connection supervisor's state
// machine.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// EventKind distinguishes the events the Agent reacts to.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
)

// Event is published whenever the Link transitions into Connected or
// back out of it.
type Event struct {
	Kind EventKind
}

// Link owns the one websocket connection the process holds to the
// dispatcher.
type Link struct {
	url            string
	agentID        string
	reconnectDelay time.Duration

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	inbound chan domain.InboundMessage
	events  chan Event

	lastTimestamp int64

	dialer *websocket.Dialer
}

// New constructs a Link that will dial url once Run is started.
func New(url, agentID string, reconnectDelay time.Duration) *Link {
	return &Link{
		url:            url,
		agentID:        agentID,
		reconnectDelay: reconnectDelay,
		inbound:        make(chan domain.InboundMessage, 32),
		events:         make(chan Event, 8),
		dialer:         websocket.DefaultDialer,
	}
}

// Inbound returns the channel of decoded frames received from the
// dispatcher while connected.
func (l *Link) Inbound() <-chan domain.InboundMessage { return l.inbound }

// Events returns the channel of connect/disconnect transitions.
func (l *Link) Events() <-chan Event { return l.events }

// State returns the Link's current state. Intended for tests and
// diagnostics; the Link's own goroutine is the only writer.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Run drives the connect/reconnect loop until ctx is cancelled. It must
// be started in its own goroutine.
func (l *Link) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		l.setState(Connecting)
		conn, _, err := l.dialer.DialContext(ctx, l.url, http.Header{})
		if err != nil {
			slog.Warn("link: connect failed", "error", err)
			l.setState(Disconnected)
			if !l.sleep(ctx) {
				return
			}
			continue
		}

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()
		l.setState(Connected)
		l.publish(Event{Kind: EventConnected})

		l.readLoop(ctx, conn)

		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
		l.setState(Disconnected)
		l.publish(Event{Kind: EventDisconnected})

		if !l.sleep(ctx) {
			return
		}
	}
}

func (l *Link) sleep(ctx context.Context) bool {
	t := time.NewTimer(l.reconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Link) publish(e Event) {
	select {
	case l.events <- e:
	default:
		slog.Debug("link: dropping event, channel full", "kind", e.Kind)
	}
}

// readLoop decodes inbound frames until the connection closes or errors.
func (l *Link) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Info("link: connection closed", "error", err)
			}
			return
		}

		var msg domain.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("link: malformed inbound frame", "error", err)
			l.Send(domain.GenericErrorMessage{Type: domain.OutboundError, Error: "malformed message"})
			continue
		}

		select {
		case l.inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// Send marshals payload, augments it with agentId and a monotonically
// non-decreasing timestamp, and writes it as a single LF-terminated JSON
// frame. If the Link is not Connected the message is silently dropped —
// the agent never buffers unsent messages across reconnects.
func (l *Link) Send(payload any) {
	l.mu.Lock()
	conn := l.conn
	state := l.state
	l.mu.Unlock()

	if state != Connected || conn == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("link: failed to marshal outbound message", "error", err)
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		slog.Error("link: outbound payload is not a JSON object", "error", err)
		return
	}
	fields["agentId"] = l.agentID
	fields["timestamp"] = l.nextTimestamp()

	out, err := json.Marshal(fields)
	if err != nil {
		slog.Error("link: failed to marshal envelope", "error", err)
		return
	}
	out = append(out, '\n')

	if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
		slog.Warn("link: write failed", "error", err)
	}
}

// nextTimestamp returns milliseconds since the Unix epoch, clamped to
// never go backwards relative to the previous call on this Link even if
// the wall clock is adjusted.
func (l *Link) nextTimestamp() int64 {
	now := time.Now().UnixMilli()
	for {
		prev := atomic.LoadInt64(&l.lastTimestamp)
		next := now
		if next < prev {
			next = prev
		}
		if atomic.CompareAndSwapInt64(&l.lastTimestamp, prev, next) {
			return next
		}
	}
}
