package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the connection state of the stream client.
type State int

const (
	Closed State = iota
	Connecting
	Open
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// EventKind identifies what happened on a subscription.
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventError
	eventReconnect
)

// Event is posted by transports (and the reconnect timer) to the client's
// owner loop.
type Event struct {
	Kind         EventKind
	Subscription uuid.UUID
	Line         string
	Err          error

	token uint64
}

// Subscription is a live push subscription.
type Subscription interface {
	Close() error
}

// Transport opens push subscriptions. Open must not block: the subscription
// reports progress by calling post with events tagged with id.
type Transport interface {
	Open(id uuid.UUID, post func(Event)) Subscription
}

// Sink receives rendered output.
type Sink interface {
	AppendLine(line string)
	Notice(msg string)
}

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

// Status is a read-only view of the connection state.
type Status struct {
	State        State
	Attempts     int
	MaxAttempts  int
	Delay        time.Duration
	Pending      bool
	Exhausted    bool
	Subscription uuid.UUID
	LastError    error
}

const eventBuffer = 256

// ErrExhausted is returned by Run once reconnect attempts run out.
var ErrExhausted = errors.New("reconnect attempts exhausted")

// Client is a reconnecting push-stream client. It is owned by a single
// goroutine: every method except Events and Next must be called from the
// goroutine that drains Events.
type Client struct {
	transport Transport
	sink      Sink
	policy    Policy
	logger    *zap.Logger
	afterFunc AfterFunc
	newID     func() uuid.UUID

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	state     State
	attempts  int
	delay     time.Duration
	sub       Subscription
	subID     uuid.UUID
	timer     Timer
	token     uint64
	lastToken uint64
	exhausted bool
	lastErr   error
}

// Option customizes a Client.
type Option func(*Client)

// WithPolicy overrides the backoff policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p.normalized() }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// New builds a Client in the Closed state. Call Connect (or Run) to start.
func New(transport Transport, sink Sink, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		sink:      sink,
		policy:    DefaultPolicy(),
		logger:    zap.NewNop(),
		afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		newID:     uuid.New,
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.delay = c.policy.Floor
	return c
}

// Events returns the channel the owner loop drains.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Next blocks until the next event or until the client is closed.
func (c *Client) Next() (Event, bool) {
	select {
	case ev := <-c.events:
		return ev, true
	case <-c.done:
		return Event{}, false
	}
}

// Run connects and dispatches events until ctx is cancelled. Without an
// interactive owner nothing can call Reconnect, so Run gives up with
// ErrExhausted once the notice has been sent.
func (c *Client) Run(ctx context.Context) error {
	defer c.Close()
	c.Connect()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.Dispatch(ev)
			if c.exhausted {
				return ErrExhausted
			}
		}
	}
}

// Dispatch routes ev to its handler.
func (c *Client) Dispatch(ev Event) {
	switch ev.Kind {
	case EventOpen:
		c.HandleOpen(ev.Subscription)
	case EventMessage:
		c.HandleMessage(ev.Subscription, ev.Line)
	case EventError:
		c.HandleError(ev.Subscription, ev.Err)
	case eventReconnect:
		c.handleReconnectDue(ev.token)
	}
}

// Connect closes any active subscription and opens a new one.
func (c *Client) Connect() {
	if c.isClosed() {
		return
	}
	c.cancelReconnect()
	c.closeSubscription()

	c.subID = c.newID()
	c.state = Connecting
	c.logger.Debug("opening subscription",
		zap.String("subscription", c.subID.String()),
		zap.Int("attempt", c.attempts),
	)
	c.sub = c.transport.Open(c.subID, c.post)
}

// HandleOpen marks the subscription open and resets backoff.
func (c *Client) HandleOpen(id uuid.UUID) {
	if !c.isCurrent(id) {
		return
	}
	if c.attempts > 0 {
		c.logger.Info("stream reconnected", zap.Int("after_attempts", c.attempts))
	}
	c.state = Open
	c.attempts = 0
	c.delay = c.policy.Floor
	c.lastErr = nil
}

// HandleMessage forwards line to the sink.
func (c *Client) HandleMessage(id uuid.UUID, line string) {
	if !c.isCurrent(id) {
		return
	}
	c.sink.AppendLine(line)
}

// HandleError closes the subscription and either schedules a reconnect or,
// once MaxAttempts is exceeded, gives up and posts a notice.
func (c *Client) HandleError(id uuid.UUID, err error) {
	if !c.isCurrent(id) {
		return
	}
	c.closeSubscription()
	c.state = Closed
	c.attempts++
	c.lastErr = err

	if c.attempts <= c.policy.MaxAttempts {
		c.logger.Warn("stream error, reconnect scheduled",
			zap.Error(err),
			zap.Int("attempt", c.attempts),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Duration("delay", c.delay),
		)
		c.schedule(c.delay)
		c.delay = c.policy.next(c.delay)
		return
	}

	if c.exhausted {
		return
	}
	c.exhausted = true
	c.logger.Error("stream reconnect attempts exhausted",
		zap.Error(err),
		zap.Int("max_attempts", c.policy.MaxAttempts),
	)
	c.sink.Notice(fmt.Sprintf("Connection lost after %d reconnect attempts. Reconnect manually to resume.", c.policy.MaxAttempts))
}

// VisibilityRestored reconnects with fresh backoff if the stream is closed.
// It never touches an open or connecting subscription, and does nothing once
// reconnects are exhausted.
func (c *Client) VisibilityRestored() {
	if c.exhausted {
		return
	}
	if c.sub != nil && c.state != Closed {
		return
	}
	c.logger.Debug("visibility restored, resubscribing")
	c.resetBackoff()
	c.Connect()
}

// Reconnect is a manual reset: it clears exhaustion and backoff and connects.
func (c *Client) Reconnect() {
	c.exhausted = false
	c.resetBackoff()
	c.Connect()
}

// Close stops the client. Later events are ignored.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.cancelReconnect()
	c.closeSubscription()
	c.state = Closed
}

// Status returns the current connection state.
func (c *Client) Status() Status {
	return Status{
		State:        c.state,
		Attempts:     c.attempts,
		MaxAttempts:  c.policy.MaxAttempts,
		Delay:        c.delay,
		Pending:      c.timer != nil,
		Exhausted:    c.exhausted,
		Subscription: c.subID,
		LastError:    c.lastErr,
	}
}

func (c *Client) handleReconnectDue(token uint64) {
	if token == 0 || token != c.token {
		return
	}
	c.timer = nil
	c.token = 0
	if c.state != Closed || c.exhausted {
		return
	}
	c.Connect()
}

func (c *Client) schedule(d time.Duration) {
	c.cancelReconnect()
	c.lastToken++
	token := c.lastToken
	c.token = token
	c.timer = c.afterFunc(d, func() {
		c.post(Event{Kind: eventReconnect, token: token})
	})
}

func (c *Client) cancelReconnect() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = nil
	c.token = 0
}

func (c *Client) closeSubscription() {
	if c.sub == nil {
		return
	}
	if err := c.sub.Close(); err != nil {
		c.logger.Debug("close subscription", zap.Error(err))
	}
	c.sub = nil
}

func (c *Client) resetBackoff() {
	c.attempts = 0
	c.delay = c.policy.Floor
}

func (c *Client) isCurrent(id uuid.UUID) bool {
	return c.sub != nil && id == c.subID
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// post is safe to call from any goroutine.
func (c *Client) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
