package stream

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

var errBoom = errors.New("boom")

type fakeSub struct {
	id     uuid.UUID
	post   func(Event)
	closed bool
}

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeTransport struct {
	opened []*fakeSub
}

func (t *fakeTransport) Open(id uuid.UUID, post func(Event)) Subscription {
	sub := &fakeSub{id: id, post: post}
	t.opened = append(t.opened, sub)
	return sub
}

func (t *fakeTransport) last() *fakeSub {
	return t.opened[len(t.opened)-1]
}

func (t *fakeTransport) live() int {
	n := 0
	for _, s := range t.opened {
		if !s.closed {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	return c.timers[len(c.timers)-1]
}

type recordingSink struct {
	lines   []string
	notices []string
}

func (s *recordingSink) AppendLine(line string) { s.lines = append(s.lines, line) }
func (s *recordingSink) Notice(msg string)      { s.notices = append(s.notices, msg) }

type harness struct {
	client    *Client
	transport *fakeTransport
	clock     *fakeClock
	sink      *recordingSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{},
		clock:     &fakeClock{},
		sink:      &recordingSink{},
	}
	h.client = New(h.transport, h.sink, WithAfterFunc(h.clock.AfterFunc))
	t.Cleanup(h.client.Close)
	return h
}

// drain dispatches every event already queued.
func (h *harness) drain() {
	for {
		select {
		case ev := <-h.client.Events():
			h.client.Dispatch(ev)
		default:
			return
		}
	}
}

// fail reports an error on the current subscription, then fires the
// resulting reconnect timer if one was scheduled.
func (h *harness) fail() {
	before := len(h.clock.timers)
	h.client.HandleError(h.transport.last().id, errBoom)
	if len(h.clock.timers) > before {
		h.clock.last().f()
		h.drain()
	}
}

func TestConnect_OpensSingleSubscription(t *testing.T) {
	h := newHarness(t)

	h.client.Connect()
	if got := h.client.Status().State; got != Connecting {
		t.Fatalf("State = %v, want connecting", got)
	}
	first := h.transport.last()

	h.client.Connect()
	if !first.closed {
		t.Fatalf("first subscription still open after second Connect")
	}
	if len(h.transport.opened) != 2 || h.transport.live() != 1 {
		t.Fatalf("opened=%d live=%d, want 2 opened and 1 live", len(h.transport.opened), h.transport.live())
	}
	if h.client.Status().Subscription != h.transport.last().id {
		t.Fatalf("Status subscription does not match newest subscription")
	}
}

func TestHandleOpen_ResetsBackoff(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()

	for i := 0; i < 4; i++ {
		h.fail()
	}
	if got := h.client.Status().Attempts; got != 4 {
		t.Fatalf("Attempts = %d, want 4", got)
	}

	h.client.HandleOpen(h.transport.last().id)

	st := h.client.Status()
	if st.State != Open {
		t.Fatalf("State = %v, want open", st.State)
	}
	if st.Attempts != 0 || st.Delay != time.Second {
		t.Fatalf("after open Attempts=%d Delay=%v, want 0 and 1s", st.Attempts, st.Delay)
	}
	if st.LastError != nil {
		t.Fatalf("LastError = %v, want nil after open", st.LastError)
	}
}

func TestHandleError_DelayDoublesAndCaps(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()

	for n := 1; n <= 10; n++ {
		wantScheduled := h.client.Status().Delay
		h.client.HandleError(h.transport.last().id, errBoom)

		st := h.client.Status()
		if st.State != Closed {
			t.Fatalf("after error %d State = %v, want closed", n, st.State)
		}
		if st.Attempts != n {
			t.Fatalf("after error %d Attempts = %d", n, st.Attempts)
		}
		want := time.Duration(1<<n) * time.Second
		if want > 30*time.Second {
			want = 30 * time.Second
		}
		if st.Delay != want {
			t.Fatalf("after error %d Delay = %v, want %v", n, st.Delay, want)
		}
		if got := h.clock.last().d; got != wantScheduled {
			t.Fatalf("error %d scheduled after %v, want %v", n, got, wantScheduled)
		}

		h.clock.last().f()
		h.drain()
		if h.client.Status().State != Connecting {
			t.Fatalf("reconnect %d did not connect", n)
		}
	}
}

func TestHandleError_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()

	for i := 0; i < 10; i++ {
		h.fail()
	}
	if len(h.sink.notices) != 0 {
		t.Fatalf("notice rendered before exhaustion: %v", h.sink.notices)
	}
	timers := len(h.clock.timers)
	opened := len(h.transport.opened)

	h.client.HandleError(h.transport.last().id, errBoom)

	if len(h.clock.timers) != timers {
		t.Fatalf("11th error scheduled a reconnect")
	}
	if len(h.sink.notices) != 1 {
		t.Fatalf("notices = %v, want exactly one", h.sink.notices)
	}
	st := h.client.Status()
	if !st.Exhausted || st.State != Closed || st.Pending {
		t.Fatalf("Status = %+v, want exhausted closed with nothing pending", st)
	}

	// Nothing live remains, so stale errors and focus changes cannot revive it.
	h.client.HandleError(h.transport.last().id, errBoom)
	h.client.VisibilityRestored()
	if len(h.transport.opened) != opened || len(h.sink.notices) != 1 {
		t.Fatalf("exhausted client reconnected or re-noticed: opened=%d notices=%d", len(h.transport.opened), len(h.sink.notices))
	}
}

func TestReconnect_ClearsExhaustion(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	for i := 0; i < 11; i++ {
		h.fail()
	}
	if !h.client.Status().Exhausted {
		t.Fatalf("client not exhausted after 11 failures")
	}

	h.client.Reconnect()

	st := h.client.Status()
	if st.Exhausted || st.State != Connecting || st.Attempts != 0 || st.Delay != time.Second {
		t.Fatalf("Status after Reconnect = %+v", st)
	}
}

func TestVisibilityRestored_NoOpWhileOpenOrConnecting(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()

	h.client.VisibilityRestored()
	if len(h.transport.opened) != 1 {
		t.Fatalf("visibility while connecting opened %d subscriptions", len(h.transport.opened))
	}

	h.client.HandleOpen(h.transport.last().id)
	h.client.VisibilityRestored()
	if len(h.transport.opened) != 1 || h.transport.live() != 1 {
		t.Fatalf("visibility while open: opened=%d live=%d", len(h.transport.opened), h.transport.live())
	}
	if h.client.Status().State != Open {
		t.Fatalf("State = %v, want open", h.client.Status().State)
	}
}

func TestVisibilityRestored_ReconnectsWhenClosed(t *testing.T) {
	h := newHarness(t)

	// Before any connect the client is closed with no subscription.
	h.client.VisibilityRestored()
	if len(h.transport.opened) != 1 {
		t.Fatalf("visibility on fresh client opened %d subscriptions", len(h.transport.opened))
	}

	h.fail()
	h.fail()
	h.client.HandleError(h.transport.last().id, errBoom)
	pending := h.clock.last()

	h.client.VisibilityRestored()

	st := h.client.Status()
	if st.State != Connecting || st.Attempts != 0 || st.Delay != time.Second {
		t.Fatalf("Status after visibility = %+v", st)
	}
	if !pending.stopped {
		t.Fatalf("pending reconnect timer not stopped")
	}

	// A superseded timer that fires anyway must not open another subscription.
	opened := len(h.transport.opened)
	pending.f()
	h.drain()
	if len(h.transport.opened) != opened {
		t.Fatalf("stale reconnect opened a subscription")
	}
}

func TestStaleReconnect_AfterSuccessIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	h.client.HandleError(h.transport.last().id, errBoom)
	stale := h.clock.last()

	h.client.Connect()
	h.client.HandleOpen(h.transport.last().id)
	opened := len(h.transport.opened)

	stale.f()
	h.drain()

	if len(h.transport.opened) != opened || h.client.Status().State != Open {
		t.Fatalf("stale timer disturbed open stream: opened=%d state=%v", len(h.transport.opened), h.client.Status().State)
	}
}

func TestStaleSubscriptionEventsIgnored(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	old := h.transport.last()
	h.client.Connect()

	h.client.HandleMessage(old.id, "INFO from old")
	h.client.HandleOpen(old.id)
	h.client.HandleError(old.id, errBoom)

	st := h.client.Status()
	if st.State != Connecting || st.Attempts != 0 {
		t.Fatalf("stale events changed state: %+v", st)
	}
	if len(h.sink.lines) != 0 {
		t.Fatalf("stale message appended: %v", h.sink.lines)
	}
}

func TestMessagesForwardedInOrder(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	sub := h.transport.last()

	sub.post(Event{Kind: EventOpen, Subscription: sub.id})
	sub.post(Event{Kind: EventMessage, Subscription: sub.id, Line: "DEBUG x"})
	sub.post(Event{Kind: EventMessage, Subscription: sub.id, Line: "INFO y"})
	h.drain()

	if want := []string{"DEBUG x", "INFO y"}; !reflect.DeepEqual(h.sink.lines, want) {
		t.Fatalf("lines = %v, want %v", h.sink.lines, want)
	}
	if h.client.Status().State != Open {
		t.Fatalf("State = %v, want open", h.client.Status().State)
	}
}

func TestClose_StopsEverything(t *testing.T) {
	h := newHarness(t)
	h.client.Connect()
	h.client.HandleError(h.transport.last().id, errBoom)
	pending := h.clock.last()

	h.client.Close()

	if !pending.stopped {
		t.Fatalf("Close did not stop pending timer")
	}
	if _, ok := h.client.Next(); ok {
		t.Fatalf("Next returned an event after Close")
	}
	h.client.Connect()
	if len(h.transport.opened) != 1 {
		t.Fatalf("Connect after Close opened a subscription")
	}
	// Posting after close must not block.
	pending.f()
}

type asyncTransport struct {
	mu     sync.Mutex
	lines  []string
	closed chan struct{}
}

type asyncSub struct{ t *asyncTransport }

func (s asyncSub) Close() error {
	close(s.t.closed)
	return nil
}

func (t *asyncTransport) Open(id uuid.UUID, post func(Event)) Subscription {
	go func() {
		post(Event{Kind: EventOpen, Subscription: id})
		t.mu.Lock()
		lines := append([]string(nil), t.lines...)
		t.mu.Unlock()
		for _, line := range lines {
			post(Event{Kind: EventMessage, Subscription: id, Line: line})
		}
	}()
	return asyncSub{t: t}
}

type chanSink struct {
	lines chan string
}

func (s chanSink) AppendLine(line string) { s.lines <- line }
func (s chanSink) Notice(string)          {}

func TestRun_DispatchesUntilCancelled(t *testing.T) {
	transport := &asyncTransport{lines: []string{"a", "b"}, closed: make(chan struct{})}
	sink := chanSink{lines: make(chan string, 2)}
	client := New(transport, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	for _, want := range []string{"a", "b"} {
		select {
		case got := <-sink.lines:
			if got != want {
				t.Fatalf("line = %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	select {
	case <-transport.closed:
	default:
		t.Fatalf("subscription not closed after Run returned")
	}
}

type failingTransport struct{}

func (failingTransport) Open(id uuid.UUID, post func(Event)) Subscription {
	go post(Event{Kind: EventError, Subscription: id, Err: errBoom})
	return &fakeSub{id: id}
}

func TestRun_ReturnsErrExhausted(t *testing.T) {
	notices := make(chan string, 1)
	sink := noticeSink{notices: notices}
	client := New(failingTransport{}, sink, WithPolicy(Policy{Floor: time.Millisecond, MaxAttempts: 2}))

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrExhausted) {
			t.Fatalf("Run returned %v, want ErrExhausted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not give up")
	}
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
}

type noticeSink struct{ notices chan string }

func (noticeSink) AppendLine(string)   {}
func (s noticeSink) Notice(msg string) { s.notices <- msg }
