package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"identity-plane/internal/identity/domain"
)

type collector struct {
	mu   sync.Mutex
	got  []domain.Event
	done chan struct{}
	want int
}

func newCollector(want int) *collector {
	return &collector{done: make(chan struct{}), want: want}
}

func (c *collector) Handle(ctx context.Context, evt domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, evt)
	if len(c.got) == c.want {
		close(c.done)
	}
}

func (c *collector) wait(t *testing.T) []domain.Event {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.got...)
}

func TestDispatcher_DeliversByType(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 16, 1)
	defer d.Close()

	reg := newCollector(1)
	d.Subscribe(reg, domain.EventTypeIdentityRegistered)

	d.Publish(
		domain.NewNotificationDispatched("acct-1", "welcome", "a@x.com", true, ""),
	)
	// Only the registered-type handler is subscribed; notification events must
	// not reach it.
	evt := domain.NewNotificationDispatched("acct-2", "welcome", "b@x.com", true, "")
	all := newCollector(2)
	d.Subscribe(all)
	d.Publish(evt)
	d.Publish(domain.NewNotificationDispatched("acct-3", "login_alert", "c@x.com", false, "timeout"))

	got := all.wait(t)
	if len(got) != 2 {
		t.Fatalf("wildcard handler got %d events, want 2", len(got))
	}
	select {
	case <-reg.done:
		t.Fatal("typed handler received events of another type")
	default:
	}
}

func TestDispatcher_PublishDoesNotBlockOnSlowHandler(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 4, 1)
	defer d.Close()

	release := make(chan struct{})
	d.Subscribe(HandlerFunc(func(ctx context.Context, evt domain.Event) {
		<-release
	}))

	start := time.Now()
	for i := 0; i < 20; i++ {
		d.Publish(domain.NewNotificationDispatched("acct", "welcome", "a@x.com", true, ""))
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Publish blocked for %v with a stuck handler", elapsed)
	}
	close(release)
}

func TestDispatcher_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 16, 1)
	defer d.Close()

	d.Subscribe(HandlerFunc(func(ctx context.Context, evt domain.Event) {
		panic("handler bug")
	}))
	c := newCollector(1)
	d.Subscribe(c)

	d.Publish(domain.NewNotificationDispatched("acct", "welcome", "a@x.com", true, ""))
	c.wait(t)
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), 16, 2)
	c := newCollector(5)
	d.Subscribe(c)
	for i := 0; i < 5; i++ {
		d.Publish(domain.NewNotificationDispatched("acct", "welcome", "a@x.com", true, ""))
	}
	d.Close()
	if got := c.wait(t); len(got) != 5 {
		t.Fatalf("got %d events after Close, want 5", len(got))
	}
	// Publishing after Close must not panic.
	d.Publish(domain.NewNotificationDispatched("acct", "welcome", "a@x.com", true, ""))
}
