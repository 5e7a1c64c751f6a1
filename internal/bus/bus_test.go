package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// collector accumulates delivered messages for assertions.
type collector struct {
	mu   sync.Mutex
	msgs []*domain.Message
}

func (c *collector) handler(ctx context.Context, msg *domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d messages, got %d", n, c.count())
}

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()

	ctx := context.Background()
	var got collector

	sub, err := b.Subscribe(ctx, "session-1", domain.TopicRunCompleted, got.handler)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.Topic() != domain.TopicRunCompleted {
		t.Errorf("subscription topic: got %s", sub.Topic())
	}

	if err := b.Publish(ctx, "session-1", domain.TopicRunCompleted, []byte(`{"rows":3}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got.waitFor(t, 1)

	got.mu.Lock()
	msg := got.msgs[0]
	got.mu.Unlock()

	if msg.SessionID != "session-1" {
		t.Errorf("message session: got %s", msg.SessionID)
	}
	if msg.Topic != domain.TopicRunCompleted {
		t.Errorf("message topic: got %s", msg.Topic)
	}
	if string(msg.Payload) != `{"rows":3}` {
		t.Errorf("message payload: got %s", msg.Payload)
	}
	if msg.ID == "" {
		t.Error("message must carry an id")
	}
}

func TestChannelBusSessionIsolation(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()

	ctx := context.Background()
	var got collector

	if _, err := b.Subscribe(ctx, "session-1", domain.TopicRunStarted, got.handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Same topic, different session: must not be delivered.
	if err := b.Publish(ctx, "session-2", domain.TopicRunStarted, []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := b.Publish(ctx, "session-1", domain.TopicRunStarted, []byte("y")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got.waitFor(t, 1)
	time.Sleep(20 * time.Millisecond)
	if got.count() != 1 {
		t.Errorf("expected 1 delivery, got %d", got.count())
	}
}

func TestChannelBusUnsubscribe(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()

	ctx := context.Background()
	var got collector

	sub, err := b.Subscribe(ctx, "session-1", domain.TopicRunFailed, got.handler)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	_ = b.Publish(ctx, "session-1", domain.TopicRunFailed, []byte("x"))
	time.Sleep(20 * time.Millisecond)

	if got.count() != 0 {
		t.Errorf("unsubscribed handler received %d messages", got.count())
	}
}

func TestChannelBusRequiresSessionID(t *testing.T) {
	b := NewChannelBus(16)
	defer b.Close()

	ctx := context.Background()

	if err := b.Publish(ctx, "", domain.TopicRunStarted, nil); err == nil {
		t.Error("publish without session id must fail")
	}
	if _, err := b.Subscribe(ctx, "", domain.TopicRunStarted, func(context.Context, *domain.Message) error { return nil }); err == nil {
		t.Error("subscribe without session id must fail")
	}
}

func TestChannelBusClosed(t *testing.T) {
	b := NewChannelBus(16)

	ctx := context.Background()
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping on open bus failed: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Idempotent.
	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := b.Ping(ctx); err == nil {
		t.Error("Ping on closed bus must fail")
	}
	if err := b.Publish(ctx, "session-1", domain.TopicRunStarted, nil); err == nil {
		t.Error("Publish on closed bus must fail")
	}
}

func TestChannelBusCloseDuringPublish(t *testing.T) {
	b := NewChannelBus(1)

	ctx := context.Background()
	var got collector
	if _, err := b.Subscribe(ctx, "session-1", domain.TopicRunStarted, got.handler); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Hammer Publish while Close runs; a send racing the shutdown must
	// not panic.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = b.Publish(ctx, "session-1", domain.TopicRunStarted, []byte("x"))
			}
		}()
	}

	time.Sleep(time.Millisecond)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	wg.Wait()
}

func TestNewBus(t *testing.T) {
	t.Run("Channel", func(t *testing.T) {
		b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 8})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer b.Close()
		if _, ok := b.(*ChannelBus); !ok {
			t.Errorf("expected *ChannelBus, got %T", b)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := New(domain.EventBusConfig{Type: "carrier-pigeon"}); err == nil {
			t.Error("expected error for unknown bus type")
		}
	})
}
