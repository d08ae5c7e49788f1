package sender_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"sigtalk/pkg/protocol"
	"sigtalk/pkg/sender"
	"sigtalk/pkg/transport"
)

// ackingTransport acknowledges every bit and records the order of bit sends
// and acks.
type ackingTransport struct {
	mu     sync.Mutex
	events []string
	notifs chan transport.Notification
}

func newAckingTransport() *ackingTransport {
	return &ackingTransport{notifs: make(chan transport.Notification, 1)}
}

func (t *ackingTransport) Send(pid int, sig unix.Signal) byte {
	t.mu.Lock()
	t.events = append(t.events, "bit")
	t.mu.Unlock()

	go func() {
		// The "ack" event is recorded before the notification is
		// delivered, so the sender cannot emit the next bit until the
		// event order already shows this ack.
		t.mu.Lock()
		t.events = append(t.events, "ack")
		t.mu.Unlock()
		t.notifs <- transport.Notification{Signal: protocol.SigAck, SenderPID: int32(pid)}
	}()
	return transport.ErrNone
}

func (t *ackingTransport) Notifications() <-chan transport.Notification { return t.notifs }

func (t *ackingTransport) Close() byte { return transport.ErrNone }

func (t *ackingTransport) eventLog() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

func newTestSender(t transport.Transport) *sender.Sender {
	s := sender.New(t, zerolog.Nop())
	s.PollInterval = 0
	s.SettleDelay = 0
	return s
}

// One bit must never be in flight while the previous one is unacknowledged.
func TestSendStrictlyAlternatesBitsAndAcks(t *testing.T) {
	tr := newAckingTransport()
	s := newTestSender(tr)

	code := s.Send(context.Background(), 42, "Hi")
	require.Equal(t, protocol.ErrNone, code)

	events := tr.eventLog()
	require.Len(t, events, 2*protocol.BitsPerUnit*3) // 'H', 'i', terminator
	for i, ev := range events {
		want := "bit"
		if i%2 == 1 {
			want = "ack"
		}
		assert.Equalf(t, want, ev, "event %d", i)
	}
}

type failingTransport struct {
	sends int
}

func (t *failingTransport) Send(int, unix.Signal) byte { t.sends++; return transport.ErrSendFailed }

func (t *failingTransport) Notifications() <-chan transport.Notification { return nil }

func (t *failingTransport) Close() byte { return transport.ErrNone }

func TestSendFailureIsFatalAndImmediate(t *testing.T) {
	tr := &failingTransport{}
	s := newTestSender(tr)

	code := s.Send(context.Background(), 42, "Hi")
	assert.Equal(t, protocol.ErrSendFailed, code)
	assert.Equal(t, 1, tr.sends)
}

// silentTransport accepts bits but never acknowledges them.
type silentTransport struct {
	notifs chan transport.Notification
}

func (t *silentTransport) Send(int, unix.Signal) byte { return transport.ErrNone }

func (t *silentTransport) Notifications() <-chan transport.Notification { return t.notifs }

func (t *silentTransport) Close() byte { return transport.ErrNone }

// A lost ack blocks forever; cancellation is the only way out.
func TestSendBlocksOnLostAckUntilCanceled(t *testing.T) {
	tr := &silentTransport{notifs: make(chan transport.Notification)}
	s := sender.New(tr, zerolog.Nop())
	s.SettleDelay = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan byte, 1)
	go func() { done <- s.Send(ctx, 42, "x") }()

	select {
	case code := <-done:
		t.Fatalf("Send returned %d while ack was outstanding", code)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, protocol.ErrContextCanceled, code)
	case <-time.After(time.Second):
		t.Fatal("Send did not return after cancel")
	}
}
