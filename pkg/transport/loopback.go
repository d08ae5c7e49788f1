package transport

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Loopback is an in-memory Transport connecting two endpoints inside one
// process. It preserves the addressing model of the signal transport: a send
// only succeeds when addressed to the peer's pid, and the peer observes the
// sender's pid on every notification.
type Loopback struct {
	pid    int
	in     chan Notification
	peer   *Loopback
	closed atomic.Bool
}

// NewLoopbackPair returns two connected endpoints pretending to be the
// processes pidA and pidB.
func NewLoopbackPair(pidA, pidB int) (*Loopback, *Loopback) {
	a := &Loopback{pid: pidA, in: make(chan Notification, 64)}
	b := &Loopback{pid: pidB, in: make(chan Notification, 64)}
	a.peer, b.peer = b, a
	return a, b
}

// PID returns the pid this endpoint answers to.
func (l *Loopback) PID() int {
	return l.pid
}

// Send delivers a notification to the peer endpoint. Addressing any other
// pid fails the way kill(2) fails on a nonexistent process.
func (l *Loopback) Send(pid int, sig unix.Signal) byte {
	if l.closed.Load() {
		return ErrTransportClosed
	}
	if pid != l.peer.pid || l.peer.closed.Load() {
		return ErrSendFailed
	}
	l.peer.in <- Notification{Signal: sig, SenderPID: int32(l.pid)}
	return ErrNone
}

// Notifications returns the inbound notification channel.
func (l *Loopback) Notifications() <-chan Notification {
	return l.in
}

// Close marks the endpoint closed. Pending notifications are discarded by
// the peer's Send failing from now on.
func (l *Loopback) Close() byte {
	l.closed.Store(true)
	return ErrNone
}
