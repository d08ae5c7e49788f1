package transport

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// NotifyTransport implements Transport on the runtime's own signal delivery
// (os/signal). It works regardless of per-thread signal masks because the
// runtime handler is installed on every thread, but the runtime does not
// surface siginfo, so notifications carry SenderPID 0.
//
// Use it for the ack path: the sender never needs the ack's origin pid. The
// receiving side of the bit stream must use SignalTransport instead, which
// exposes the sender's pid.
type NotifyTransport struct {
	sigs    chan os.Signal
	notifs  chan Notification
	done    chan struct{}
	closing sync.Once
}

// NewNotifyTransport subscribes to the given signals and starts forwarding
// them as notifications.
func NewNotifyTransport(signals ...unix.Signal) *NotifyTransport {
	t := &NotifyTransport{
		sigs:   make(chan os.Signal, 64),
		notifs: make(chan Notification, 64),
		done:   make(chan struct{}),
	}

	subscribed := make([]os.Signal, 0, len(signals))
	for _, sig := range signals {
		subscribed = append(subscribed, sig)
	}
	signal.Notify(t.sigs, subscribed...)

	go t.forward()
	return t
}

// Send delivers one signal to the process identified by pid.
func (t *NotifyTransport) Send(pid int, sig unix.Signal) byte {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}

	if err := unix.Kill(pid, sig); err != nil {
		return ErrSendFailed
	}
	return ErrNone
}

// Notifications returns the inbound notification channel.
func (t *NotifyTransport) Notifications() <-chan Notification {
	return t.notifs
}

// Close unsubscribes from the signals and stops the forwarding loop.
func (t *NotifyTransport) Close() byte {
	t.closing.Do(func() {
		signal.Stop(t.sigs)
		close(t.done)
	})
	return ErrNone
}

// forward converts delivered os.Signal values into Notifications.
func (t *NotifyTransport) forward() {
	defer close(t.notifs)
	for {
		select {
		case <-t.done:
			return
		case sig := <-t.sigs:
			s, ok := sig.(unix.Signal)
			if !ok {
				continue
			}
			select {
			case t.notifs <- Notification{Signal: s}:
			case <-t.done:
				return
			}
		}
	}
}
