// Package transport provides the notification delivery layer between sender
// and receiver processes. It abstracts the underlying signal mechanism so the
// protocol logic can be exercised without touching real process signals.
package transport

import (
	"golang.org/x/sys/unix"
)

// Error codes for transport operations.
const (
	ErrNone            byte = 0 // Operation completed successfully
	ErrContextCanceled byte = 2 // Context was canceled during operation

	// Transport errors (20-29)
	ErrTransportClosed byte = 20 // Transport is permanently closed
	ErrSendFailed      byte = 21 // Notification could not be delivered
	ErrListenFailed    byte = 22 // Listener registration failed
)

// Notification is one delivered signal together with the pid of the process
// that sent it. It carries no payload; the signal number is the entire
// message.
type Notification struct {
	Signal    unix.Signal // which notification kind was delivered
	SenderPID int32       // pid of the sending process
}

// Transport delivers kind-tagged, payload-free notifications between
// processes addressed by pid. Send is safe for concurrent use; Notifications
// has a single consumer.
type Transport interface {
	// Send delivers one notification of the given kind to the process
	// identified by pid. Returns an error code indicating success or the
	// specific failure reason. Delivery failures are permanent; callers
	// must not retry.
	Send(pid int, sig unix.Signal) byte

	// Notifications returns the channel of inbound notifications. The
	// channel is closed when the transport shuts down.
	Notifications() <-chan Notification

	// Close releases the transport's resources. Safe to call multiple
	// times.
	Close() byte
}
