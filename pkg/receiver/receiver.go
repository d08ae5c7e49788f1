// Package receiver implements the decoding side of the protocol: a handler
// that turns a stream of bit notifications back into bytes and acknowledges
// every single bit.
package receiver

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"sigtalk/pkg/protocol"
	"sigtalk/pkg/transport"
)

// Receiver accumulates inbound bit notifications into code units and writes
// each completed unit to out. It serializes exactly one sender's stream at a
// time: the ack always goes to whichever pid delivered the last bit, so
// concurrent senders corrupt each other's units.
type Receiver struct {
	transport  transport.Transport
	out        io.Writer
	asm        *protocol.Assembler
	lastSender int32
	log        zerolog.Logger
}

// New creates a Receiver writing decoded units to out.
func New(t transport.Transport, out io.Writer, log zerolog.Logger) *Receiver {
	return &Receiver{
		transport: t,
		out:       out,
		asm:       protocol.NewAssembler(),
		log:       log,
	}
}

// Run consumes notifications until the context is canceled, the transport
// shuts down, or a handler step fails. A terminator unit does not stop the
// loop; the receiver stays available for the next message indefinitely.
func (r *Receiver) Run(ctx context.Context) byte {
	notifs := r.transport.Notifications()
	for {
		select {
		case <-ctx.Done():
			return protocol.ErrContextCanceled
		case n, ok := <-notifs:
			if !ok {
				return protocol.ErrTransportClosed
			}
			if code := r.Handle(n); code != protocol.ErrNone {
				return code
			}
		}
	}
}

// Handle processes a single bit notification: record the sender pid, push
// the bit into the assembler, write the unit if one completed, and
// unconditionally ack the recorded pid. Exported so tests can drive the
// handler directly with synthetic notifications.
func (r *Receiver) Handle(n transport.Notification) byte {
	r.lastSender = n.SenderPID

	if unit, done := r.asm.Push(n.Signal); done {
		out := unit
		if unit == protocol.Terminator {
			out = '\n'
			r.log.Debug().Int32("sender", r.lastSender).Msg("message complete")
		}
		if _, err := r.out.Write([]byte{out}); err != nil {
			return protocol.ErrWriteFailed
		}
	}

	if code := r.transport.Send(int(r.lastSender), protocol.SigAck); code != transport.ErrNone {
		return protocol.ErrAckFailed
	}
	return protocol.ErrNone
}
