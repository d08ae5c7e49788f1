// Package sender implements the emitting side of the protocol: the
// stop-and-wait loop that turns a message into one signal per bit and blocks
// on an acknowledgment before every next bit.
package sender

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sigtalk/pkg/protocol"
	"sigtalk/pkg/transport"
)

// Default delays, matching the 100µs usleep the protocol was tuned with.
const (
	DefaultPollInterval = 100 * time.Microsecond
	DefaultSettleDelay  = 100 * time.Microsecond
)

// Sender transmits messages bit by bit over a Transport. The ack flag is the
// only state shared between the emission loop and the goroutine draining
// inbound acks, written and read atomically with no locks.
type Sender struct {
	// PollInterval is the sleep between ack-flag polls while a bit is in
	// flight.
	PollInterval time.Duration

	// SettleDelay is the pause after each ack before the next signal. It
	// gives the receiver time to return from processing so consecutive
	// same-kind signals cannot coalesce into one delivery. A workaround
	// for signal coalescing, not a protocol requirement.
	SettleDelay time.Duration

	transport transport.Transport
	ack       atomic.Bool
	watching  sync.Once
	log       zerolog.Logger
}

// New creates a Sender with the default delays.
func New(t transport.Transport, log zerolog.Logger) *Sender {
	return &Sender{
		PollInterval: DefaultPollInterval,
		SettleDelay:  DefaultSettleDelay,
		transport:    t,
		log:          log,
	}
}

// Send delivers every bit of every code unit of msg, terminator included, to
// the process identified by pid, in order, one bit in flight. It returns
// ErrNone only after the terminator's last bit has been acknowledged.
//
// There is no ack timeout: a lost ack blocks Send until ctx is canceled.
func (s *Sender) Send(ctx context.Context, pid int, msg string) byte {
	s.watching.Do(func() {
		go s.watchAcks(ctx)
	})

	units := protocol.Frame(msg)
	s.log.Debug().Int("units", len(units)).Msg("starting transmission")

	for _, unit := range units {
		for bit := protocol.BitsPerUnit - 1; bit >= 0; bit-- {
			s.ack.Store(false)

			if code := s.transport.Send(pid, protocol.SignalFor(unit, bit)); code != transport.ErrNone {
				return code
			}

			for !s.ack.Load() {
				if ctx.Err() != nil {
					return protocol.ErrContextCanceled
				}
				// A zero interval must still yield, or the spin
				// starves the ack watcher on a single CPU.
				if s.PollInterval > 0 {
					time.Sleep(s.PollInterval)
				} else {
					runtime.Gosched()
				}
			}
			time.Sleep(s.SettleDelay)
		}
	}

	return protocol.ErrNone
}

// watchAcks sets the ack flag for every inbound acknowledgment.
func (s *Sender) watchAcks(ctx context.Context) {
	notifs := s.transport.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifs:
			if !ok {
				return
			}
			if n.Signal == protocol.SigAck {
				s.ack.Store(true)
			}
		}
	}
}
