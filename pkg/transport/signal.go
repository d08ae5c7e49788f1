//go:build linux

package transport

import (
	"os"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MaskEnv marks a process that re-executed itself with the transport's
// signals already blocked on the initial thread.
const MaskEnv = "SIGTALK_SIGMASK"

// Poll timeout for the read loop, in milliseconds. Short enough that Close
// is observed promptly, long enough to stay off the CPU while idle.
const pollTimeoutMs = 100

// sizeof(struct signalfd_siginfo); the kernel always writes records of
// exactly this length.
const sizeofSignalfdSiginfo = 128

// SignalTransport implements Transport on top of Linux process signals.
// Outbound notifications are sent with kill(2); inbound ones are read from a
// signalfd, which exposes the sender's pid the same way SA_SIGINFO handlers
// see si_pid.
//
// A signalfd only observes signals that are blocked on the delivering
// thread, and the runtime spawns threads before main runs, so callers must
// invoke EnsureProcessMask for the same signals first; otherwise a
// process-directed kill can land on an unmasked runtime thread and be
// consumed by the runtime's handler instead of queuing on the descriptor.
type SignalTransport struct {
	fd      int
	notifs  chan Notification
	done    chan struct{}
	closing sync.Once
}

// EnsureProcessMask guarantees the given signals are blocked on every thread
// of the process. pthread_sigmask covers only the calling thread and the
// runtime has already spawned others by the time main runs, so the first
// call blocks the signals on its own thread and re-executes the binary:
// every thread of the new image inherits the blocked mask. The re-executed
// process is marked through MaskEnv and returns immediately.
//
// Must be the first thing main does, before any other setup.
func EnsureProcessMask(signals ...unix.Signal) byte {
	if os.Getenv(MaskEnv) == "1" {
		return ErrNone
	}

	var mask unix.Sigset_t
	for _, sig := range signals {
		sigsetAdd(&mask, sig)
	}

	// The exec must happen from the thread carrying the new mask.
	runtime.LockOSThread()
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return ErrListenFailed
	}

	exe, err := os.Executable()
	if err != nil {
		return ErrListenFailed
	}

	env := append(os.Environ(), MaskEnv+"=1")
	if err := unix.Exec(exe, os.Args, env); err != nil {
		return ErrListenFailed
	}
	return ErrNone // not reached; Exec does not return on success
}

// NewSignalTransport subscribes to the given signals and starts the read
// loop. Returns an error code if the signal mask or the descriptor cannot be
// set up.
func NewSignalTransport(signals ...unix.Signal) (*SignalTransport, byte) {
	var mask unix.Sigset_t
	for _, sig := range signals {
		sigsetAdd(&mask, sig)
	}

	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return nil, ErrListenFailed
	}

	fd, err := unix.Signalfd(-1, &mask, unix.SFD_CLOEXEC|unix.SFD_NONBLOCK)
	if err != nil {
		return nil, ErrListenFailed
	}

	t := &SignalTransport{
		fd:     fd,
		notifs: make(chan Notification, 64),
		done:   make(chan struct{}),
	}
	go t.readLoop()

	return t, ErrNone
}

// Send delivers one signal to the process identified by pid. A pid that does
// not exist or that this process may not signal yields ErrSendFailed.
func (t *SignalTransport) Send(pid int, sig unix.Signal) byte {
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
func (t *SignalTransport) Notifications() <-chan Notification {
	return t.notifs
}

// Close stops the read loop and releases the descriptor.
func (t *SignalTransport) Close() byte {
	t.closing.Do(func() {
		close(t.done)
	})
	return ErrNone
}

// readLoop drains the signalfd and forwards each queued signal as a
// Notification. Owns the descriptor: closes it on exit.
func (t *SignalTransport) readLoop() {
	defer close(t.notifs)
	defer unix.Close(t.fd)

	buf := make([]byte, sizeofSignalfdSiginfo)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}

		for {
			nr, err := unix.Read(t.fd, buf)
			if err == unix.EAGAIN {
				break
			}
			if err == unix.EINTR {
				continue
			}
			if err != nil || nr < sizeofSignalfdSiginfo {
				return
			}

			info := (*unix.SignalfdSiginfo)(unsafe.Pointer(&buf[0]))
			notif := Notification{
				Signal:    unix.Signal(info.Signo),
				SenderPID: int32(info.Pid),
			}

			select {
			case t.notifs <- notif:
			case <-t.done:
				return
			}
		}
	}
}

// sigsetAdd sets the bit for sig in mask, as sigaddset(3) would.
func sigsetAdd(mask *unix.Sigset_t, sig unix.Signal) {
	mask.Val[(uint(sig)-1)/64] |= 1 << ((uint(sig) - 1) % 64)
}
