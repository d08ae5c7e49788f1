package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"sigtalk/pkg/transport"
)

func TestLoopbackDeliversWithSenderPID(t *testing.T) {
	a, b := transport.NewLoopbackPair(100, 200)

	require.Equal(t, transport.ErrNone, a.Send(200, unix.SIGUSR1))
	require.Equal(t, transport.ErrNone, a.Send(200, unix.SIGUSR2))

	n := <-b.Notifications()
	assert.Equal(t, unix.SIGUSR1, n.Signal)
	assert.Equal(t, int32(100), n.SenderPID)

	n = <-b.Notifications()
	assert.Equal(t, unix.SIGUSR2, n.Signal)
	assert.Equal(t, int32(100), n.SenderPID)
}

func TestLoopbackRejectsUnknownPID(t *testing.T) {
	a, _ := transport.NewLoopbackPair(100, 200)

	assert.Equal(t, transport.ErrSendFailed, a.Send(999, unix.SIGUSR1))
}

func TestLoopbackSendAfterClose(t *testing.T) {
	a, b := transport.NewLoopbackPair(100, 200)

	a.Close()
	assert.Equal(t, transport.ErrTransportClosed, a.Send(200, unix.SIGUSR1))

	// The peer observes a closed endpoint as a delivery failure, the same
	// way kill(2) fails once the process is gone.
	assert.Equal(t, transport.ErrSendFailed, b.Send(100, unix.SIGUSR1))
}
