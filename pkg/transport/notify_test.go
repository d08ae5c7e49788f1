package transport_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"sigtalk/pkg/transport"
)

// The ack path must receive process-directed signals through the runtime's
// delivery, independent of which thread the kernel picks.
func TestNotifyTransportReceivesProcessDirectedSignal(t *testing.T) {
	tr := transport.NewNotifyTransport(unix.SIGUSR1)
	defer tr.Close()

	require.Equal(t, transport.ErrNone, tr.Send(os.Getpid(), unix.SIGUSR1))

	select {
	case n := <-tr.Notifications():
		assert.Equal(t, unix.SIGUSR1, n.Signal)
	case <-time.After(5 * time.Second):
		t.Fatal("signal was not delivered")
	}
}

func TestNotifyTransportSendAfterClose(t *testing.T) {
	tr := transport.NewNotifyTransport(unix.SIGUSR1)
	tr.Close()

	assert.Equal(t, transport.ErrTransportClosed, tr.Send(os.Getpid(), unix.SIGUSR1))
}
