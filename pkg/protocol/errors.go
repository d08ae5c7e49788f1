package protocol

import (
	"sigtalk/pkg/transport"
)

// Protocol error codes. Byte values so they double as process exit codes.
const (
	// General errors (0-9)
	ErrNone            byte = 0 // Operation completed successfully
	ErrContextCanceled byte = 2 // Context canceled

	// Protocol errors (10-19)
	ErrWriteFailed byte = 10 // Writing a decoded unit failed
	ErrAckFailed   byte = 11 // Acknowledgment could not be delivered

	// Transport errors (20-29)
	ErrTransportClosed = transport.ErrTransportClosed // Transport layer terminated
	ErrSendFailed      = transport.ErrSendFailed      // Notification delivery failed
	ErrListenFailed    = transport.ErrListenFailed    // Listener registration failed
)

// ErrToString maps protocol error codes to one-line diagnostics for the
// error stream.
var ErrToString = map[byte]string{
	ErrNone:            "no error",
	ErrContextCanceled: "interrupted",

	ErrWriteFailed: "write failed",
	ErrAckFailed:   "failed to acknowledge bit",

	ErrTransportClosed: "transport closed",
	ErrSendFailed:      "failed to send signal",
	ErrListenFailed:    "failed to register signal listener",
}

// ErrString returns the diagnostic for code, or a generic fallback for
// codes with no mapping.
func ErrString(code byte) string {
	if s, ok := ErrToString[code]; ok {
		return s
	}
	return "unknown error"
}
