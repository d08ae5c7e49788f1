// Package protocol defines the bit-level wire protocol between sender and
// receiver. A message is transmitted one bit per signal, most significant
// bit first, eight bits per code unit, terminated by one all-zero unit.
//
// Two signal kinds encode the bit value; a third (reused) kind acknowledges
// each bit back to the sender, giving stop-and-wait flow control with exactly
// one bit in flight. The ack is what makes the transport reliable: the
// operating system may coalesce two identical pending signals into one
// delivery, so the sender must never have two unacknowledged signals
// outstanding.
package protocol

import (
	"golang.org/x/sys/unix"
)

// Wire-level signal assignments. SIGUSR1 doubles as the ack because the two
// directions never share a process: the receiver only subscribes to bit
// signals, the sender only to acks.
const (
	SigBitOne  = unix.SIGUSR1 // bit value 1, sender to receiver
	SigBitZero = unix.SIGUSR2 // bit value 0, sender to receiver
	SigAck     = unix.SIGUSR1 // bit accepted, receiver to sender
)

// BitsPerUnit is the number of bits in one code unit.
const BitsPerUnit = 8

// Terminator is the code unit appended after the message content. The
// receiver prints a newline for it and resets for the next message.
const Terminator byte = 0

// Frame returns the code units of msg followed by the terminator unit. This
// is the full unit sequence a sender must transmit.
func Frame(msg string) []byte {
	return append([]byte(msg), Terminator)
}

// SignalFor returns the signal encoding the given bit of unit. Bits are
// numbered 7 (most significant) down to 0.
func SignalFor(unit byte, bit int) unix.Signal {
	if unit>>uint(bit)&1 == 1 {
		return SigBitOne
	}
	return SigBitZero
}
