package protocol

import (
	"golang.org/x/sys/unix"
)

// Assembler reconstructs code units from individual bit notifications. It
// fills a byte from bit position 7 down to 0 and hands the byte out once all
// eight bits have arrived, then resets for the next unit.
//
// An Assembler is not safe for concurrent use; it belongs to the single
// goroutine consuming the receiver's notification channel.
type Assembler struct {
	value byte
	pos   int
}

// NewAssembler returns an Assembler ready for the first bit of a unit.
func NewAssembler() *Assembler {
	return &Assembler{pos: BitsPerUnit - 1}
}

// Push records the bit carried by sig. When the eighth bit of the current
// unit arrives it returns the completed unit and true, with the Assembler
// already reset to position 7 / value 0.
func (a *Assembler) Push(sig unix.Signal) (byte, bool) {
	if sig == SigBitOne {
		a.value |= 1 << uint(a.pos)
	}
	a.pos--
	if a.pos >= 0 {
		return 0, false
	}

	unit := a.value
	a.value = 0
	a.pos = BitsPerUnit - 1
	return unit, true
}

// Position returns the bit position the next Push will fill.
func (a *Assembler) Position() int {
	return a.pos
}
