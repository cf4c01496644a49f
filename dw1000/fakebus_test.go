package dw1000_test

import (
	"errors"
	"fmt"

	"github.com/linht/dw1000-manager/dw1000"
)

var errTransport = errors.New("transport failure")

type busWrite struct {
	addr uint8
	data []byte
}

// fakeBus is an in-memory register file behind the Bus interface. Writes
// are echoed back on later reads.
type fakeBus struct {
	regs map[uint8][]byte

	calls  []string
	writes []busWrite

	selected   bool
	haveHeader bool
	header     byte

	// failOn returns a non-nil error to fail the named phase
	// ("select", "header", "tx", "rx", "deselect") for an address.
	failOn func(phase string, addr uint8) error

	// corrupt flips the byte at the index when the address is read
	corrupt map[uint8]int
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:    make(map[uint8][]byte),
		corrupt: make(map[uint8]int),
	}
}

func (b *fakeBus) fail(phase string) error {
	if b.failOn == nil {
		return nil
	}
	return b.failOn(phase, b.header&0x3F)
}

func (b *fakeBus) Select() error {
	b.calls = append(b.calls, "select")
	b.haveHeader = false
	b.header = 0
	if err := b.fail("select"); err != nil {
		return err
	}
	b.selected = true
	return nil
}

func (b *fakeBus) Deselect() error {
	b.calls = append(b.calls, "deselect")
	b.selected = false
	return b.fail("deselect")
}

func (b *fakeBus) Transmit(data []byte) error {
	if !b.selected {
		return fmt.Errorf("transmit without select")
	}
	if !b.haveHeader {
		b.calls = append(b.calls, "header")
		b.header = data[0]
		b.haveHeader = true
		return b.fail("header")
	}

	b.calls = append(b.calls, "tx")
	if err := b.fail("tx"); err != nil {
		return err
	}
	if b.header&0x80 == 0 {
		return fmt.Errorf("data transmitted in a read transaction")
	}
	addr := b.header & 0x3F
	stored := append([]byte(nil), data...)
	b.regs[addr] = stored
	b.writes = append(b.writes, busWrite{addr: addr, data: append([]byte(nil), data...)})
	return nil
}

func (b *fakeBus) Receive(buf []byte) error {
	if !b.selected || !b.haveHeader {
		return fmt.Errorf("receive outside a transaction")
	}
	b.calls = append(b.calls, "rx")
	if err := b.fail("rx"); err != nil {
		return err
	}
	addr := b.header & 0x3F
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, b.regs[addr])
	if idx, ok := b.corrupt[addr]; ok && idx < len(buf) {
		buf[idx] ^= 0xFF
	}
	return nil
}

// writesTo returns the payloads written to addr, oldest first
func (b *fakeBus) writesTo(addr uint8) [][]byte {
	var out [][]byte
	for _, w := range b.writes {
		if w.addr == addr {
			out = append(out, w.data)
		}
	}
	return out
}

func (b *fakeBus) writeOrder() []uint8 {
	out := make([]uint8, len(b.writes))
	for i, w := range b.writes {
		out[i] = w.addr
	}
	return out
}

func failPhaseAt(phase string, addr uint8) func(string, uint8) error {
	return func(p string, a uint8) error {
		if p == phase && a == addr {
			return errTransport
		}
		return nil
	}
}

var _ dw1000.Bus = (*fakeBus)(nil)
