package plugins

import (
	"errors"
	"sync"

	"github.com/linht/dw1000-manager/dw1000"
)

var errBusDown = errors.New("bus down")

// memBus is a register file that echoes writes back on reads
type memBus struct {
	mu     sync.Mutex
	regs   map[uint8][]byte
	header byte
	inTx   bool
	writes []uint8

	// failAddr fails any data phase for that address when set
	failAddr *uint8
	// selects counts select calls
	selects int
}

func newMemBus() *memBus {
	return &memBus{regs: make(map[uint8][]byte)}
}

func (b *memBus) set(addr uint8, data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[addr] = data
}

func (b *memBus) get(addr uint8) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.regs[addr]...)
}

func (b *memBus) Select() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selects++
	b.inTx = false
	return nil
}

func (b *memBus) Deselect() error { return nil }

func (b *memBus) Transmit(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inTx {
		b.header = data[0]
		b.inTx = true
		return nil
	}
	addr := b.header & 0x3F
	if b.failAddr != nil && *b.failAddr == addr {
		return errBusDown
	}
	b.regs[addr] = append([]byte(nil), data...)
	b.writes = append(b.writes, addr)
	return nil
}

func (b *memBus) Receive(buf []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := b.header & 0x3F
	if b.failAddr != nil && *b.failAddr == addr {
		return errBusDown
	}
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, b.regs[addr])
	return nil
}

var _ dw1000.Bus = (*memBus)(nil)
