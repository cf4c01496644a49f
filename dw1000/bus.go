// Package dw1000 implements register access and the transmit sequence for
// the Decawave DW1000 UWB transceiver over an injected serial bus.
package dw1000

// Bus is the serial transport the driver frames transactions over.
//
// Select and Deselect bracket one transaction. Transmit and Receive block
// until the whole buffer has been moved and either succeed or fail as a unit.
// Implementations must not impose their own transaction timeout.
type Bus interface {
	Select() error
	Deselect() error
	Transmit(data []byte) error
	Receive(buf []byte) error
}

const (
	headerWrite    = 0x80
	headerAddrMask = 0x3F
)

// ReadHeader returns the header byte of a read transaction:
// bits 7-6 clear, bits 5-0 the register address.
func ReadHeader(addr uint8) byte {
	return addr & headerAddrMask
}

// WriteHeader returns the header byte of a write transaction:
// bit 7 set, bit 6 clear, bits 5-0 the register address.
func WriteHeader(addr uint8) byte {
	return (addr & headerAddrMask) | headerWrite
}
