package plugins

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/linht/dw1000-manager/dw1000"
)

// SPIDevice represents an SPI device using periph.io
type SPIDevice struct {
	conn   spi.Conn
	port   spi.PortCloser
	device string
	speed  physic.Frequency
}

// NewSPIDevice opens and initializes an SPI device using periph.io.
// The kernel chip-select is disabled; the DW1000 header and data phases
// are separate transfers that must share one select, so chip-select is
// driven through GPIO instead.
func NewSPIDevice(device string, speed uint32) (*SPIDevice, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io: %w", err)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI device %s: %w", device, err)
	}

	// DW1000 uses SPI Mode 0 (CPOL=0, CPHA=0)
	conn, err := port.Connect(physic.Frequency(speed)*physic.Hertz, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to SPI device: %w", err)
	}

	return &SPIDevice{
		conn:   conn,
		port:   port,
		device: device,
		speed:  physic.Frequency(speed) * physic.Hertz,
	}, nil
}

// Close closes the SPI device
func (s *SPIDevice) Close() error {
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		s.conn = nil
		return err
	}
	return nil
}

// Transfer performs a full-duplex SPI transfer
func (s *SPIDevice) Transfer(tx []byte, rx []byte) error {
	if len(tx) != len(rx) {
		return fmt.Errorf("tx and rx buffers must be the same length")
	}

	if s.conn == nil {
		return fmt.Errorf("SPI device not open")
	}

	if err := s.conn.Tx(tx, rx); err != nil {
		return fmt.Errorf("SPI transfer failed: %w", err)
	}

	return nil
}

// Transmit clocks data out, discarding what is clocked in
func (s *SPIDevice) Transmit(data []byte) error {
	return s.Transfer(data, make([]byte, len(data)))
}

// Receive clocks out zero bytes and fills buf with the response
func (s *SPIDevice) Receive(buf []byte) error {
	return s.Transfer(make([]byte, len(buf)), buf)
}

// DeviceInfo provides information about the SPI device
func (s *SPIDevice) DeviceInfo() string {
	if s.conn == nil {
		return fmt.Sprintf("Device: %s (closed)", s.device)
	}
	return fmt.Sprintf("Device: %s, Speed: %s", s.device, s.speed)
}

// ValidateSPIDevice checks if the device can be opened
func ValidateSPIDevice(device string) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph.io: %w", err)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return fmt.Errorf("SPI device %s not accessible: %w", device, err)
	}
	defer port.Close()

	return nil
}

// ChipSelect is the select/deselect half of a bus
type ChipSelect interface {
	Select() error
	Deselect() error
}

// Transceiver is the byte-moving half of a bus
type Transceiver interface {
	Transmit(data []byte) error
	Receive(buf []byte) error
}

// SPIBus joins a transceiver with a chip-select line into a dw1000.Bus
type SPIBus struct {
	cs ChipSelect
	tr Transceiver
}

// NewSPIBus creates a bus from its two halves
func NewSPIBus(cs ChipSelect, tr Transceiver) *SPIBus {
	return &SPIBus{cs: cs, tr: tr}
}

func (b *SPIBus) Select() error              { return b.cs.Select() }
func (b *SPIBus) Deselect() error            { return b.cs.Deselect() }
func (b *SPIBus) Transmit(data []byte) error { return b.tr.Transmit(data) }
func (b *SPIBus) Receive(buf []byte) error   { return b.tr.Receive(buf) }

var _ dw1000.Bus = (*SPIBus)(nil)
