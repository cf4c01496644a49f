package dw1000

import (
	"encoding/binary"
	"io"
	"log/slog"
)

// DeviceIDUnknown is returned by ReadDeviceID when the probe fails
const DeviceIDUnknown uint32 = 0xFFFFFFFF

// EUI is the 64-bit extended unique identifier in register byte order
type EUI [EUILength]byte

// Device provides register-level access to a DW1000 over a Bus.
//
// A Device holds no copy of device state; every operation goes to the
// hardware. It is not safe for concurrent use: callers sharing a Device must
// serialize all calls, since interleaved transactions corrupt the bus.
type Device struct {
	bus    Bus
	logger *slog.Logger
}

// Option configures a Device
type Option func(*Device)

// WithLogger sets the logger used for transaction and sequence diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Device on top of bus. It performs no I/O.
func New(bus Bus, opts ...Option) *Device {
	d := &Device{
		bus:    bus,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// transact runs one select/header/data/deselect bracket. Deselect happens on
// every path once select succeeded.
func (d *Device) transact(op string, addr uint8, header byte, data func() error) (err error) {
	if err := d.bus.Select(); err != nil {
		return &RegisterError{Op: op, Address: addr, Phase: PhaseSelect, Err: ErrBusError, Cause: err}
	}
	defer func() {
		if derr := d.bus.Deselect(); derr != nil && err == nil {
			err = &RegisterError{Op: op, Address: addr, Phase: PhaseDeselect, Err: ErrBusError, Cause: derr}
		}
	}()

	if err := d.bus.Transmit([]byte{header}); err != nil {
		return &RegisterError{Op: op, Address: addr, Phase: PhaseHeader, Err: ErrBusError, Cause: err}
	}
	if err := data(); err != nil {
		return &RegisterError{Op: op, Address: addr, Phase: PhaseData, Err: ErrBusError, Cause: err}
	}
	return nil
}

func validate(op string, addr uint8, length int) error {
	if err := ValidateAccess(addr, length); err != nil {
		return &RegisterError{Op: op, Address: addr, Phase: PhaseValidate, Err: err}
	}
	if length <= 0 {
		return &RegisterError{Op: op, Address: addr, Phase: PhaseValidate, Err: ErrEmptyBuffer}
	}
	return nil
}

// ReadRegister reads length bytes from the register at addr
func (d *Device) ReadRegister(addr uint8, length int) ([]byte, error) {
	if err := validate("read", addr, length); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	err := d.transact("read", addr, ReadHeader(addr), func() error {
		return d.bus.Receive(buf)
	})
	if err != nil {
		d.logger.Debug("Register read failed", "register", RegisterName(addr), "length", length, "error", err)
		return nil, err
	}

	d.logger.Debug("Register read", "register", RegisterName(addr), "data", hexBytes(buf))
	return buf, nil
}

// WriteRegister writes data to the register at addr
func (d *Device) WriteRegister(addr uint8, data []byte) error {
	if err := validate("write", addr, len(data)); err != nil {
		return err
	}

	err := d.transact("write", addr, WriteHeader(addr), func() error {
		return d.bus.Transmit(data)
	})
	if err != nil {
		d.logger.Debug("Register write failed", "register", RegisterName(addr), "length", len(data), "error", err)
		return err
	}

	d.logger.Debug("Register write", "register", RegisterName(addr), "data", hexBytes(data))
	return nil
}

// readUint32 reads a 4-byte register as a little-endian word
func (d *Device) readUint32(addr uint8) (uint32, error) {
	b, err := d.ReadRegister(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Device) writeUint32(addr uint8, v uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return d.WriteRegister(addr, b)
}

// ReadDeviceID probes the identification register. Failures are not
// reported; DeviceIDUnknown is returned instead.
func (d *Device) ReadDeviceID() uint32 {
	id, err := d.readUint32(RegDevID)
	if err != nil {
		d.logger.Warn("Device ID probe failed", "error", err)
		return DeviceIDUnknown
	}
	return id
}

// WriteEUI writes the extended unique identifier
func (d *Device) WriteEUI(eui EUI) error {
	return d.WriteRegister(RegEUI, eui[:])
}

// ReadEUI reads the extended unique identifier
func (d *Device) ReadEUI() (EUI, error) {
	var eui EUI
	b, err := d.ReadRegister(RegEUI, EUILength)
	if err != nil {
		return eui, err
	}
	copy(eui[:], b)
	return eui, nil
}

// WriteAndVerifyEUI writes eui, reads it back and compares. Any failing step
// is reported as ErrVerificationFailed.
func (d *Device) WriteAndVerifyEUI(eui EUI) error {
	if err := d.WriteEUI(eui); err != nil {
		return verifyError("write", err)
	}

	readBack, err := d.ReadEUI()
	if err != nil {
		return verifyError("read back", err)
	}

	if !CompareEUI(eui, readBack) {
		d.logger.Warn("EUI mismatch", "written", hexBytes(eui[:]), "read", hexBytes(readBack[:]))
		return &RegisterError{Op: "verify", Address: RegEUI, Phase: PhaseData, Err: ErrVerificationFailed}
	}
	return nil
}

func verifyError(step string, cause error) error {
	return &RegisterError{Op: "verify " + step, Address: RegEUI, Phase: PhaseData, Err: ErrVerificationFailed, Cause: causeText(cause)}
}

// CompareEUI reports whether a and b hold the same eight bytes
func CompareEUI(a, b EUI) bool {
	for i := 0; i < EUILength; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
