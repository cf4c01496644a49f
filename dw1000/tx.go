package dw1000

import (
	"fmt"
	"strings"
)

// TxMode selects the transmit configuration applied by EnableTxMode.
type TxMode int

const (
	TxModeStandard TxMode = iota
	TxModeDelayed
	// TxModeResponse only sets TRXOFF. The response-specific sequencing
	// (ACK_RESP_T, RX_FWTO) is left to the layer driving the exchange.
	TxModeResponse
)

func (m TxMode) String() string {
	switch m {
	case TxModeStandard:
		return "standard"
	case TxModeDelayed:
		return "delayed"
	case TxModeResponse:
		return "response"
	default:
		return fmt.Sprintf("TxMode(%d)", int(m))
	}
}

// ParseTxMode converts a mode name as produced by String
func ParseTxMode(s string) (TxMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "":
		return TxModeStandard, nil
	case "delayed":
		return TxModeDelayed, nil
	case "response":
		return TxModeResponse, nil
	default:
		return 0, fmt.Errorf("unknown transmit mode %q", s)
	}
}

// ChannelControl returns the CHAN_CTRL word programmed when transmit mode is
// enabled: channel 5 at 64 MHz PRF.
func ChannelControl() uint32 {
	return ChanCtrlTxChan5 | ChanCtrlTxPRF64MHz
}

// EnableTxMode configures the device for transmission.
//
// SYS_CTRL is read, RXEN and RXDLYE cleared, TXEN and the mode bits set,
// and written back. Then TX_FCTRL is cleared, CHAN_CTRL programmed and all
// four TX_POWER bytes set to TxPowerMax. The first failing step aborts the
// sequence; earlier writes are not undone, so after an error the caller
// must enable again or disable.
func (d *Device) EnableTxMode(mode TxMode) error {
	var modeBits uint32
	switch mode {
	case TxModeStandard:
	case TxModeDelayed:
		modeBits = SysCtrlTXDLYE
	case TxModeResponse:
		modeBits = SysCtrlTRXOFF
	default:
		return fmt.Errorf("enable tx mode: unknown mode %d", int(mode))
	}

	ctrl, err := d.readUint32(RegSysCtrl)
	if err != nil {
		return d.sequenceError("enable tx mode", "read SYS_CTRL", err)
	}

	ctrl &^= SysCtrlRXEN | SysCtrlRXDLYE
	ctrl |= SysCtrlTXEN | modeBits

	if err := d.writeUint32(RegSysCtrl, ctrl); err != nil {
		return d.sequenceError("enable tx mode", "write SYS_CTRL", err)
	}

	// Frame length is filled in by SendFrame
	if err := d.WriteRegister(RegTxFctrl, make([]byte, TxFctrlLength)); err != nil {
		return d.sequenceError("enable tx mode", "reset TX_FCTRL", err)
	}

	if err := d.writeUint32(RegChanCtrl, ChannelControl()); err != nil {
		return d.sequenceError("enable tx mode", "write CHAN_CTRL", err)
	}

	power := []byte{TxPowerMax, TxPowerMax, TxPowerMax, TxPowerMax}
	if err := d.WriteRegister(RegTxPower, power); err != nil {
		return d.sequenceError("enable tx mode", "write TX_POWER", err)
	}

	d.logger.Debug("Transmit mode enabled", "mode", mode.String(), "sys_ctrl", fmt.Sprintf("0x%08X", ctrl))
	return nil
}

// DisableTxMode clears TXEN and TXDLYE in SYS_CTRL
func (d *Device) DisableTxMode() error {
	ctrl, err := d.readUint32(RegSysCtrl)
	if err != nil {
		return d.sequenceError("disable tx mode", "read SYS_CTRL", err)
	}

	ctrl &^= SysCtrlTXEN | SysCtrlTXDLYE

	if err := d.writeUint32(RegSysCtrl, ctrl); err != nil {
		return d.sequenceError("disable tx mode", "write SYS_CTRL", err)
	}

	d.logger.Debug("Transmit mode disabled")
	return nil
}

// EncodeFrameLength stores length in the TX_FCTRL length fields: the low
// byte in fctrl[0] and bits 9-8 in the two low bits of fctrl[1]. The other
// bits of fctrl[1] are preserved.
func EncodeFrameLength(fctrl []byte, length int) {
	fctrl[0] = byte(length & 0xFF)
	fctrl[1] = (fctrl[1] &^ 0x03) | byte((length>>8)&0x03)
}

// SendFrame loads data into the transmit buffer and starts transmission.
// The frame must hold 1 to MaxFrameLength bytes; this is checked before any
// bus traffic. Steps after the first failure are skipped and nothing is
// rolled back.
func (d *Device) SendFrame(data []byte) error {
	switch {
	case len(data) == 0:
		return &RegisterError{Op: "send frame", Address: RegTxBuffer, Phase: PhaseValidate, Err: ErrEmptyBuffer}
	case len(data) > MaxFrameLength:
		return &RegisterError{Op: "send frame", Address: RegTxBuffer, Phase: PhaseValidate, Err: ErrLengthExceeded}
	}

	fctrl, err := d.ReadRegister(RegTxFctrl, TxFctrlLength)
	if err != nil {
		return d.sequenceError("send frame", "read TX_FCTRL", err)
	}

	EncodeFrameLength(fctrl, len(data))

	if err := d.WriteRegister(RegTxFctrl, fctrl); err != nil {
		return d.sequenceError("send frame", "write TX_FCTRL", err)
	}

	if err := d.WriteRegister(RegTxBuffer, data); err != nil {
		return d.sequenceError("send frame", "load TX_BUFFER", err)
	}

	ctrl, err := d.readUint32(RegSysCtrl)
	if err != nil {
		return d.sequenceError("send frame", "read SYS_CTRL", err)
	}

	ctrl |= SysCtrlTXSTRT

	if err := d.writeUint32(RegSysCtrl, ctrl); err != nil {
		return d.sequenceError("send frame", "start transmission", err)
	}

	d.logger.Debug("Frame queued", "length", len(data))
	return nil
}

func (d *Device) sequenceError(op, step string, err error) error {
	d.logger.Warn("Register sequence aborted", "operation", op, "step", step, "error", err)
	return fmt.Errorf("%s: %s: %w", op, step, err)
}
