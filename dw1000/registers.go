package dw1000

import (
	"fmt"
	"strings"
)

// DW1000 register file addresses
const (
	RegDevID     = 0x00 // Device identifier
	RegEUI       = 0x01 // Extended unique identifier
	RegPANADR    = 0x03 // PAN identifier and short address
	RegSysCfg    = 0x04 // System configuration
	RegSysTime   = 0x06 // System time counter
	RegTxFctrl   = 0x08 // Transmit frame control
	RegTxBuffer  = 0x09 // Transmit data buffer
	RegDxTime    = 0x0A // Delayed send or receive time
	RegRxFwto    = 0x0C // Receive frame wait timeout
	RegSysCtrl   = 0x0D // System control
	RegSysMask   = 0x0E // System event mask
	RegSysStatus = 0x0F // System event status
	RegRxFinfo   = 0x10 // RX frame information
	RegRxBuffer  = 0x11 // Receive data buffer
	RegRxFqual   = 0x12
	RegRxTtcki   = 0x13
	RegRxTtcko   = 0x14
	RegRxTime    = 0x15
	RegTxTime    = 0x17
	RegTxAntd    = 0x18
	RegSysState  = 0x19
	RegAckRespT  = 0x1A
	RegRxSniff   = 0x1D
	RegTxPower   = 0x1E // TX power control
	RegChanCtrl  = 0x1F // Channel control
	RegUsrSFD    = 0x21
	RegAgcCtrl   = 0x23
	RegExtSync   = 0x24
	RegAccMem    = 0x25
	RegGPIOCtrl  = 0x26
	RegDrxConf   = 0x27
	RegRFConf    = 0x28
	RegTxCal     = 0x2A
	RegFSCtrl    = 0x2B
	RegAON       = 0x2C
	RegOTPIf     = 0x2D
	RegLDECtrl   = 0x2E
	RegDigDiag   = 0x2F
	RegPMSC      = 0x36 // Power management and system control
)

// Fixed register sizes used by the driver
const (
	DevIDLength    = 4
	EUILength      = 8
	SysCtrlLength  = 4
	TxFctrlLength  = 5
	TxPowerLength  = 4
	ChanCtrlLength = 4
	MaxFrameLength = 1024
)

// SYS_CTRL (0x0D) bits
const (
	SysCtrlTXEN   = 0x01 // Transmitter enable
	SysCtrlRXEN   = 0x02 // Receiver enable
	SysCtrlTXSTRT = 0x04 // Start transmission
	SysCtrlTXDLYE = 0x20 // Delayed transmit enable
	SysCtrlTRXOFF = 0x40 // Transceiver off
	SysCtrlRXDLYE = 0x80 // Delayed receive enable
)

// CHAN_CTRL (0x1F) fields
const (
	ChanCtrlTxChanMask  = 0x0000000F
	ChanCtrlRxChanMask  = 0x000000F0
	ChanCtrlTxPRFMask   = 0x00000300
	ChanCtrlTxPRF16MHz  = 0x00000100
	ChanCtrlTxPRF64MHz  = 0x00000200
	ChanCtrlPhyModeMask = 0x00000C00

	// ChanCtrlTxChan5 is the channel 5 selector as programmed by the
	// transmit sequence.
	ChanCtrlTxChan5 = 0x00000001
)

// SYS_CFG (0x04) bits
const (
	SysCfgRXAUTR  = 0x00000001 // Receiver auto re-enable
	SysCfgAUTOACK = 0x00000002 // Automatic acknowledgement
	SysCfgFFEN    = 0x00000004 // Frame filtering enable
	SysCfgFFBC    = 0x00000008 // Frame filtering behave as coordinator
	SysCfgFFAB    = 0x00000010 // Frame filtering allow beacon
)

// TxPowerMax is the highest gain setting of one TX_POWER byte
// (coarse DA 15 dB, fine mixer 15.5 dB).
const TxPowerMax = 0x1F

// AccessMode describes how a register may be accessed over the bus.
type AccessMode uint8

const (
	ReadOnly AccessMode = iota
	WriteOnly
	ReadWrite
	SpecialReadWrite
	ReadOnlyDouble
	ReadWriteDouble
)

// String returns the short datasheet notation of the access mode
func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "RO"
	case WriteOnly:
		return "WO"
	case ReadWrite:
		return "RW"
	case SpecialReadWrite:
		return "SRW"
	case ReadOnlyDouble:
		return "ROD"
	case ReadWriteDouble:
		return "RWD"
	default:
		return fmt.Sprintf("AccessMode(%d)", uint8(m))
	}
}

// RegisterDescriptor is a static entry of the register map.
// MaxLength is an upper bound; 0 means the register has no directly
// addressable storage.
type RegisterDescriptor struct {
	Address     uint8      `json:"address"`
	MaxLength   int        `json:"max_length"`
	Access      AccessMode `json:"-"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

var registerTable = [...]RegisterDescriptor{
	{RegDevID, 4, ReadOnly, "DEV_ID", "Device Identifier"},
	{RegEUI, 8, ReadWrite, "EUI", "Extended Unique Identifier"},
	{RegPANADR, 4, ReadWrite, "PANADR", "PAN Identifier and Short Address"},
	{RegSysCfg, 4, ReadWrite, "SYS_CFG", "System Configuration bitmap"},
	{RegSysTime, 5, ReadOnly, "SYS_TIME", "System Time Counter (40-bit)"},
	{RegTxFctrl, 5, ReadWrite, "TX_FCTRL", "Transmit Frame Control"},
	{RegTxBuffer, 1024, WriteOnly, "TX_BUFFER", "Transmit Data Buffer"},
	{RegDxTime, 5, ReadWrite, "DX_TIME", "Delayed Send or Receive Time (40-bit)"},
	{RegRxFwto, 2, ReadWrite, "RX_FWTO", "Receive Frame Wait Timeout Period"},
	{RegSysCtrl, 4, SpecialReadWrite, "SYS_CTRL", "System Control Register"},
	{RegSysMask, 4, ReadWrite, "SYS_MASK", "System Event Mask Register"},
	{RegSysStatus, 5, SpecialReadWrite, "SYS_STATUS", "System Event Status Register"},
	{RegRxFinfo, 4, ReadOnlyDouble, "RX_FINFO", "RX Frame Information"},
	{RegRxBuffer, 1024, ReadOnlyDouble, "RX_BUFFER", "Receive Data"},
	{RegRxFqual, 8, ReadOnlyDouble, "RX_FQUAL", "Rx Frame Quality information"},
	{RegRxTtcki, 4, ReadOnlyDouble, "RX_TTCKI", "Receiver Time Tracking Interval"},
	{RegRxTtcko, 5, ReadOnlyDouble, "RX_TTCKO", "Receiver Time Tracking Offset"},
	{RegRxTime, 14, ReadOnlyDouble, "RX_TIME", "Receive Message Time of Arrival"},
	{RegTxTime, 10, ReadOnly, "TX_TIME", "Transmit Message Time of Sending"},
	{RegTxAntd, 2, ReadWrite, "TX_ANTD", "16-bit Delay from Transmit to Antenna"},
	{RegSysState, 5, ReadOnly, "SYS_STATE", "System State information"},
	{RegAckRespT, 4, ReadWrite, "ACK_RESP_T", "Acknowledgement Time and Response Time"},
	{RegRxSniff, 4, ReadWrite, "RX_SNIFF", "Pulsed Preamble Reception Configuration"},
	{RegTxPower, 4, ReadWrite, "TX_POWER", "TX Power Control"},
	{RegChanCtrl, 4, ReadWrite, "CHAN_CTRL", "Channel Control"},
	{RegUsrSFD, 41, ReadWrite, "USR_SFD", "User-specified short/long TX/RX SFD sequences"},
	{RegAgcCtrl, 33, ReadWrite, "AGC_CTRL", "Automatic Gain Control configuration"},
	{RegExtSync, 12, ReadWrite, "EXT_SYNC", "External synchronisation control"},
	{RegAccMem, 4064, ReadOnly, "ACC_MEM", "Read access to accumulator data"},
	{RegGPIOCtrl, 44, ReadWrite, "GPIO_CTRL", "GPIO control"},
	{RegDrxConf, 44, ReadWrite, "DRX_CONF", "Digital Receiver configuration"},
	{RegRFConf, 58, ReadWrite, "RF_CONF", "Analog RF Configuration"},
	{RegTxCal, 52, ReadWrite, "TX_CAL", "Transmitter calibration block"},
	{RegFSCtrl, 21, ReadWrite, "FS_CTRL", "Frequency synthesiser control block"},
	{RegAON, 12, ReadWrite, "AON", "Always-On register set"},
	{RegOTPIf, 18, ReadWrite, "OTP_IF", "One Time Programmable Memory Interface"},
	{RegLDECtrl, 0, ReadWrite, "LDE_CTRL", "Leading edge detection control block"},
	{RegDigDiag, 41, ReadWrite, "DIG_DIAG", "Digital Diagnostics Interface"},
	{RegPMSC, 48, ReadWrite, "PMSC", "Power Management System Control Block"},
}

// Registers returns a copy of the register map in address order
func Registers() []RegisterDescriptor {
	out := make([]RegisterDescriptor, len(registerTable))
	copy(out, registerTable[:])
	return out
}

// LookupRegister returns the descriptor for an address
func LookupRegister(addr uint8) (RegisterDescriptor, bool) {
	for _, r := range registerTable {
		if r.Address == addr {
			return r, true
		}
	}
	return RegisterDescriptor{}, false
}

// LookupRegisterName finds a register by its datasheet name, ignoring case.
func LookupRegisterName(name string) (RegisterDescriptor, bool) {
	for _, r := range registerTable {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return RegisterDescriptor{}, false
}

// RegisterName returns the datasheet name of an address, or a hex
// placeholder for addresses outside the map.
func RegisterName(addr uint8) string {
	if r, ok := LookupRegister(addr); ok {
		return r.Name
	}
	return fmt.Sprintf("0x%02X", addr)
}

// ValidateAccess checks that length bytes at addr is a legal bus operation.
// The first table entry matching addr decides; length may be anything up to
// and including its MaxLength.
func ValidateAccess(addr uint8, length int) error {
	for _, r := range registerTable {
		if r.Address != addr {
			continue
		}
		if length > r.MaxLength {
			return ErrLengthExceeded
		}
		return nil
	}
	return ErrInvalidRegister
}
