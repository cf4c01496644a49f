package dw1000

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Snapshot holds the values of the registers read by ReadAllRegisters.
type Snapshot struct {
	DevID     uint32
	EUI       EUI
	PANADR    [4]byte
	SysCfg    uint32
	SysTime   [5]byte
	DxTime    [5]byte
	RxFwto    uint16
	SysCtrl   uint32
	SysMask   uint32
	SysStatus [5]byte
	TxPower   [4]byte
	ChanCtrl  uint32
	PMSC      [48]byte
}

// SnapshotEntry is one register of a snapshot in display form
type SnapshotEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Value   string `json:"value"`
}

// snapshotField binds a register to the snapshot storage it fills
type snapshotField struct {
	addr   uint8
	length int
	store  func(s *Snapshot, b []byte)
}

var snapshotFields = []snapshotField{
	{RegDevID, 4, func(s *Snapshot, b []byte) { s.DevID = binary.LittleEndian.Uint32(b) }},
	{RegEUI, 8, func(s *Snapshot, b []byte) { copy(s.EUI[:], b) }},
	{RegPANADR, 4, func(s *Snapshot, b []byte) { copy(s.PANADR[:], b) }},
	{RegSysCfg, 4, func(s *Snapshot, b []byte) { s.SysCfg = binary.LittleEndian.Uint32(b) }},
	{RegSysTime, 5, func(s *Snapshot, b []byte) { copy(s.SysTime[:], b) }},
	{RegDxTime, 5, func(s *Snapshot, b []byte) { copy(s.DxTime[:], b) }},
	{RegRxFwto, 2, func(s *Snapshot, b []byte) { s.RxFwto = binary.LittleEndian.Uint16(b) }},
	{RegSysCtrl, 4, func(s *Snapshot, b []byte) { s.SysCtrl = binary.LittleEndian.Uint32(b) }},
	{RegSysMask, 4, func(s *Snapshot, b []byte) { s.SysMask = binary.LittleEndian.Uint32(b) }},
	{RegSysStatus, 5, func(s *Snapshot, b []byte) { copy(s.SysStatus[:], b) }},
	{RegTxPower, 4, func(s *Snapshot, b []byte) { copy(s.TxPower[:], b) }},
	{RegChanCtrl, 4, func(s *Snapshot, b []byte) { s.ChanCtrl = binary.LittleEndian.Uint32(b) }},
	{RegPMSC, 48, func(s *Snapshot, b []byte) { copy(s.PMSC[:], b) }},
}

// SnapshotRegisters lists the addresses read by ReadAllRegisters, in order
func SnapshotRegisters() []uint8 {
	addrs := make([]uint8, len(snapshotFields))
	for i, f := range snapshotFields {
		addrs[i] = f.addr
	}
	return addrs
}

// ReadAllRegisters reads the snapshot registers one after another. The
// first failing read aborts and no snapshot is returned.
func (d *Device) ReadAllRegisters() (*Snapshot, error) {
	var s Snapshot
	for _, f := range snapshotFields {
		b, err := d.ReadRegister(f.addr, f.length)
		if err != nil {
			return nil, d.sequenceError("read all registers", RegisterName(f.addr), err)
		}
		f.store(&s, b)
	}
	return &s, nil
}

// Entries returns the snapshot registers in read order with hex values.
// Integer registers are shown most significant digit first, byte arrays
// in register byte order.
func (s *Snapshot) Entries() []SnapshotEntry {
	u32 := func(v uint32) string { return fmt.Sprintf("0x%08X", v) }
	values := map[uint8]string{
		RegDevID:     u32(s.DevID),
		RegEUI:       hexBytes(s.EUI[:]),
		RegPANADR:    hexBytes(s.PANADR[:]),
		RegSysCfg:    u32(s.SysCfg),
		RegSysTime:   hexBytes(s.SysTime[:]),
		RegDxTime:    hexBytes(s.DxTime[:]),
		RegRxFwto:    fmt.Sprintf("0x%04X", s.RxFwto),
		RegSysCtrl:   u32(s.SysCtrl),
		RegSysMask:   u32(s.SysMask),
		RegSysStatus: hexBytes(s.SysStatus[:]),
		RegTxPower:   hexBytes(s.TxPower[:]),
		RegChanCtrl:  u32(s.ChanCtrl),
		RegPMSC:      hexBytes(s.PMSC[:]),
	}

	entries := make([]SnapshotEntry, 0, len(snapshotFields))
	for _, f := range snapshotFields {
		entries = append(entries, SnapshotEntry{
			Name:    RegisterName(f.addr),
			Address: fmt.Sprintf("0x%02X", f.addr),
			Value:   values[f.addr],
		})
	}
	return entries
}

// WriteTo prints the snapshot as an aligned table
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	sb.WriteString("DW1000 register dump\n")
	for _, e := range s.Entries() {
		fmt.Fprintf(&sb, "  %-4s %-10s %s\n", e.Address, e.Name, e.Value)
	}
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func hexBytes(b []byte) string {
	return hex.EncodeToString(b)
}

// causeText keeps the message of err while dropping its error kinds
func causeText(err error) error {
	return errors.New(err.Error())
}
