package dw1000_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linht/dw1000-manager/dw1000"
)

func TestRegisterTableAddressesUnique(t *testing.T) {
	seen := make(map[uint8]string)
	for _, r := range dw1000.Registers() {
		prev, dup := seen[r.Address]
		assert.False(t, dup, "address 0x%02X used by %s and %s", r.Address, prev, r.Name)
		assert.LessOrEqual(t, r.Address, uint8(0x3F), "%s outside 6-bit address space", r.Name)
		seen[r.Address] = r.Name
	}
	assert.Len(t, seen, 39)
}

func TestRegistersReturnsCopy(t *testing.T) {
	regs := dw1000.Registers()
	regs[0].MaxLength = 99

	r, ok := dw1000.LookupRegister(dw1000.RegDevID)
	require.True(t, ok)
	assert.Equal(t, 4, r.MaxLength)
}

func TestWireContractEntries(t *testing.T) {
	tests := []struct {
		addr   uint8
		name   string
		length int
		access dw1000.AccessMode
	}{
		{0x00, "DEV_ID", 4, dw1000.ReadOnly},
		{0x01, "EUI", 8, dw1000.ReadWrite},
		{0x03, "PANADR", 4, dw1000.ReadWrite},
		{0x04, "SYS_CFG", 4, dw1000.ReadWrite},
		{0x06, "SYS_TIME", 5, dw1000.ReadOnly},
		{0x08, "TX_FCTRL", 5, dw1000.ReadWrite},
		{0x09, "TX_BUFFER", 1024, dw1000.WriteOnly},
		{0x0A, "DX_TIME", 5, dw1000.ReadWrite},
		{0x0C, "RX_FWTO", 2, dw1000.ReadWrite},
		{0x0D, "SYS_CTRL", 4, dw1000.SpecialReadWrite},
		{0x0E, "SYS_MASK", 4, dw1000.ReadWrite},
		{0x0F, "SYS_STATUS", 5, dw1000.SpecialReadWrite},
		{0x10, "RX_FINFO", 4, dw1000.ReadOnlyDouble},
		{0x11, "RX_BUFFER", 1024, dw1000.ReadOnlyDouble},
		{0x1E, "TX_POWER", 4, dw1000.ReadWrite},
		{0x1F, "CHAN_CTRL", 4, dw1000.ReadWrite},
		{0x36, "PMSC", 48, dw1000.ReadWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := dw1000.LookupRegister(tt.addr)
			require.True(t, ok)
			assert.Equal(t, tt.name, r.Name)
			assert.Equal(t, tt.length, r.MaxLength)
			assert.Equal(t, tt.access, r.Access)
		})
	}
}

func TestLookupRegisterName(t *testing.T) {
	r, ok := dw1000.LookupRegisterName("sys_ctrl")
	require.True(t, ok)
	assert.Equal(t, uint8(dw1000.RegSysCtrl), r.Address)

	_, ok = dw1000.LookupRegisterName("NOPE")
	assert.False(t, ok)

	assert.Equal(t, "CHAN_CTRL", dw1000.RegisterName(0x1F))
	assert.Equal(t, "0x02", dw1000.RegisterName(0x02))
}

func TestValidateAccess(t *testing.T) {
	assert.NoError(t, dw1000.ValidateAccess(dw1000.RegEUI, 8))
	assert.NoError(t, dw1000.ValidateAccess(dw1000.RegEUI, 3))
	assert.ErrorIs(t, dw1000.ValidateAccess(dw1000.RegEUI, 9), dw1000.ErrLengthExceeded)
	assert.ErrorIs(t, dw1000.ValidateAccess(0x02, 0), dw1000.ErrInvalidRegister)
	assert.ErrorIs(t, dw1000.ValidateAccess(dw1000.RegLDECtrl, 1), dw1000.ErrLengthExceeded)
}

func TestUnknownAddressRejectedForEveryLength(t *testing.T) {
	known := make(map[uint8]bool)
	for _, r := range dw1000.Registers() {
		known[r.Address] = true
	}

	for addr := 0; addr <= 0xFF; addr++ {
		if known[uint8(addr)] {
			continue
		}
		for _, length := range []int{0, 1, 4, 8, 1024, 4096} {
			bus := newFakeBus()
			dev := dw1000.New(bus)

			_, err := dev.ReadRegister(uint8(addr), length)
			assert.ErrorIs(t, err, dw1000.ErrInvalidRegister, "read 0x%02X len %d", addr, length)

			err = dev.WriteRegister(uint8(addr), make([]byte, length))
			assert.ErrorIs(t, err, dw1000.ErrInvalidRegister, "write 0x%02X len %d", addr, length)

			assert.Empty(t, bus.calls)
		}
	}
}

func TestLengthBoundPerRegister(t *testing.T) {
	for _, r := range dw1000.Registers() {
		t.Run(r.Name, func(t *testing.T) {
			bus := newFakeBus()
			dev := dw1000.New(bus)

			_, err := dev.ReadRegister(r.Address, r.MaxLength+1)
			assert.ErrorIs(t, err, dw1000.ErrLengthExceeded)
			err = dev.WriteRegister(r.Address, make([]byte, r.MaxLength+1))
			assert.ErrorIs(t, err, dw1000.ErrLengthExceeded)
			assert.Empty(t, bus.calls)

			if r.MaxLength == 0 {
				return
			}

			data, err := dev.ReadRegister(r.Address, r.MaxLength)
			require.NoError(t, err)
			assert.Len(t, data, r.MaxLength)
			require.NoError(t, dev.WriteRegister(r.Address, make([]byte, r.MaxLength)))
		})
	}
}

func TestEmptyBufferRejected(t *testing.T) {
	bus := newFakeBus()
	dev := dw1000.New(bus)

	_, err := dev.ReadRegister(dw1000.RegEUI, 0)
	assert.ErrorIs(t, err, dw1000.ErrEmptyBuffer)
	assert.ErrorIs(t, dev.WriteRegister(dw1000.RegEUI, nil), dw1000.ErrEmptyBuffer)
	assert.Empty(t, bus.calls)
}

func TestHeaderEncoding(t *testing.T) {
	assert.Equal(t, byte(0x0D), dw1000.ReadHeader(0x0D))
	assert.Equal(t, byte(0x8D), dw1000.WriteHeader(0x0D))
	assert.Equal(t, byte(0x36), dw1000.ReadHeader(0x36))
	assert.Equal(t, byte(0xB6), dw1000.WriteHeader(0x36))

	// Only the six address bits are carried
	assert.Equal(t, byte(0x3F), dw1000.ReadHeader(0xFF))
	assert.Equal(t, byte(0xBF), dw1000.WriteHeader(0x7F))
}

func TestAccessModeString(t *testing.T) {
	assert.Equal(t, "RO", dw1000.ReadOnly.String())
	assert.Equal(t, "SRW", dw1000.SpecialReadWrite.String())
	assert.Equal(t, "RWD", dw1000.ReadWriteDouble.String())
	assert.Equal(t, "AccessMode(9)", dw1000.AccessMode(9).String())
}
