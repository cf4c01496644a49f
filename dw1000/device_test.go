package dw1000_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linht/dw1000-manager/dw1000"
)

func TestReadRegisterFraming(t *testing.T) {
	bus := newFakeBus()
	bus.regs[dw1000.RegPANADR] = []byte{0x11, 0x22, 0x33, 0x44}
	dev := dw1000.New(bus)

	data, err := dev.ReadRegister(dw1000.RegPANADR, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, data)
	assert.Equal(t, []string{"select", "header", "rx", "deselect"}, bus.calls)
	assert.Equal(t, byte(0x03), bus.header)
}

func TestWriteRegisterFraming(t *testing.T) {
	bus := newFakeBus()
	dev := dw1000.New(bus)

	require.NoError(t, dev.WriteRegister(dw1000.RegSysMask, []byte{1, 2, 3, 4}))
	assert.Equal(t, []string{"select", "header", "tx", "deselect"}, bus.calls)
	assert.Equal(t, byte(0x8E), bus.header)
	assert.Equal(t, [][]byte{{1, 2, 3, 4}}, bus.writesTo(dw1000.RegSysMask))
}

func TestShortReadAllowed(t *testing.T) {
	bus := newFakeBus()
	bus.regs[dw1000.RegPMSC] = bytes.Repeat([]byte{0xAB}, 48)
	dev := dw1000.New(bus)

	data, err := dev.ReadRegister(dw1000.RegPMSC, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xAB, 0xAB, 0xAB}, data)
}

func TestBusErrorsReleaseSelect(t *testing.T) {
	tests := []struct {
		name  string
		phase string
		write bool
		calls []string
		fail  dw1000.Phase
	}{
		{"read header", "header", false, []string{"select", "header", "deselect"}, dw1000.PhaseHeader},
		{"read data", "rx", false, []string{"select", "header", "rx", "deselect"}, dw1000.PhaseData},
		{"write header", "header", true, []string{"select", "header", "deselect"}, dw1000.PhaseHeader},
		{"write data", "tx", true, []string{"select", "header", "tx", "deselect"}, dw1000.PhaseData},
		{"read deselect", "deselect", false, []string{"select", "header", "rx", "deselect"}, dw1000.PhaseDeselect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newFakeBus()
			bus.failOn = failPhaseAt(tt.phase, dw1000.RegSysCfg)
			dev := dw1000.New(bus)

			var err error
			if tt.write {
				err = dev.WriteRegister(dw1000.RegSysCfg, []byte{0, 0, 0, 0})
			} else {
				_, err = dev.ReadRegister(dw1000.RegSysCfg, 4)
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, dw1000.ErrBusError)
			assert.ErrorIs(t, err, errTransport)
			assert.Equal(t, tt.calls, bus.calls)
			assert.False(t, bus.selected)

			var regErr *dw1000.RegisterError
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, tt.fail, regErr.Phase)
			assert.Equal(t, uint8(dw1000.RegSysCfg), regErr.Address)
		})
	}
}

func TestSelectFailure(t *testing.T) {
	bus := newFakeBus()
	bus.failOn = failPhaseAt("select", 0)
	dev := dw1000.New(bus)

	_, err := dev.ReadRegister(dw1000.RegEUI, 8)
	assert.ErrorIs(t, err, dw1000.ErrBusError)
	assert.Equal(t, []string{"select"}, bus.calls)
}

func TestReadDeviceID(t *testing.T) {
	bus := newFakeBus()
	bus.regs[dw1000.RegDevID] = []byte{0x30, 0x01, 0xCA, 0xDE}
	dev := dw1000.New(bus)

	assert.Equal(t, uint32(0xDECA0130), dev.ReadDeviceID())
}

func TestReadDeviceIDSentinel(t *testing.T) {
	for _, phase := range []string{"header", "rx"} {
		t.Run(phase, func(t *testing.T) {
			bus := newFakeBus()
			bus.regs[dw1000.RegDevID] = []byte{0x30, 0x01, 0xCA, 0xDE}
			bus.failOn = failPhaseAt(phase, dw1000.RegDevID)
			dev := dw1000.New(bus)

			assert.Equal(t, dw1000.DeviceIDUnknown, dev.ReadDeviceID())
			assert.Equal(t, uint32(0xFFFFFFFF), dev.ReadDeviceID())
		})
	}
}

func TestWriteAndVerifyEUI(t *testing.T) {
	bus := newFakeBus()
	dev := dw1000.New(bus)
	eui := dw1000.EUI{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

	require.NoError(t, dev.WriteAndVerifyEUI(eui))

	got, err := dev.ReadEUI()
	require.NoError(t, err)
	assert.Equal(t, eui, got)
}

func TestWriteAndVerifyEUIFailures(t *testing.T) {
	eui := dw1000.EUI{1, 2, 3, 4, 5, 6, 7, 8}

	tests := []struct {
		name  string
		setup func(b *fakeBus)
	}{
		{"corrupted readback", func(b *fakeBus) { b.corrupt[dw1000.RegEUI] = 5 }},
		{"write fails", func(b *fakeBus) { b.failOn = failPhaseAt("tx", dw1000.RegEUI) }},
		{"read fails", func(b *fakeBus) { b.failOn = failPhaseAt("rx", dw1000.RegEUI) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newFakeBus()
			tt.setup(bus)
			dev := dw1000.New(bus)

			err := dev.WriteAndVerifyEUI(eui)
			require.Error(t, err)
			assert.ErrorIs(t, err, dw1000.ErrVerificationFailed)
			assert.NotErrorIs(t, err, dw1000.ErrBusError)
			assert.Equal(t, dw1000.ErrVerificationFailed, dw1000.Kind(err))
		})
	}
}

func TestCompareEUI(t *testing.T) {
	x := dw1000.EUI{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x11, 0x22, 0x33}
	assert.True(t, dw1000.CompareEUI(x, x))
	assert.True(t, dw1000.CompareEUI(dw1000.EUI{}, dw1000.EUI{}))

	for i := 0; i < dw1000.EUILength; i++ {
		y := x
		y[i]++
		assert.False(t, dw1000.CompareEUI(x, y), "difference at byte %d", i)
	}
}

func TestDeviceLogsTransactions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	bus := newFakeBus()
	dev := dw1000.New(bus, dw1000.WithLogger(logger))
	require.NoError(t, dev.WriteRegister(dw1000.RegPANADR, []byte{0xCA, 0xDE, 0x01, 0x00}))

	assert.Contains(t, buf.String(), "register=PANADR")
	assert.Contains(t, buf.String(), "data=cade0100")
}

func TestKind(t *testing.T) {
	dev := dw1000.New(newFakeBus())
	_, err := dev.ReadRegister(0x02, 1)
	assert.Equal(t, dw1000.ErrInvalidRegister, dw1000.Kind(err))
	assert.Nil(t, dw1000.Kind(errors.New("other")))
	assert.Nil(t, dw1000.Kind(nil))
}
