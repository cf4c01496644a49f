package plugins

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linht/dw1000-manager/dw1000"
)

func TestParseRegister(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"SYS_CTRL", dw1000.RegSysCtrl, false},
		{"sys_ctrl", dw1000.RegSysCtrl, false},
		{" PMSC ", dw1000.RegPMSC, false},
		{"0x1F", dw1000.RegChanCtrl, false},
		{"0X1e", dw1000.RegTxPower, false},
		{"13", dw1000.RegSysCtrl, false},
		// Syntax only; existence is checked by the driver
		{"0x02", 0x02, false},
		{"", 0, true},
		{"0x100", 0, true},
		{"NOPE", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegister(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHexBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"cafe01", []byte{0xCA, 0xFE, 0x01}, false},
		{"0xCAFE01", []byte{0xCA, 0xFE, 0x01}, false},
		{"ca fe 01", []byte{0xCA, 0xFE, 0x01}, false},
		{"ca:fe:01", []byte{0xCA, 0xFE, 0x01}, false},
		{"ca-fe-01", []byte{0xCA, 0xFE, 0x01}, false},
		{"", []byte{}, false},
		{"abc", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexBytes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEUI(t *testing.T) {
	eui, err := ParseEUI("01:02:03:04:05:06:07:08")
	require.NoError(t, err)
	assert.Equal(t, dw1000.EUI{1, 2, 3, 4, 5, 6, 7, 8}, eui)

	_, err = ParseEUI("01020304")
	assert.ErrorContains(t, err, "8 bytes")

	_, err = ParseEUI("0102030405060708090a")
	assert.Error(t, err)

	_, err = ParseEUI("not hex")
	assert.Error(t, err)
}

func TestRegisterMapRows(t *testing.T) {
	rows := registerMapRows()
	require.Len(t, rows, len(dw1000.Registers()))

	assert.Equal(t, "0x00", rows[0]["address"])
	assert.Equal(t, "DEV_ID", rows[0]["name"])
	assert.Equal(t, "RO", rows[0]["access"])
}

func TestSendDriverError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid register", &dw1000.RegisterError{Op: "read", Address: 0x02, Phase: dw1000.PhaseValidate, Err: dw1000.ErrInvalidRegister}, 400, "invalid register"},
		{"length exceeded", &dw1000.RegisterError{Op: "read", Phase: dw1000.PhaseValidate, Err: dw1000.ErrLengthExceeded}, 400, "length exceeds register size"},
		{"empty buffer", &dw1000.RegisterError{Op: "write", Phase: dw1000.PhaseValidate, Err: dw1000.ErrEmptyBuffer}, 400, "empty buffer"},
		{"verification", &dw1000.RegisterError{Op: "verify read back", Address: dw1000.RegEUI, Err: dw1000.ErrVerificationFailed}, 409, "verification failed"},
		{"bus wrapped by a sequence", fmt.Errorf("send frame: load TX_BUFFER: %w", &dw1000.RegisterError{Op: "write", Address: dw1000.RegTxBuffer, Phase: dw1000.PhaseData, Err: dw1000.ErrBusError}), 502, "bus error"},
		{"plain error", fmt.Errorf("controller not initialized"), 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return SendDriverError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var out APIResponse
			require.NoError(t, json.Unmarshal(body, &out))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, out.Success)
			assert.Equal(t, tt.kind, out.Kind)
			assert.Equal(t, tt.err.Error(), out.Error)
		})
	}
}
