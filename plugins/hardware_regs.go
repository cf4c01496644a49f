package plugins

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/linht/dw1000-manager/dw1000"
)

// ParseRegister resolves a register given by datasheet name (SYS_CTRL),
// hex address (0x0D) or decimal address (13). Only the syntax is checked;
// whether the address exists is left to the driver.
func ParseRegister(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty register")
	}

	if r, ok := dw1000.LookupRegisterName(s); ok {
		return r.Address, nil
	}

	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q", s)
	}
	return uint8(v), nil
}

// ParseHexBytes decodes a byte string such as "cafe01", "0xCAFE01",
// "ca fe 01" or "ca:fe:01"
func ParseHexBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return b, nil
}

// ParseEUI decodes an 8-byte extended unique identifier
func ParseEUI(s string) (dw1000.EUI, error) {
	var eui dw1000.EUI
	b, err := ParseHexBytes(s)
	if err != nil {
		return eui, err
	}
	if len(b) != dw1000.EUILength {
		return eui, fmt.Errorf("EUI must be %d bytes, got %d", dw1000.EUILength, len(b))
	}
	copy(eui[:], b)
	return eui, nil
}

// registerMapRows formats the register map for the UI
func registerMapRows() []map[string]interface{} {
	regs := dw1000.Registers()
	rows := make([]map[string]interface{}, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, map[string]interface{}{
			"address":     fmt.Sprintf("0x%02X", r.Address),
			"name":        r.Name,
			"max_length":  r.MaxLength,
			"access":      r.Access.String(),
			"description": r.Description,
		})
	}
	return rows
}
