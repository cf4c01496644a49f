package plugins

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// DW1000 reset timing
const (
	ResetHoldTime    = 1 * time.Millisecond // RSTN held low
	ResetStartupTime = 5 * time.Millisecond // wait for the crystal and PLL after release
)

// GPIOController manages the chip-select and reset lines of the DW1000
type GPIOController struct {
	chip      *gpiocdev.Chip
	csLine    *gpiocdev.Line
	resetLine *gpiocdev.Line
	chipPath  string
	csPin     int
	resetPin  int
}

// NewGPIOController requests the chip-select and reset lines.
// Both start high: device deselected and out of reset.
func NewGPIOController(chipPath string, csPin int, resetPin int) (*GPIOController, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipPath, err)
	}

	controller := &GPIOController{
		chip:     chip,
		chipPath: chipPath,
		csPin:    csPin,
		resetPin: resetPin,
	}

	csLine, err := chip.RequestLine(
		csPin,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("dw1000-cs"),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request chip-select pin %d: %w", csPin, err)
	}
	controller.csLine = csLine

	resetLine, err := chip.RequestLine(
		resetPin,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer("dw1000-rstn"),
	)
	if err != nil {
		csLine.Close()
		chip.Close()
		return nil, fmt.Errorf("failed to request reset pin %d: %w", resetPin, err)
	}
	controller.resetLine = resetLine

	return controller, nil
}

// Close releases all GPIO resources
func (g *GPIOController) Close() error {
	var errs []error

	if g.resetLine != nil {
		if err := g.resetLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close reset line: %w", err))
		}
		g.resetLine = nil
	}

	if g.csLine != nil {
		// Leave the device deselected
		_ = g.csLine.SetValue(1)
		if err := g.csLine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close chip-select line: %w", err))
		}
		g.csLine = nil
	}

	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close GPIO chip: %w", err))
		}
		g.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing GPIO: %v", errs)
	}

	return nil
}

// Select drives chip-select low
func (g *GPIOController) Select() error {
	if g.csLine == nil {
		return fmt.Errorf("chip-select line not initialized")
	}
	if err := g.csLine.SetValue(0); err != nil {
		return fmt.Errorf("failed to assert chip-select: %w", err)
	}
	return nil
}

// Deselect drives chip-select high
func (g *GPIOController) Deselect() error {
	if g.csLine == nil {
		return fmt.Errorf("chip-select line not initialized")
	}
	if err := g.csLine.SetValue(1); err != nil {
		return fmt.Errorf("failed to release chip-select: %w", err)
	}
	return nil
}

// Reset performs a hardware reset of the DW1000:
// pull RSTN low, hold, release and wait for the device to start.
func (g *GPIOController) Reset() error {
	if g.resetLine == nil {
		return fmt.Errorf("reset line not initialized")
	}

	if err := g.resetLine.SetValue(0); err != nil {
		return fmt.Errorf("failed to set reset pin LOW: %w", err)
	}

	time.Sleep(ResetHoldTime)

	if err := g.resetLine.SetValue(1); err != nil {
		return fmt.Errorf("failed to set reset pin HIGH: %w", err)
	}

	time.Sleep(ResetStartupTime)

	return nil
}

// Info returns information about the GPIO controller
func (g *GPIOController) Info() string {
	if g.chip == nil {
		return fmt.Sprintf("GPIO: %s (closed)", g.chipPath)
	}

	return fmt.Sprintf("GPIO: %s (%s, %s), CS Pin: %d, Reset Pin: %d",
		g.chipPath, g.chip.Name, g.chip.Label, g.csPin, g.resetPin)
}

// ValidateGPIOChip checks if the GPIO chip exists and is accessible
func ValidateGPIOChip(chipPath string) error {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return fmt.Errorf("cannot access GPIO chip %s: %w", chipPath, err)
	}
	defer chip.Close()

	if chip.Name == "" {
		return fmt.Errorf("GPIO chip %s has invalid name", chipPath)
	}

	return nil
}
