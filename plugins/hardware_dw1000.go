package plugins

import (
	"fmt"
	"log/slog"

	"github.com/linht/dw1000-manager/bustrace"
	"github.com/linht/dw1000-manager/dw1000"
)

// DW1000 identification tag in the upper half of DEV_ID
const DeviceIDTag = 0xDECA

// DW1000Controller owns the hardware behind one dw1000.Device
type DW1000Controller struct {
	spi         *SPIDevice
	gpio        *GPIOController
	trace       *bustrace.FileRecorder
	bus         dw1000.Bus
	dev         *dw1000.Device
	initialized bool
}

// NewDW1000Controller opens SPI and GPIO and builds a device on top of them
func NewDW1000Controller(cfg DW1000Config, logger *slog.Logger) (*DW1000Controller, error) {
	spi, err := NewSPIDevice(cfg.SPIDevice, cfg.SPISpeed)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SPI: %w", err)
	}

	gpio, err := NewGPIOController(cfg.GPIOChip, cfg.CSPin, cfg.ResetPin)
	if err != nil {
		spi.Close()
		return nil, fmt.Errorf("failed to initialize GPIO: %w", err)
	}

	var bus dw1000.Bus = NewSPIBus(gpio, spi)

	var trace *bustrace.FileRecorder
	if cfg.TraceFile != "" {
		trace, err = bustrace.NewFileRecorder(cfg.TraceFile)
		if err != nil {
			gpio.Close()
			spi.Close()
			return nil, fmt.Errorf("failed to open bus trace %s: %w", cfg.TraceFile, err)
		}
		bus = bustrace.NewBus(bus, trace)
	}

	c := NewDW1000ControllerWithBus(bus, logger)
	c.spi = spi
	c.gpio = gpio
	c.trace = trace
	return c, nil
}

// NewDW1000ControllerWithBus wraps an already open bus. Reset is not
// available on such a controller.
func NewDW1000ControllerWithBus(bus dw1000.Bus, logger *slog.Logger) *DW1000Controller {
	return &DW1000Controller{
		bus:         bus,
		dev:         dw1000.New(bus, dw1000.WithLogger(logger)),
		initialized: true,
	}
}

// Close releases all resources
func (c *DW1000Controller) Close() error {
	var errs []error

	if c.trace != nil {
		if err := c.trace.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace close error: %w", err))
		}
	}

	if c.spi != nil {
		if err := c.spi.Close(); err != nil {
			errs = append(errs, fmt.Errorf("SPI close error: %w", err))
		}
	}

	if c.gpio != nil {
		if err := c.gpio.Close(); err != nil {
			errs = append(errs, fmt.Errorf("GPIO close error: %w", err))
		}
	}

	c.initialized = false

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// Device returns the register-level driver
func (c *DW1000Controller) Device() *dw1000.Device {
	return c.dev
}

// Reset performs a hardware reset
func (c *DW1000Controller) Reset() error {
	if !c.initialized {
		return fmt.Errorf("controller not initialized")
	}
	if c.gpio == nil {
		return fmt.Errorf("reset line not available")
	}

	return c.gpio.Reset()
}

// Initialize verifies communication by probing the device ID
func (c *DW1000Controller) Initialize() (uint32, error) {
	if !c.initialized {
		return 0, fmt.Errorf("controller not initialized")
	}

	id := c.dev.ReadDeviceID()
	if id == dw1000.DeviceIDUnknown {
		return id, fmt.Errorf("device not responding on SPI")
	}
	if id>>16 != DeviceIDTag {
		return id, fmt.Errorf("unexpected device ID 0x%08X", id)
	}

	return id, nil
}

// DeviceIDString returns a human-readable form of a DEV_ID value
func DeviceIDString(id uint32) string {
	if id == dw1000.DeviceIDUnknown {
		return "unknown"
	}

	model := (id >> 8) & 0xFF
	version := (id >> 4) & 0x0F
	revision := id & 0x0F

	return fmt.Sprintf("tag 0x%04X model 0x%02X ver %d rev %d", id>>16, model, version, revision)
}

// Info returns information about the controller
func (c *DW1000Controller) Info() map[string]interface{} {
	info := map[string]interface{}{
		"initialized": c.initialized,
	}

	if c.spi != nil {
		info["spi"] = c.spi.DeviceInfo()
	}

	if c.gpio != nil {
		info["gpio"] = c.gpio.Info()
	}

	if tb, ok := c.bus.(*bustrace.Bus); ok {
		info["trace_session"] = tb.SessionID()
	}

	return info
}
