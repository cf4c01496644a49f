package plugins

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/linht/dw1000-manager/dw1000"
)

// Hardware defaults
const (
	DefaultSPIDevice       = "/dev/spidev0.0"
	DefaultSPISpeed        = 2000000 // 2 MHz, below the 3 MHz limit before PLL lock
	DefaultGPIOChip        = "gpiochip0"
	DefaultCSPin           = 8
	DefaultResetPin        = 25
	DefaultMonitorInterval = 500 * time.Millisecond
	MinMonitorInterval     = 50 * time.Millisecond
)

// DW1000Config holds the wiring of one DW1000 module
type DW1000Config struct {
	SPIDevice string `yaml:"spi_device" json:"spi_device"`
	SPISpeed  uint32 `yaml:"spi_speed" json:"spi_speed"`
	GPIOChip  string `yaml:"gpio_chip" json:"gpio_chip"`
	CSPin     int    `yaml:"cs_pin" json:"cs_pin"`
	ResetPin  int    `yaml:"reset_pin" json:"reset_pin"`
	TraceFile string `yaml:"trace_file" json:"trace_file,omitempty"`
}

// HardwareConfig holds hardware plugin configuration
type HardwareConfig struct {
	DW1000Config `yaml:",inline"`
	ProfilesFile string `yaml:"profiles_file" json:"profiles_file,omitempty"`

	// Set from the monitor section
	MonitorInterval time.Duration `yaml:"-" json:"monitor_interval"`
}

// ApplyDefaults fills unset fields
func (c *HardwareConfig) ApplyDefaults() {
	if c.SPIDevice == "" {
		c.SPIDevice = DefaultSPIDevice
	}
	if c.SPISpeed == 0 {
		c.SPISpeed = DefaultSPISpeed
	}
	if c.GPIOChip == "" {
		c.GPIOChip = DefaultGPIOChip
	}
	if c.CSPin == 0 {
		c.CSPin = DefaultCSPin
	}
	if c.ResetPin == 0 {
		c.ResetPin = DefaultResetPin
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
}

// HardwarePlugin provides DW1000 register access over HTTP.
// Uses transient connections - opens and releases the hardware for each
// operation. All operations share one lock so bus transactions never
// interleave.
type HardwarePlugin struct {
	config   HardwareConfig
	logger   *slog.Logger
	open     func() (*DW1000Controller, error)
	mu       sync.Mutex
	profiles []Profile
	monitor  *Monitor
}

// NewHardwarePlugin creates a new hardware plugin instance
func NewHardwarePlugin(cfg HardwareConfig) (*HardwarePlugin, error) {
	cfg.ApplyDefaults()

	p := &HardwarePlugin{
		config: cfg,
		logger: slog.Default().With("plugin", "hardware"),
	}
	p.open = func() (*DW1000Controller, error) {
		return NewDW1000Controller(p.config.DW1000Config, p.logger)
	}
	p.monitor = NewMonitor(p, cfg.MonitorInterval)

	if cfg.ProfilesFile != "" {
		profiles, err := LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			return nil, err
		}
		p.profiles = profiles
	}

	slog.Info("Hardware plugin initializing",
		"spi_device", cfg.SPIDevice,
		"spi_speed", cfg.SPISpeed,
		"gpio_chip", cfg.GPIOChip,
		"cs_pin", cfg.CSPin,
		"reset_pin", cfg.ResetPin,
		"profiles", len(p.profiles))

	return p, nil
}

// SetControllerFactory replaces how the plugin opens the hardware
func (p *HardwarePlugin) SetControllerFactory(open func() (*DW1000Controller, error)) {
	p.open = open
}

// SetProfiles replaces the loaded register profiles
func (p *HardwarePlugin) SetProfiles(profiles []Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = profiles
}

// Name returns the plugin identifier
func (p *HardwarePlugin) Name() string {
	return "hardware"
}

// RegisterRoutes adds the plugin's HTTP routes
func (p *HardwarePlugin) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/dw1000")

	// Device control endpoints
	api.Post("/init", p.handleInit)
	api.Post("/reset", p.handleReset)
	api.Get("/info", p.handleInfo)

	// Register access endpoints
	api.Get("/registers/map", p.handleRegisterMap)
	api.Get("/registers", p.handleReadAllRegisters)
	api.Get("/register/:addr", p.handleReadRegister)
	api.Post("/register/:addr", p.handleWriteRegister)

	// Identifier endpoints
	api.Get("/eui", p.handleGetEUI)
	api.Post("/eui", p.handleSetEUI)

	// Transmit endpoints
	api.Post("/tx/enable", p.handleTxEnable)
	api.Post("/tx/disable", p.handleTxDisable)
	api.Post("/tx/send", p.handleTxSend)

	// Register profiles
	api.Get("/profiles", p.handleListProfiles)
	api.Get("/profiles/file", p.handleLoadProfilesFile)
	api.Put("/profiles/file", p.handleSaveProfilesFile)
	api.Post("/profiles/:name/apply", p.handleApplyProfile)

	// Live register monitor
	api.Get("/monitor/ws", websocket.New(p.monitor.handleWebSocket))

	slog.Info("Hardware plugin routes registered")
}

// Shutdown performs cleanup
func (p *HardwarePlugin) Shutdown() error {
	p.monitor.CloseAll()
	return nil
}

// withController executes a function with a temporary controller while
// holding the bus lock
func (p *HardwarePlugin) withController(fn func(*DW1000Controller) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	controller, err := p.open()
	if err != nil {
		return err
	}
	defer controller.Close()

	return fn(controller)
}

// Device control handlers

func (p *HardwarePlugin) handleInit(c *fiber.Ctx) error {
	var id uint32
	var info map[string]interface{}

	err := p.withController(func(ctrl *DW1000Controller) error {
		var err error
		id, err = ctrl.Initialize()
		info = ctrl.Info()
		return err
	})

	if err != nil {
		slog.Error("Failed to initialize hardware", "error", err)
		return SendDriverError(c, err)
	}

	slog.Info("Hardware connection verified", "device_id", fmt.Sprintf("0x%08X", id))
	return SendSuccess(c, map[string]interface{}{
		"device_id": fmt.Sprintf("0x%08X", id),
		"version":   DeviceIDString(id),
		"info":      info,
	}, "Hardware connection verified")
}

func (p *HardwarePlugin) handleReset(c *fiber.Ctx) error {
	err := p.withController(func(ctrl *DW1000Controller) error {
		return ctrl.Reset()
	})

	if err != nil {
		slog.Error("Failed to reset hardware", "error", err)
		return SendDriverError(c, err)
	}

	slog.Info("Hardware reset successful")
	return SendSuccess(c, nil, "Hardware reset successful")
}

func (p *HardwarePlugin) handleInfo(c *fiber.Ctx) error {
	availability := map[string]string{"spi": "ok", "gpio": "ok"}

	// Probing opens the devices, so it must not overlap a transaction
	p.mu.Lock()
	if err := ValidateSPIDevice(p.config.SPIDevice); err != nil {
		availability["spi"] = err.Error()
	}
	if err := ValidateGPIOChip(p.config.GPIOChip); err != nil {
		availability["gpio"] = err.Error()
	}
	profiles := len(p.profiles)
	p.mu.Unlock()

	return SendSuccess(c, map[string]interface{}{
		"config":       p.config,
		"mode":         "transient",
		"availability": availability,
		"profiles":     profiles,
		"monitors":     p.monitor.Count(),
	}, "")
}

// Register access handlers

func (p *HardwarePlugin) handleRegisterMap(c *fiber.Ctx) error {
	rows := registerMapRows()
	return SendSuccess(c, map[string]interface{}{
		"registers": rows,
		"count":     len(rows),
	}, "")
}

func (p *HardwarePlugin) handleReadRegister(c *fiber.Ctx) error {
	addr, err := ParseRegister(c.Params("addr"))
	if err != nil {
		return SendErrorMessage(c, 400, "Invalid register address")
	}

	// Default to the full register
	length := 1
	if r, ok := dw1000.LookupRegister(addr); ok {
		length = r.MaxLength
	}
	length = c.QueryInt("length", length)

	var data []byte
	err = p.withController(func(ctrl *DW1000Controller) error {
		var err error
		data, err = ctrl.Device().ReadRegister(addr, length)
		return err
	})

	if err != nil {
		return SendDriverError(c, err)
	}

	desc := "Unknown register"
	if r, ok := dw1000.LookupRegister(addr); ok {
		desc = r.Description
	}

	return SendSuccess(c, map[string]interface{}{
		"address":     fmt.Sprintf("0x%02X", addr),
		"name":        dw1000.RegisterName(addr),
		"length":      len(data),
		"value":       fmt.Sprintf("%x", data),
		"description": desc,
	}, "")
}

func (p *HardwarePlugin) handleWriteRegister(c *fiber.Ctx) error {
	addr, err := ParseRegister(c.Params("addr"))
	if err != nil {
		return SendErrorMessage(c, 400, "Invalid register address")
	}

	var req struct {
		Data string `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	data, err := ParseHexBytes(req.Data)
	if err != nil {
		return SendError(c, 400, err)
	}

	err = p.withController(func(ctrl *DW1000Controller) error {
		return ctrl.Device().WriteRegister(addr, data)
	})

	if err != nil {
		return SendDriverError(c, err)
	}

	slog.Info("Register write", "register", dw1000.RegisterName(addr), "length", len(data))
	return SendSuccess(c, nil, "Register written successfully")
}

func (p *HardwarePlugin) handleReadAllRegisters(c *fiber.Ctx) error {
	var snap *dw1000.Snapshot

	err := p.withController(func(ctrl *DW1000Controller) error {
		var err error
		snap, err = ctrl.Device().ReadAllRegisters()
		return err
	})

	if err != nil {
		return SendDriverError(c, err)
	}

	entries := snap.Entries()
	return SendSuccess(c, map[string]interface{}{
		"device_id": fmt.Sprintf("0x%08X", snap.DevID),
		"registers": entries,
		"count":     len(entries),
	}, "")
}

// Identifier handlers

func (p *HardwarePlugin) handleGetEUI(c *fiber.Ctx) error {
	var eui dw1000.EUI

	err := p.withController(func(ctrl *DW1000Controller) error {
		var err error
		eui, err = ctrl.Device().ReadEUI()
		return err
	})

	if err != nil {
		return SendDriverError(c, err)
	}

	return SendSuccess(c, map[string]interface{}{
		"eui": fmt.Sprintf("%x", eui[:]),
	}, "")
}

func (p *HardwarePlugin) handleSetEUI(c *fiber.Ctx) error {
	var req struct {
		EUI    string `json:"eui"`
		Verify bool   `json:"verify"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	eui, err := ParseEUI(req.EUI)
	if err != nil {
		return SendError(c, 400, err)
	}

	err = p.withController(func(ctrl *DW1000Controller) error {
		if req.Verify {
			return ctrl.Device().WriteAndVerifyEUI(eui)
		}
		return ctrl.Device().WriteEUI(eui)
	})

	if err != nil {
		slog.Warn("EUI write failed", "verify", req.Verify, "error", err)
		return SendDriverError(c, err)
	}

	slog.Info("EUI written", "eui", fmt.Sprintf("%x", eui[:]), "verified", req.Verify)
	return SendSuccess(c, map[string]interface{}{
		"eui":      fmt.Sprintf("%x", eui[:]),
		"verified": req.Verify,
	}, "EUI written successfully")
}

// Transmit handlers

func (p *HardwarePlugin) handleTxEnable(c *fiber.Ctx) error {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	mode, err := dw1000.ParseTxMode(req.Mode)
	if err != nil {
		return SendErrorMessage(c, 400, "Invalid mode. Use: standard, delayed or response")
	}

	err = p.withController(func(ctrl *DW1000Controller) error {
		return ctrl.Device().EnableTxMode(mode)
	})

	if err != nil {
		slog.Error("Transmit enable failed, device may be partially configured", "mode", mode.String(), "error", err)
		return SendDriverError(c, err)
	}

	slog.Info("Transmit mode enabled", "mode", mode.String())
	return SendSuccess(c, map[string]interface{}{
		"mode": mode.String(),
	}, "Transmit mode enabled")
}

func (p *HardwarePlugin) handleTxDisable(c *fiber.Ctx) error {
	err := p.withController(func(ctrl *DW1000Controller) error {
		return ctrl.Device().DisableTxMode()
	})

	if err != nil {
		return SendDriverError(c, err)
	}

	slog.Info("Transmit mode disabled")
	return SendSuccess(c, nil, "Transmit mode disabled")
}

func (p *HardwarePlugin) handleTxSend(c *fiber.Ctx) error {
	var req struct {
		Data string `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return SendErrorMessage(c, 400, "Invalid request body")
	}

	frame, err := ParseHexBytes(req.Data)
	if err != nil {
		return SendError(c, 400, err)
	}

	err = p.withController(func(ctrl *DW1000Controller) error {
		return ctrl.Device().SendFrame(frame)
	})

	if err != nil {
		return SendDriverError(c, err)
	}

	slog.Info("Frame sent", "length", len(frame))
	return SendSuccess(c, map[string]interface{}{
		"length": len(frame),
	}, "Frame queued for transmission")
}

// Profile handlers

func (p *HardwarePlugin) handleListProfiles(c *fiber.Ctx) error {
	p.mu.Lock()
	profiles := append([]Profile(nil), p.profiles...)
	p.mu.Unlock()

	return SendSuccess(c, map[string]interface{}{
		"profiles": profiles,
		"count":    len(profiles),
	}, "")
}

func (p *HardwarePlugin) handleApplyProfile(c *fiber.Ctx) error {
	name := c.Params("name")

	var applied int
	err := p.withController(func(ctrl *DW1000Controller) error {
		profile, ok := FindProfile(p.profiles, name)
		if !ok {
			return errProfileNotFound
		}
		var err error
		applied, err = ApplyProfile(ctrl.Device(), profile)
		return err
	})

	if errors.Is(err, errProfileNotFound) {
		return SendErrorMessage(c, 404, fmt.Sprintf("Unknown profile %q", name))
	}
	if err != nil {
		slog.Warn("Profile apply aborted", "profile", name, "applied", applied, "error", err)
		return SendDriverError(c, err)
	}

	slog.Info("Profile applied", "profile", name, "writes", applied)
	return SendSuccess(c, map[string]interface{}{
		"profile": name,
		"writes":  applied,
	}, fmt.Sprintf("Applied %d register writes", applied))
}

var errProfileNotFound = errors.New("profile not found")

// Register the plugin
func init() {
	Register("hardware", func(config interface{}) (Plugin, error) {
		switch cfg := config.(type) {
		case HardwareConfig:
			return NewHardwarePlugin(cfg)
		case *HardwareConfig:
			return NewHardwarePlugin(*cfg)
		case nil:
			return NewHardwarePlugin(HardwareConfig{})
		default:
			return nil, fmt.Errorf("invalid config for hardware plugin: %T", config)
		}
	})
}
