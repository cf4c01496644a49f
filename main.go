package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/linht/dw1000-manager/console"
	"github.com/linht/dw1000-manager/plugins"
)

// Configuration constants
const (
	// Server timeouts
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 30 * time.Second

	// Largest body is a hex encoded 1024 byte frame
	MaxBodySize = 64 * 1024
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	consoleMode := flag.Bool("console", false, "run the interactive register console instead of the server")
	tracePath := flag.String("dump-trace", "", "print a bus trace file and exit")
	traceErrors := flag.Bool("trace-errors", false, "with -dump-trace, print failed primitives only")
	flag.Parse()

	if *tracePath != "" {
		if err := dumpTrace(os.Stdout, *tracePath, *traceErrors); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// Load configuration
	config, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err, "path", *configPath)
		os.Exit(1)
	}

	// Setup structured logging
	logger, logCloser, err := newLogger(config.Log, os.Stdout)
	if err != nil {
		slog.Error("Invalid log configuration", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	slog.Info("Configuration loaded", "path", *configPath)

	if *consoleMode {
		if err := runConsole(config, logger); err != nil {
			slog.Error("Console failed", "error", err)
			os.Exit(1)
		}
		return
	}

	auth, err := NewAuthenticator(config.Auth.PasswordHash, config.Auth.TokenSecret)
	if err != nil {
		slog.Error("Failed to set up authentication", "error", err)
		os.Exit(1)
	}
	if config.Auth.TokenSecret == "" {
		slog.Warn("No token secret configured, sessions will not survive a restart")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  ServerReadTimeout,
		WriteTimeout: ServerWriteTimeout,
		AppName:      "DW1000 Manager",
		BodyLimit:    MaxBodySize,
	})

	// Add logger middleware
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// Login/logout endpoints (no auth required for login)
	app.Post("/login", auth.handleLogin)
	app.Post("/logout", auth.handleLogout)

	// Auth middleware for all other API routes
	app.Use("/api", auth.middleware)

	// Initialize and register plugins
	loaded, err := initPlugins(app, config)
	if err != nil {
		slog.Error("Failed to initialize plugins", "error", err)
		os.Exit(1)
	}

	addr := config.Server.Host + ":" + config.Server.Port

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		slog.Info("Shutting down server...")
		for _, p := range loaded {
			if err := p.Shutdown(); err != nil {
				slog.Error("Plugin shutdown error", "name", p.Name(), "error", err)
			}
		}
		if err := app.ShutdownWithContext(context.Background()); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	}()

	slog.Info("Starting DW1000 Manager", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err, "address", addr)
		os.Exit(1)
	}
}

func initPlugins(app *fiber.App, config Config) ([]plugins.Plugin, error) {
	var loaded []plugins.Plugin

	for _, name := range config.Plugins {
		factory, exists := plugins.Get(name)
		if !exists {
			slog.Warn("Unknown plugin", "name", name, "available", plugins.Names())
			continue
		}

		// Get plugin-specific config
		var pluginConfig interface{}
		switch name {
		case "hardware":
			pluginConfig = config.Hardware
		}

		plugin, err := factory(pluginConfig)
		if err != nil {
			return loaded, fmt.Errorf("plugin %s: %w", name, err)
		}

		plugin.RegisterRoutes(app)
		loaded = append(loaded, plugin)
		slog.Info("Plugin loaded", "name", plugin.Name())
	}
	return loaded, nil
}

func runConsole(config Config, logger *slog.Logger) error {
	var profiles []plugins.Profile
	if config.Hardware.ProfilesFile != "" {
		var err error
		profiles, err = plugins.LoadProfiles(config.Hardware.ProfilesFile)
		if err != nil {
			return err
		}
	}

	ctrl, err := plugins.NewDW1000Controller(config.Hardware.DW1000Config, logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := console.New(ctrl.Device(), profiles)
	return c.Run(ctx, cancel)
}
