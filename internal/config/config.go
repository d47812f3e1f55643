// Package config provides configuration management for the Framecast Agent.
// Defaults are overlaid first by an optional TOML config file and then by
// environment variables, so FRAMECAST_* variables always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

const (
	// Default values
	DefaultPort         = 8793
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".framecast"
	DefaultCanvasWidth  = 960
	DefaultCanvasHeight = 540
	DefaultFrameRate    = 30

	// Environment variable names
	EnvPort         = "FRAMECAST_PORT"
	EnvLogLevel     = "FRAMECAST_LOG_LEVEL"
	EnvDataDir      = "FRAMECAST_DATA_DIR"
	EnvConfigFile   = "FRAMECAST_CONFIG"
	EnvCaptureMode  = "FRAMECAST_CAPTURE_MODE"
	EnvPlannerURL   = "FRAMECAST_PLANNER_URL"
	EnvPlannerToken = "FRAMECAST_PLANNER_TOKEN"
	EnvHeadless     = "FRAMECAST_HEADLESS"

	// Database filename
	DBFilename = "framecast.db"

	// Capture modes
	CaptureModeAuto   = "auto"
	CaptureModeManual = "manual"
	CaptureModeTimed  = "timed"

	configFilename = "config.toml"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportsDir() string
	PlansInboxDir() string
	CanvasWidth() int
	CanvasHeight() int
	FrameRate() int
	CaptureMode() string
	PlannerBaseURL() string
	PlannerToken() string
	Headless() bool
}

// fileConfig mirrors the TOML config file layout.
type fileConfig struct {
	Port         int    `toml:"port"`
	LogLevel     string `toml:"log_level"`
	DataDir      string `toml:"data_dir"`
	CanvasWidth  int    `toml:"canvas_width"`
	CanvasHeight int    `toml:"canvas_height"`
	FrameRate    int    `toml:"frame_rate"`
	CaptureMode  string `toml:"capture_mode"`
	PlannerURL   string `toml:"planner_url"`
	PlannerToken string `toml:"planner_token"`
	Headless     bool   `toml:"headless"`
}

// EnvConfig reads configuration from the config file and environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	canvasWidth  int
	canvasHeight int
	frameRate    int
	captureMode  string
	plannerURL   string
	plannerToken string
	headless     bool
}

// New creates a new EnvConfig with defaults, config file values, and
// environment variable overrides applied in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		dataDir:      defaultDataDir(),
		canvasWidth:  DefaultCanvasWidth,
		canvasHeight: DefaultCanvasHeight,
		frameRate:    DefaultFrameRate,
		captureMode:  CaptureModeAuto,
	}

	if err := cfg.applyFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	switch cfg.captureMode {
	case CaptureModeAuto, CaptureModeManual, CaptureModeTimed:
	default:
		return nil, fmt.Errorf("invalid capture mode %q: must be auto, manual, or timed", cfg.captureMode)
	}
	if cfg.canvasWidth < 16 || cfg.canvasHeight < 16 {
		return nil, fmt.Errorf("canvas dimensions %dx%d too small", cfg.canvasWidth, cfg.canvasHeight)
	}
	if cfg.frameRate < 1 {
		return nil, fmt.Errorf("invalid frame rate %d", cfg.frameRate)
	}

	return cfg, nil
}

func (c *EnvConfig) applyFile() error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(c.dataDir, configFilename)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.CanvasWidth != 0 {
		c.canvasWidth = fc.CanvasWidth
	}
	if fc.CanvasHeight != 0 {
		c.canvasHeight = fc.CanvasHeight
	}
	if fc.FrameRate != 0 {
		c.frameRate = fc.FrameRate
	}
	if fc.CaptureMode != "" {
		c.captureMode = fc.CaptureMode
	}
	if fc.PlannerURL != "" {
		c.plannerURL = fc.PlannerURL
	}
	if fc.PlannerToken != "" {
		c.plannerToken = fc.PlannerToken
	}
	if fc.Headless {
		c.headless = true
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}
	if cm := os.Getenv(EnvCaptureMode); cm != "" {
		c.captureMode = cm
	}
	if u := os.Getenv(EnvPlannerURL); u != "" {
		c.plannerURL = u
	}
	if t := os.Getenv(EnvPlannerToken); t != "" {
		c.plannerToken = t
	}
	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportsDir returns the directory where export artifacts are written
func (c *EnvConfig) ExportsDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// PlansInboxDir returns the directory watched for dropped plan JSON files
func (c *EnvConfig) PlansInboxDir() string {
	return filepath.Join(c.dataDir, "plans")
}

// CanvasWidth returns the render surface width in pixels
func (c *EnvConfig) CanvasWidth() int {
	return c.canvasWidth
}

// CanvasHeight returns the render surface height in pixels
func (c *EnvConfig) CanvasHeight() int {
	return c.canvasHeight
}

// FrameRate returns the export frame rate in frames per second
func (c *EnvConfig) FrameRate() int {
	return c.frameRate
}

// CaptureMode returns the capture strategy selection (auto, manual, timed)
func (c *EnvConfig) CaptureMode() string {
	return c.captureMode
}

// PlannerBaseURL returns the remote planning service URL, if configured
func (c *EnvConfig) PlannerBaseURL() string {
	return c.plannerURL
}

// PlannerToken returns the bearer token for the remote planning service
func (c *EnvConfig) PlannerToken() string {
	return c.plannerToken
}

// Headless reports whether the system tray should be disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
