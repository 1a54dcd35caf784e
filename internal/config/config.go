// Package config loads the try-on server configuration from a YAML file and
// TRYON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Assets   AssetConfig    `yaml:"assets"`
	Render   RenderConfig   `yaml:"render"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"` // empty means search for a web directory
	Tray      bool   `yaml:"tray"`
}

type DataConfig struct {
	Dir      string `yaml:"dir"`       // defaults to ~/.tryon
	DBPath   string `yaml:"db_path"`   // defaults to <dir>/tryon.db
	MediaDir string `yaml:"media_dir"` // resolves catalog paths such as /media/ring.png
}

type CameraConfig struct {
	DeviceID        int `yaml:"device_id"`
	FPS             int `yaml:"fps"`
	MaxReadFailures int `yaml:"max_read_failures"`
}

type DetectorConfig struct {
	PythonPath      string  `yaml:"python_path"`
	ScriptPath      string  `yaml:"script_path"`
	MaxHands        int     `yaml:"max_hands"`
	MinConfidence   float64 `yaml:"min_confidence"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`
}

type AssetConfig struct {
	MaxDimension int `yaml:"max_dimension"`
	CacheSize    int `yaml:"cache_size"`
}

type RenderConfig struct {
	FrameIntervalMS  int `yaml:"frame_interval_ms"`
	StreamIntervalMS int `yaml:"stream_interval_ms"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Camera: CameraConfig{
			FPS:             15,
			MaxReadFailures: 30,
		},
		Detector: DetectorConfig{
			MaxHands:        2,
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
		},
		Assets: AssetConfig{
			MaxDimension: 1024,
			CacheSize:    32,
		},
		Render: RenderConfig{
			FrameIntervalMS:  33,
			StreamIntervalMS: 66,
		},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envInt reads an environment variable and parses it as an integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}

func (c *Config) applyEnv() {
	c.Server.Addr = envString("TRYON_ADDR", c.Server.Addr)
	c.Server.StaticDir = envString("TRYON_STATIC_DIR", c.Server.StaticDir)
	c.Server.Tray = envBool("TRYON_TRAY", c.Server.Tray)

	c.Data.Dir = envString("TRYON_DATA_DIR", c.Data.Dir)
	c.Data.DBPath = envString("TRYON_DB_PATH", c.Data.DBPath)
	c.Data.MediaDir = envString("TRYON_MEDIA_DIR", c.Data.MediaDir)

	c.Camera.DeviceID = envInt("TRYON_CAMERA_ID", c.Camera.DeviceID)
	c.Camera.FPS = envInt("TRYON_CAMERA_FPS", c.Camera.FPS)

	c.Detector.PythonPath = envString("TRYON_PYTHON", c.Detector.PythonPath)
	c.Detector.ScriptPath = envString("TRYON_MEDIAPIPE_SCRIPT", c.Detector.ScriptPath)
	c.Detector.MaxHands = envInt("TRYON_MAX_HANDS", c.Detector.MaxHands)
	c.Detector.MinConfidence = envFloat("TRYON_MIN_CONFIDENCE", c.Detector.MinConfidence)

	c.Assets.MaxDimension = envInt("TRYON_ASSET_MAX_DIM", c.Assets.MaxDimension)
	c.Assets.CacheSize = envInt("TRYON_ASSET_CACHE", c.Assets.CacheSize)
}

// Validate fills derived paths and clamps out-of-range values. It fails
// only when no usable value can be derived.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address is required")
	}

	if c.Data.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve data directory: %w", err)
		}
		c.Data.Dir = filepath.Join(home, ".tryon")
	}
	if c.Data.DBPath == "" {
		c.Data.DBPath = filepath.Join(c.Data.Dir, "tryon.db")
	}
	if c.Data.MediaDir == "" {
		c.Data.MediaDir = c.Data.Dir
	}

	defaults := DefaultConfig()

	if c.Camera.FPS <= 0 {
		c.Camera.FPS = defaults.Camera.FPS
	}
	if c.Camera.MaxReadFailures <= 0 {
		c.Camera.MaxReadFailures = defaults.Camera.MaxReadFailures
	}
	if c.Detector.MaxHands < 1 {
		c.Detector.MaxHands = 1
	}
	c.Detector.MinConfidence = clamp01(c.Detector.MinConfidence)
	c.Detector.MinTrackingConf = clamp01(c.Detector.MinTrackingConf)

	if c.Assets.MaxDimension <= 0 {
		c.Assets.MaxDimension = defaults.Assets.MaxDimension
	}
	if c.Assets.CacheSize <= 0 {
		c.Assets.CacheSize = defaults.Assets.CacheSize
	}
	if c.Render.FrameIntervalMS <= 0 {
		c.Render.FrameIntervalMS = defaults.Render.FrameIntervalMS
	}
	if c.Render.StreamIntervalMS <= 0 {
		c.Render.StreamIntervalMS = defaults.Render.StreamIntervalMS
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
