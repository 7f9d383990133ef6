// Package config holds the runtime configuration and the layers that fill it:
// defaults, environment (optionally from a .env file) and stored settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ayusman/nayana/internal/detector"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "NAYANA_"

// Config is the full application configuration.
type Config struct {
	CameraID int `validate:"gte=0"`

	// ScreenWidth and ScreenHeight override the detected display size when
	// both are positive.
	ScreenWidth  int `validate:"gte=0"`
	ScreenHeight int `validate:"gte=0"`

	HistoryLength int           `validate:"gte=1,lte=1000"`
	SmoothFactor  float64       `validate:"gt=0,lte=1"`
	YawFOV        float64       `validate:"gt=0,lt=180"`
	PitchFOV      float64       `validate:"gt=0,lt=180"`
	EdgeMargin    int           `validate:"gte=0"`
	PollInterval  time.Duration `validate:"gte=1ms"`
	Debounce      time.Duration `validate:"gte=0"`

	KeyPoints detector.KeyPointIDs

	// IdentityURL is the face-identity websocket; empty disables lookups.
	IdentityURL      string        `validate:"omitempty,url"`
	IdentityInterval time.Duration `validate:"gte=0"`

	DataDir  string `validate:"required"`
	HTTPAddr string
	Preview  bool
	Tray     bool

	// ToggleKey is the global hotkey that toggles cursor control from any
	// window; empty disables the keyboard hook.
	ToggleKey string `validate:"omitempty,alphanum"`

	LogLevel string `validate:"omitempty,oneof=debug info warn warning error"`
	LogFile  string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CameraID:         0,
		HistoryLength:    20,
		SmoothFactor:     0.2,
		YawFOV:           20,
		PitchFOV:         10,
		EdgeMargin:       10,
		PollInterval:     10 * time.Millisecond,
		Debounce:         300 * time.Millisecond,
		KeyPoints:        detector.DefaultKeyPointIDs(),
		IdentityURL:      "",
		IdentityInterval: 2 * time.Second,
		DataDir:          defaultDataDir(),
		HTTPAddr:         "127.0.0.1:8080",
		Tray:             true,
		ToggleKey:        "f7",
		LogLevel:         "info",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nayana"
	}
	return filepath.Join(home, ".nayana")
}

// DBPath is the SQLite database location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "nayana.db")
}

var validate = validator.New()

// Validate checks field ranges and the landmark ids.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.KeyPoints.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadEnv loads the optional .env file at path (missing files are ignored)
// and applies every NAYANA_* variable on top of c.
func (c *Config) LoadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	values := make(map[string]string)
	for _, key := range Keys() {
		if v, ok := os.LookupEnv(EnvPrefix + envName(key)); ok {
			values[key] = v
		}
	}
	return c.ApplySettings(values)
}
