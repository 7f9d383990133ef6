package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownSetting is returned for keys that do not name a setting.
type ErrUnknownSetting struct {
	Key string
}

func (e *ErrUnknownSetting) Error() string {
	return fmt.Sprintf("unknown setting %q", e.Key)
}

// setting binds a string key to a Config field.
type setting struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var settings = map[string]setting{
	"camera_id":         intSetting(func(c *Config) *int { return &c.CameraID }),
	"screen_width":      intSetting(func(c *Config) *int { return &c.ScreenWidth }),
	"screen_height":     intSetting(func(c *Config) *int { return &c.ScreenHeight }),
	"history_length":    intSetting(func(c *Config) *int { return &c.HistoryLength }),
	"smooth_factor":     floatSetting(func(c *Config) *float64 { return &c.SmoothFactor }),
	"yaw_fov":           floatSetting(func(c *Config) *float64 { return &c.YawFOV }),
	"pitch_fov":         floatSetting(func(c *Config) *float64 { return &c.PitchFOV }),
	"edge_margin":       intSetting(func(c *Config) *int { return &c.EdgeMargin }),
	"poll_interval":     durationSetting(func(c *Config) *time.Duration { return &c.PollInterval }),
	"debounce":          durationSetting(func(c *Config) *time.Duration { return &c.Debounce }),
	"keypoint_left":     intSetting(func(c *Config) *int { return &c.KeyPoints.Left }),
	"keypoint_right":    intSetting(func(c *Config) *int { return &c.KeyPoints.Right }),
	"keypoint_top":      intSetting(func(c *Config) *int { return &c.KeyPoints.Top }),
	"keypoint_bottom":   intSetting(func(c *Config) *int { return &c.KeyPoints.Bottom }),
	"keypoint_front":    intSetting(func(c *Config) *int { return &c.KeyPoints.Front }),
	"identity_url":      stringSetting(func(c *Config) *string { return &c.IdentityURL }),
	"identity_interval": durationSetting(func(c *Config) *time.Duration { return &c.IdentityInterval }),
	"data_dir":          stringSetting(func(c *Config) *string { return &c.DataDir }),
	"http_addr":         stringSetting(func(c *Config) *string { return &c.HTTPAddr }),
	"preview":           boolSetting(func(c *Config) *bool { return &c.Preview }),
	"tray":              boolSetting(func(c *Config) *bool { return &c.Tray }),
	"toggle_key":        stringSetting(func(c *Config) *string { return &c.ToggleKey }),
	"log_level":         stringSetting(func(c *Config) *string { return &c.LogLevel }),
	"log_file":          stringSetting(func(c *Config) *string { return &c.LogFile }),
}

// tunables are the keys that may be changed through stored settings.
// Location settings (data_dir) stay env/flag only.
var tunables = map[string]bool{
	"camera_id": true, "screen_width": true, "screen_height": true,
	"history_length": true, "smooth_factor": true, "yaw_fov": true,
	"pitch_fov": true, "edge_margin": true, "poll_interval": true,
	"debounce": true, "keypoint_left": true, "keypoint_right": true,
	"keypoint_top": true, "keypoint_bottom": true, "keypoint_front": true,
	"identity_url": true, "identity_interval": true, "toggle_key": true,
}

// Keys returns every setting key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsTunable reports whether key may be stored and edited at runtime.
func IsTunable(key string) bool {
	return tunables[key]
}

// Get returns the string form of a setting.
func (c *Config) Get(key string) (string, error) {
	s, ok := settings[key]
	if !ok {
		return "", &ErrUnknownSetting{Key: key}
	}
	return s.get(c), nil
}

// Settings returns the tunable settings as strings.
func (c *Config) Settings() map[string]string {
	out := make(map[string]string, len(tunables))
	for key := range tunables {
		out[key] = settings[key].get(c)
	}
	return out
}

// ApplySettings parses and assigns each value. It stops at the first error.
func (c *Config) ApplySettings(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s, ok := settings[key]
		if !ok {
			return &ErrUnknownSetting{Key: key}
		}
		if err := s.set(c, strings.TrimSpace(values[key])); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

func envName(key string) string {
	return strings.ToUpper(key)
}

func intSetting(field func(*Config) *int) setting {
	return setting{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*field(c) = n
			return nil
		},
	}
}

func floatSetting(field func(*Config) *float64) setting {
	return setting{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			*field(c) = f
			return nil
		},
	}
}

func durationSetting(field func(*Config) *time.Duration) setting {
	return setting{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			*field(c) = d
			return nil
		},
	}
}

func boolSetting(field func(*Config) *bool) setting {
	return setting{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*field(c) = b
			return nil
		},
	}
}

func stringSetting(field func(*Config) *string) setting {
	return setting{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			*field(c) = v
			return nil
		},
	}
}
