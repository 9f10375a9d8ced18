// Package termcfg loads the host terminal configuration and builds its
// logger.
package termcfg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"

	"powermon-go/gatt"
)

type Config struct {
	Env      string         `yaml:"env"` // dev or prod
	LogLevel string         `yaml:"log_level"`
	Device   string         `yaml:"device"`
	BLE      BLEConfig      `yaml:"ble"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Recorder RecorderConfig `yaml:"recorder"`
	Admin    AdminConfig    `yaml:"admin"`
}

type BLEConfig struct {
	Adapter     string        `yaml:"adapter"`
	Name        string        `yaml:"name"`
	RetryEvery  time.Duration `yaml:"retry_every"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

type RecorderConfig struct {
	Path string `yaml:"path"` // empty disables recording
}

type AdminConfig struct {
	Port    string        `yaml:"port"` // empty disables the admin console
	Baud    int           `yaml:"baud"`
	Timeout time.Duration `yaml:"timeout"`
}

func Defaults() Config {
	return Config{
		Env:      "dev",
		LogLevel: "info",
		Device:   "ebike",
		BLE: BLEConfig{
			Adapter:     "hci0",
			Name:        gatt.LocalName,
			RetryEvery:  5 * time.Second,
			ScanTimeout: 30 * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:   "localhost",
			Port:     1883,
			ClientID: "ebike-terminal",
			QoS:      1,
		},
		Admin: AdminConfig{Baud: 115200, Timeout: 2 * time.Second},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := Decode(f, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Decode reads YAML from r into cfg, keeping fields r does not set.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid env %q (allowed: dev, prod)", c.Env)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.Device) == "" {
		return errors.New("device must be set")
	}
	if c.BLE.Name == "" {
		return errors.New("ble.name must be set")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" || c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			return fmt.Errorf("invalid mqtt broker %q:%d", c.MQTT.Broker, c.MQTT.Port)
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS)
		}
	}
	if c.Admin.Port != "" && c.Admin.Baud <= 0 {
		return fmt.Errorf("invalid admin baud %d", c.Admin.Baud)
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

// NewLogger logs with tint in dev and JSON otherwise.
func NewLogger(w io.Writer, cfg Config, version string) *slog.Logger {
	level, _ := ParseLevel(cfg.LogLevel)
	if cfg.Env == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", "ebike-terminal")
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", "ebike-terminal", "version", version, "device", cfg.Device)
}
