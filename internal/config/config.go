// Package config loads the lock controller configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/lock-controller/internal/gpio"
	"github.com/sweeney/lock-controller/internal/logic"
)

// Config holds all daemon configuration.
type Config struct {
	GPIO   GPIOConfig   `yaml:"gpio"`
	Timing TimingConfig `yaml:"timing"`
	Lock   LockConfig   `yaml:"lock"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// GPIOConfig holds the line assignment.
type GPIOConfig struct {
	Chip         string `yaml:"chip"`
	Override     int    `yaml:"override"`
	Control      int    `yaml:"control"`
	LockedLED    int    `yaml:"locked_led"`
	UnlockedLED  int    `yaml:"unlocked_led"`
	InvertInputs bool   `yaml:"invert_inputs"` // inputs are active-low
}

// TimingConfig holds the tick cadence and lock timings.
type TimingConfig struct {
	Poll          time.Duration `yaml:"poll"`
	Settle        time.Duration `yaml:"settle"`
	Unlock        time.Duration `yaml:"unlock"`
	FullLogHold   time.Duration `yaml:"full_log_hold"`
	SecretHold    time.Duration `yaml:"secret_hold"`
	BlinkCount    int           `yaml:"blink_count"`
	BlinkInterval time.Duration `yaml:"blink_interval"`
}

// LockConfig holds secret and history settings.
type LockConfig struct {
	SecretFile      string `yaml:"secret_file"`
	DefaultSecret   string `yaml:"default_secret"`
	MaxSecretLength int    `yaml:"max_secret_length"`
	HistorySize     int    `yaml:"history_size"`
}

// MQTTConfig holds broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	BufferSize  int           `yaml:"buffer_size"`
}

// HTTPConfig holds the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultPath is the config file read when -config is not given and the
// file exists.
const DefaultPath = "/etc/lock-controller/config.yaml"

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:        gpio.DefaultChip,
			Override:    gpio.DefaultPinOverride,
			Control:     gpio.DefaultPinControl,
			LockedLED:   gpio.DefaultPinLocked,
			UnlockedLED: gpio.DefaultPinUnlocked,
		},
		Timing: TimingConfig{
			Poll:          50 * time.Millisecond,
			Settle:        logic.DefaultSettleDelay,
			Unlock:        logic.DefaultUnlockDuration,
			FullLogHold:   logic.DefaultFullLogHold,
			SecretHold:    logic.DefaultSecretHold,
			BlinkCount:    logic.DefaultBlinkCount,
			BlinkInterval: logic.DefaultBlinkInterval,
		},
		Lock: LockConfig{
			SecretFile:      "/var/lib/lock-controller/secret",
			DefaultSecret:   logic.DefaultSecret,
			MaxSecretLength: logic.DefaultMaxSecretLength,
			HistorySize:     logic.DefaultHistorySize,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "lock-controller",
			TopicPrefix: "access/lock",
			Heartbeat:   15 * time.Minute,
			BufferSize:  100,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.GPIO.Chip == "" {
		return fmt.Errorf("gpio.chip must not be empty")
	}
	seen := map[int]string{}
	for _, pin := range []struct {
		name string
		line int
	}{
		{"gpio.override", c.GPIO.Override},
		{"gpio.control", c.GPIO.Control},
		{"gpio.locked_led", c.GPIO.LockedLED},
		{"gpio.unlocked_led", c.GPIO.UnlockedLED},
	} {
		if pin.line < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", pin.name, pin.line)
		}
		if other, ok := seen[pin.line]; ok {
			return fmt.Errorf("%s and %s share line %d", other, pin.name, pin.line)
		}
		seen[pin.line] = pin.name
	}

	if c.Timing.Poll <= 0 {
		return fmt.Errorf("timing.poll must be > 0")
	}
	if c.Timing.Settle <= 0 || c.Timing.Settle >= c.Timing.Poll {
		return fmt.Errorf("timing.settle must be > 0 and shorter than timing.poll")
	}
	if c.Timing.Unlock <= 0 {
		return fmt.Errorf("timing.unlock must be > 0")
	}
	if c.Timing.FullLogHold <= 0 || c.Timing.FullLogHold >= c.Timing.SecretHold {
		return fmt.Errorf("timing.full_log_hold must be > 0 and shorter than timing.secret_hold")
	}
	if c.Timing.BlinkCount < 0 {
		return fmt.Errorf("timing.blink_count must be >= 0")
	}
	if c.Timing.BlinkInterval < 0 {
		return fmt.Errorf("timing.blink_interval must be >= 0")
	}

	if c.Lock.SecretFile == "" {
		return fmt.Errorf("lock.secret_file must not be empty")
	}
	if c.Lock.MaxSecretLength <= 0 {
		return fmt.Errorf("lock.max_secret_length must be > 0")
	}
	if c.Lock.DefaultSecret == "" {
		return fmt.Errorf("lock.default_secret must not be empty")
	}
	if len(c.Lock.DefaultSecret) > c.Lock.MaxSecretLength {
		return fmt.Errorf("lock.default_secret is longer than lock.max_secret_length (%d)", c.Lock.MaxSecretLength)
	}
	if c.Lock.HistorySize <= 0 {
		return fmt.Errorf("lock.history_size must be > 0")
	}

	if c.MQTT.Broker != "" {
		if c.MQTT.TopicPrefix == "" {
			return fmt.Errorf("mqtt.topic_prefix must not be empty")
		}
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt.client_id must not be empty")
		}
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt.heartbeat must be >= 0")
	}
	if c.MQTT.BufferSize <= 0 {
		return fmt.Errorf("mqtt.buffer_size must be > 0")
	}

	return nil
}

// Core converts the file settings into the lock core constants.
func (c *Config) Core() logic.Config {
	return logic.Config{
		OverrideLine:    c.GPIO.Override,
		ControlLine:     c.GPIO.Control,
		LockedLine:      c.GPIO.LockedLED,
		UnlockedLine:    c.GPIO.UnlockedLED,
		SettleDelay:     c.Timing.Settle,
		UnlockDuration:  c.Timing.Unlock,
		FullLogHold:     c.Timing.FullLogHold,
		SecretHold:      c.Timing.SecretHold,
		BlinkCount:      c.Timing.BlinkCount,
		BlinkInterval:   c.Timing.BlinkInterval,
		HistorySize:     c.Lock.HistorySize,
		MaxSecretLength: c.Lock.MaxSecretLength,
	}
}
