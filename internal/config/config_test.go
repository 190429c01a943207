package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/lock-controller/internal/logic"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Timing.Settle != 10*time.Millisecond {
		t.Errorf("Settle: got %v, want 10ms", cfg.Timing.Settle)
	}
	if cfg.Lock.MaxSecretLength != 20 {
		t.Errorf("MaxSecretLength: got %d, want 20", cfg.Lock.MaxSecretLength)
	}
	if cfg.Lock.HistorySize != 10 {
		t.Errorf("HistorySize: got %d, want 10", cfg.Lock.HistorySize)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
gpio:
  chip: gpiochip4
  override: 5
  control: 6
  locked_led: 20
  unlocked_led: 21
  invert_inputs: true
timing:
  poll: 100ms
  settle: 5ms
  unlock: 8s
  full_log_hold: 1s
  secret_hold: 10s
  blink_count: 3
  blink_interval: 50ms
lock:
  secret_file: /tmp/secret
  default_secret: letmein
  max_secret_length: 16
  history_size: 5
mqtt:
  broker: tcp://broker:1883
  client_id: front-door
  topic_prefix: home/front-door
  heartbeat: 1m
  buffer_size: 10
http:
  addr: ":8080"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.GPIO.Chip != "gpiochip4" || cfg.GPIO.Override != 5 || !cfg.GPIO.InvertInputs {
		t.Errorf("GPIO: got %+v", cfg.GPIO)
	}
	if cfg.Timing.Poll != 100*time.Millisecond {
		t.Errorf("Poll: got %v", cfg.Timing.Poll)
	}
	if cfg.Timing.Unlock != 8*time.Second {
		t.Errorf("Unlock: got %v", cfg.Timing.Unlock)
	}
	if cfg.Lock.DefaultSecret != "letmein" {
		t.Errorf("DefaultSecret: got %q", cfg.Lock.DefaultSecret)
	}
	if cfg.MQTT.TopicPrefix != "home/front-door" {
		t.Errorf("TopicPrefix: got %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.Heartbeat != time.Minute {
		t.Errorf("Heartbeat: got %v", cfg.MQTT.Heartbeat)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr: got %q", cfg.HTTP.Addr)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://other:1883
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.MQTT.Broker != "tcp://other:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.TopicPrefix != def.MQTT.TopicPrefix {
		t.Errorf("TopicPrefix: got %q, want default %q", cfg.MQTT.TopicPrefix, def.MQTT.TopicPrefix)
	}
	if cfg.Timing != def.Timing {
		t.Errorf("Timing: got %+v, want defaults", cfg.Timing)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "timing: [not, a, map")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, "timing:\n  poll: soon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{"empty chip", func(c *Config) { c.GPIO.Chip = "" }, "gpio.chip"},
		{"negative line", func(c *Config) { c.GPIO.Override = -1 }, "gpio.override"},
		{"shared line", func(c *Config) { c.GPIO.Control = c.GPIO.Override }, "share line"},
		{"zero poll", func(c *Config) { c.Timing.Poll = 0 }, "timing.poll"},
		{"settle longer than poll", func(c *Config) { c.Timing.Settle = time.Second }, "timing.settle"},
		{"zero unlock", func(c *Config) { c.Timing.Unlock = 0 }, "timing.unlock"},
		{"full log after secret", func(c *Config) { c.Timing.FullLogHold = 6 * time.Second }, "timing.full_log_hold"},
		{"negative blinks", func(c *Config) { c.Timing.BlinkCount = -1 }, "timing.blink_count"},
		{"empty secret file", func(c *Config) { c.Lock.SecretFile = "" }, "lock.secret_file"},
		{"zero secret length", func(c *Config) { c.Lock.MaxSecretLength = 0 }, "lock.max_secret_length"},
		{"empty default secret", func(c *Config) { c.Lock.DefaultSecret = "" }, "lock.default_secret"},
		{"default secret too long", func(c *Config) { c.Lock.DefaultSecret = strings.Repeat("x", 21) }, "longer than"},
		{"zero history", func(c *Config) { c.Lock.HistorySize = 0 }, "lock.history_size"},
		{"empty topic prefix", func(c *Config) { c.MQTT.TopicPrefix = "" }, "mqtt.topic_prefix"},
		{"empty client id", func(c *Config) { c.MQTT.ClientID = "" }, "mqtt.client_id"},
		{"negative heartbeat", func(c *Config) { c.MQTT.Heartbeat = -time.Second }, "mqtt.heartbeat"},
		{"zero buffer", func(c *Config) { c.MQTT.BufferSize = 0 }, "mqtt.buffer_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q should mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestValidateReportsPinsInOrder(t *testing.T) {
	cfg := Default()
	cfg.GPIO.Control = cfg.GPIO.Override
	cfg.GPIO.LockedLED = cfg.GPIO.Override
	cfg.GPIO.UnlockedLED = -1

	want := fmt.Sprintf("gpio.override and gpio.control share line %d", cfg.GPIO.Override)
	// Repeat to catch ordering that varies between runs.
	for i := 0; i < 50; i++ {
		err := cfg.Validate()
		if err == nil || err.Error() != want {
			t.Fatalf("run %d: got %v, want %q", i, err, want)
		}
	}
}

func TestValidateMQTTDisabled(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Broker = ""
	cfg.MQTT.TopicPrefix = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("topic prefix is irrelevant without a broker: %v", err)
	}
}

func TestCore(t *testing.T) {
	cfg := Default()
	got := cfg.Core()
	want := logic.DefaultConfig(cfg.GPIO.Override, cfg.GPIO.Control, cfg.GPIO.LockedLED, cfg.GPIO.UnlockedLED)
	if got != want {
		t.Errorf("Core: got %+v, want %+v", got, want)
	}
}
