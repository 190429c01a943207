// Command lock-controller runs the access-control lock: it debounces the
// override switch and control button, drives the indicator outputs, and
// accepts unlock requests over MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/lock-controller/internal/clock"
	"github.com/sweeney/lock-controller/internal/config"
	"github.com/sweeney/lock-controller/internal/gpio"
	"github.com/sweeney/lock-controller/internal/logic"
	"github.com/sweeney/lock-controller/internal/mqtt"
	"github.com/sweeney/lock-controller/internal/status"
	"github.com/sweeney/lock-controller/internal/store"
	"github.com/sweeney/lock-controller/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default "+config.DefaultPath+" if present)")
	broker := flag.String("broker", "", "MQTT broker address, overrides the config file")
	httpAddr := flag.String("http", "", "HTTP status address, overrides the config file")
	noMQTT := flag.Bool("no-mqtt", false, "Disable MQTT")
	noHTTP := flag.Bool("no-http", false, "Disable the HTTP status server")
	printState := flag.Bool("print-state", false, "Print current input levels and exit")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *noMQTT {
		cfg.MQTT.Broker = ""
	}
	if *noHTTP {
		cfg.HTTP.Addr = ""
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid config: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads path, or the default path when it exists, or falls back
// to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			return config.Default(), nil
		}
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded config from %s", path)
	return cfg, nil
}

func run(cfg *config.Config, printState bool) error {
	inputs := []int{cfg.GPIO.Override, cfg.GPIO.Control}
	outputs := []int{cfg.GPIO.LockedLED, cfg.GPIO.UnlockedLED}
	pins, err := gpio.NewRealPins(cfg.GPIO.Chip, inputs, outputs, cfg.GPIO.InvertInputs)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	if printState {
		return printInputs(pins, cfg)
	}

	secrets := store.NewFileStore(cfg.Lock.SecretFile, cfg.Lock.MaxSecretLength)
	wrote, err := logic.Initialise(secrets, cfg.Lock.DefaultSecret, cfg.Lock.MaxSecretLength)
	if err != nil {
		return fmt.Errorf("init secret: %w", err)
	}
	if wrote {
		log.Printf("no usable secret in %s, wrote the default", secrets.Path())
	}

	clk := clock.NewMonotonic()
	events := logic.NewEventQueue(clk)
	lock := logic.NewLock(cfg.Core(), pins, pins, clk, secrets, events)

	var (
		publisher  mqtt.Publisher = disabledPublisher{}
		mqttStatus mqtt.ConnectionStatus
		commands   <-chan mqtt.Command
	)
	if cfg.MQTT.Broker != "" {
		rp := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Topics:     mqtt.NewTopics(cfg.MQTT.TopicPrefix),
			BufferSize: cfg.MQTT.BufferSize,
			MaxPayload: cfg.Lock.MaxSecretLength,
		})
		defer rp.Close()
		publisher, mqttStatus, commands = rp, rp, rp.Commands()
	}

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(clk.Start(), status.Config{
		PollMs:      cfg.Timing.Poll.Milliseconds(),
		SettleMs:    cfg.Timing.Settle.Milliseconds(),
		UnlockMs:    cfg.Timing.Unlock.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(lock.State(), lock.OverrideActive(), lock.History())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}
	if err := publisher.PublishState(mqtt.StateEvent{Timestamp: snap.Now, State: lock.State(), Override: lock.OverrideActive()}); err != nil {
		log.Printf("failed to publish initial state: %v", err)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v settle=%v unlock=%v broker=%q heartbeat=%v",
		cfg.Timing.Poll, cfg.Timing.Settle, cfg.Timing.Unlock, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.Timing.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	opts := loopOptions{Heartbeat: cfg.MQTT.Heartbeat, PacketSize: cfg.Lock.MaxSecretLength}
	return runLoop(lock, events, publisher, mqttStatus, commands, tracker, opts, time.Now, ticker.C, sigCh)
}

// loopOptions holds the run loop settings that are not part of the lock.
type loopOptions struct {
	Heartbeat  time.Duration // 0 disables
	PacketSize int           // log chunk size
}

// runLoop owns the lock. Ticks poll the inputs, commands carry unlock
// requests, and a signal publishes SHUTDOWN and returns. mqttStatus and
// commands may be nil.
func runLoop(lock *logic.Lock, events *logic.EventQueue, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, commands <-chan mqtt.Command, tracker *status.Tracker, opts loopOptions, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	refresh := func() {
		tracker.Update(lock.State(), lock.OverrideActive(), lock.History())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refresh()
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case cmd := <-commands:
			updating := lock.State().UpdatingSecret
			open := lock.UnlockWithMessage(cmd.Payload)
			switch {
			case updating:
				log.Printf("secret update received")
			case open:
				log.Printf("unlock request accepted")
			default:
				log.Printf("unlock request rejected")
				tracker.ObserveRejected()
			}
			handleEvents(lock, events, publisher, tracker, opts, now())
			refresh()

		case <-tick:
			t := now()
			if err := lock.Poll(); err != nil {
				log.Printf("poll error: %v", err)
			}
			handleEvents(lock, events, publisher, tracker, opts, t)
			refresh()

			if opts.Heartbeat > 0 && t.Sub(lastHeartbeat) >= opts.Heartbeat {
				lastHeartbeat = t
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Printf("heartbeat: state=%s uptime=%v unlocks=%d rejected=%d",
					snap.Lock, snap.Uptime().Truncate(time.Second), snap.Counts.Unlocks, snap.Counts.Rejected)
				hb := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hb); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// handleEvents logs and publishes everything the lock queued since the last
// call, in order.
func handleEvents(lock *logic.Lock, events *logic.EventQueue, publisher mqtt.Publisher, tracker *status.Tracker, opts loopOptions, t time.Time) {
	for _, ev := range events.Drain() {
		switch ev.Type {
		case logic.EventStateChanged:
			log.Printf("event: %s", ev.State)
			tracker.ObserveState(ev.State, ev.Time)
			se := mqtt.StateEvent{Timestamp: t, State: ev.State, Override: lock.OverrideActive()}
			if err := publisher.PublishState(se); err != nil {
				log.Printf("publish error: %v", err)
			}

		case logic.EventLogRequested:
			kind := "brief"
			if ev.Full {
				kind = "full"
			}
			log.Printf("event: %s log requested", kind)
			tracker.ObserveLogRequest(ev.Full)
			tracker.Update(lock.State(), lock.OverrideActive(), lock.History())
			report := status.FormatLog(tracker.Snapshot(), ev.Full)
			if err := publisher.PublishLog(status.ChunkLog(report, opts.PacketSize)); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
	}
}

func printInputs(pins gpio.Pins, cfg *config.Config) error {
	override, err := pins.Read(cfg.GPIO.Override)
	if err != nil {
		return fmt.Errorf("read override: %w", err)
	}
	control, err := pins.Read(cfg.GPIO.Control)
	if err != nil {
		return fmt.Errorf("read control: %w", err)
	}
	fmt.Printf("override: %s, control: %s\n", levelString(override), levelString(control))
	return nil
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

// disabledPublisher stands in when no broker is configured.
type disabledPublisher struct{}

func (disabledPublisher) PublishState(mqtt.StateEvent) error   { return nil }
func (disabledPublisher) PublishLog([]string) error            { return nil }
func (disabledPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (disabledPublisher) Close() error                         { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
