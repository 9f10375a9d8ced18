// Command ebike-terminal is the laptop companion of the powermon firmware:
// it subscribes to the BLE telemetry, sends RX text, and optionally
// forwards readings to MQTT and SQLite.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"powermon-go/host/admin"
	"powermon-go/host/central"
	"powermon-go/host/recorder"
	"powermon-go/host/sample"
	"powermon-go/host/termcfg"
	"powermon-go/host/uplink"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ebike-terminal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "YAML config file")
	name := flag.String("name", "", "advertised sensor name")
	adapter := flag.String("adapter", "", "BLE adapter (hci0)")
	device := flag.String("device", "", "device id used in MQTT topics and records")
	broker := flag.String("mqtt", "", "MQTT broker host; enables the uplink")
	record := flag.String("record", "", "SQLite file; enables recording")
	adminPort := flag.String("admin-port", "", "serial port of the firmware console, e.g. /dev/ttyACM0")
	env := flag.String("env", "", "dev or prod logging")
	flag.Parse()

	cfg, err := termcfg.Load(*cfgPath)
	if err != nil {
		return err
	}
	override(&cfg.BLE.Name, *name)
	override(&cfg.BLE.Adapter, *adapter)
	override(&cfg.Device, *device)
	override(&cfg.Recorder.Path, *record)
	override(&cfg.Admin.Port, *adminPort)
	override(&cfg.Env, *env)
	if *broker != "" {
		cfg.MQTT.Enabled, cfg.MQTT.Broker = true, *broker
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := termcfg.NewLogger(os.Stderr, cfg, version)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var adm *admin.Client
	if cfg.Admin.Port != "" {
		if adm, err = admin.Open(cfg.Admin.Port, cfg.Admin.Baud, cfg.Admin.Timeout); err != nil {
			return err
		}
		defer adm.Close()
		if err := adm.Sync(); err != nil {
			log.Warn("admin console not responding", "port", cfg.Admin.Port, "error", err)
		}
	}

	// One-shot admin subcommands: owner, owner reset.
	if args := flag.Args(); len(args) > 0 {
		return oneShot(adm, args)
	}

	client, err := central.NewClient(central.Options{
		Adapter:     cfg.BLE.Adapter,
		Name:        cfg.BLE.Name,
		RetryEvery:  cfg.BLE.RetryEvery,
		ScanTimeout: cfg.BLE.ScanTimeout,
	}, log.With("component", "ble"))
	if err != nil {
		return err
	}

	fw := &forwarder{device: cfg.Device, log: log}
	if cfg.MQTT.Enabled {
		up := uplink.NewClient(uplink.Options{
			Broker:   cfg.MQTT.Broker,
			Port:     cfg.MQTT.Port,
			ClientID: cfg.MQTT.ClientID,
			QoS:      cfg.MQTT.QoS,
		}, log.With("component", "mqtt"))
		go func() {
			if err := up.Connect(ctx); err != nil && ctx.Err() == nil {
				log.Error("mqtt connect failed", "error", err)
			}
		}()
		defer up.Disconnect()
		fw.up = up
	}
	if cfg.Recorder.Path != "" {
		rec, err := recorder.Open(cfg.Recorder.Path)
		if err != nil {
			return err
		}
		defer rec.Close()
		fw.rec = rec
	}

	go func() {
		if err := client.Run(ctx); err != nil {
			log.Error("ble stopped", "error", err)
		}
	}()
	go fw.run(ctx, client.Tracker())

	var adminIface Admin
	if adm != nil {
		adminIface = adm
	}
	sh := newShell(os.Stdout, client, adminIface, client.Tracker())
	fmt.Println("E-Bike BLE Terminal")
	fmt.Println(helpText)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok || sh.exec(ctx, line) {
				return nil
			}
		}
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func oneShot(adm *admin.Client, args []string) error {
	if adm == nil {
		return errors.New("owner commands need -admin-port")
	}
	var reply string
	var err error
	switch {
	case len(args) == 1 && args[0] == "owner":
		reply, err = adm.Owner()
	case len(args) == 2 && args[0] == "owner" && args[1] == "reset":
		reply, err = adm.ResetOwner()
	default:
		return fmt.Errorf("unknown command %q (want: owner, owner reset)", args)
	}
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// forwarder pushes the latest reading to the uplink and the recorder at
// most once per period.
type forwarder struct {
	device string
	log    *slog.Logger
	up     *uplink.Client
	rec    *recorder.Recorder
}

func (f *forwarder) run(ctx context.Context, tr *central.Tracker) {
	if f.up == nil && f.rec == nil {
		return
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		r, seq, at := tr.Latest()
		if seq == last {
			continue
		}
		last = seq
		s := sample.FromReading(f.device, at, r)
		if f.up != nil && f.up.IsConnected() {
			if err := f.up.Publish(s); err != nil {
				f.log.Warn("uplink publish failed", "error", err)
			}
		}
		if f.rec != nil {
			if err := f.rec.Insert(ctx, s); err != nil {
				f.log.Warn("record failed", "error", err)
			}
		}
	}
}
