//go:build rp2040 || rp2350

// Command powermon is the e-bike power telemetry firmware.
package main

import (
	"context"
	"machine"
	"os"
	"time"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/drivers/ina228"
	"powermon-go/errcode"
	"powermon-go/platform"
	"powermon-go/services/access"
	"powermon-go/services/config"
	"powermon-go/services/console"
	"powermon-go/services/display"
	"powermon-go/services/heartbeat"
	"powermon-go/services/sensing"
	"powermon-go/services/store"
	"powermon-go/services/supervisor"
	"powermon-go/services/wireless"
	"powermon-go/types"
	"powermon-go/x/logx"
)

const version = "0.3.0"

func ms(v uint32) time.Duration { return time.Duration(v) * time.Millisecond }

func main() {
	// Allow USB CDC to enumerate before logging.
	time.Sleep(2 * time.Second)

	log := logx.New(os.Stdout, zerolog.InfoLevel)
	log.Info().Str("device", deviceName).Str("version", version).Msg("boot")

	cfg, err := config.Load(deviceName)
	if err != nil {
		halt(log, "config", err)
	}

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceName)
	b := bus.NewBus(8)
	st := store.New(cfg.Store.RxCapacity)

	config.NewConfigService(logx.Service(log, "config")).Start(ctx, b.NewConnection("config"))

	sensor, err := newSensor(cfg.Sensor)
	if err != nil {
		halt(log, "sensor", err)
	}
	radio, err := platform.NewRadio(platform.RadioConfig{
		LocalName:   cfg.Wireless.Name,
		AdvInterval: ms(cfg.Wireless.AdvIntervalMs),
	})
	if err != nil {
		halt(log, "radio", err)
	}

	sup := supervisor.New(b.NewConnection("supervisor"), logx.Service(log, "supervisor"), supervisor.Options{})
	guard := access.NewGuard(b.NewConnection("access"), logx.Service(log, "access"))

	sense, err := sensing.New(sensor, st, b.NewConnection("sensing"), logx.Service(log, "sensing"), sensing.Config{
		Period:     ms(cfg.Sensor.PeriodMs),
		VMinMilliV: cfg.Battery.VMinMilliV,
		VMaxMilliV: cfg.Battery.VMaxMilliV,
	})
	if err != nil {
		halt(log, "sensing", err)
	}
	wl, err := wireless.New(radio, guard, st, b.NewConnection("wireless"), logx.Service(log, "wireless"), wireless.Config{
		NotifyPeriod: ms(cfg.Wireless.NotifyMs),
	})
	if err != nil {
		halt(log, "wireless", err)
	}

	sup.Go(ctx, "sensing", sense.Run)
	sup.Go(ctx, "wireless", wl.Run)

	accessSvc := access.NewService(guard, logx.Service(log, "access"))
	accessConn := b.NewConnection("access-control")
	sup.Go(ctx, "access", func(ctx context.Context) error { return accessSvc.Run(ctx, accessConn) })

	hb := heartbeat.New(logx.Service(log, "heartbeat"))
	hbConn := b.NewConnection("heartbeat")
	sup.Go(ctx, "heartbeat", func(ctx context.Context) error { return hb.Run(ctx, hbConn) })

	// The panel and the console are optional peripherals: the telemetry
	// path keeps running without them.
	if panel, err := platform.NewPanel(platform.PicoEPaperPins); err != nil {
		log.Error().Err(err).Msg("display disabled")
	} else if ds, err := display.New(panel, st, logx.Service(log, "display"), display.Config{
		Period:    ms(cfg.Display.PeriodMs),
		FullEvery: cfg.Display.FullEvery,
	}); err != nil {
		log.Error().Err(err).Msg("display disabled")
	} else {
		sup.Go(ctx, "display", ds.Run)
	}

	// GP0/GP1 carry the sensor bus and GP8 upwards the panel.
	if port, err := platform.NewConsolePort(platform.UARTConfig{
		Bus: 1, Baud: 115200, TX: machine.GP4, RX: machine.GP5,
	}); err != nil {
		log.Error().Err(err).Msg("console disabled")
	} else {
		con := console.New(port, b.NewConnection("console"), st, logx.Service(log, "console"),
			console.Info{Version: version, Device: deviceName})
		sup.Go(ctx, "console", con.Run)
	}

	sup.Wait()
	log.Warn().Msg("all tasks ended")
	select {}
}

// newSensor brings up the INA228 and returns it as a sensing.Sensor.
// Failures carry errcode.SensorUnavailable.
func newSensor(c types.SensorConfig) (sensing.Sensor, error) {
	owner := platform.NewI2COwner(platform.I2CConfig{
		Bus: c.I2CBus, SDA: machine.Pin(c.SDA), SCL: machine.Pin(c.SCL), Hz: c.I2CHz,
	})
	dev := ina228.New(owner.Client(250*time.Millisecond), c.Addr)
	if err := dev.Probe(); err != nil {
		return nil, errcode.Wrap(errcode.SensorUnavailable, "ina228.probe", err)
	}
	err := dev.Configure(ina228.Config{
		Address:          c.Addr,
		ShuntMicroOhm:    c.ShuntMicroOhm,
		MaxCurrentMilliA: c.MaxCurrentMilliA,
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.SensorUnavailable, "ina228.configure", err)
	}
	return sensing.SensorFunc(func(context.Context) (types.RawReading, error) {
		m, err := dev.Measure()
		if err != nil {
			return types.RawReading{}, errcode.Wrap(errcode.SensorReadFailed, "ina228.measure", err)
		}
		return types.RawReading{
			BusMilliV:     m.BusMilliV,
			CurrentMilliA: m.CurrentMilliA,
			PowerMilliW:   m.PowerMilliW,
			DieTempMilliC: m.DieTempMilliC,
		}, nil
	}), nil
}

// halt logs a fatal init error and parks forever so the log stays readable
// on the USB console.
func halt(log zerolog.Logger, what string, err error) {
	log.WithLevel(zerolog.FatalLevel).Err(err).Str("stage", what).Str("code", string(errcode.Of(err))).Msg("init failed, halting")
	for {
		time.Sleep(time.Hour)
	}
}
