package central

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"powermon-go/gatt"
)

var ErrNotConnected = errors.New("not connected")

type Options struct {
	Adapter     string        // "hci0" by default
	Name        string        // advertised local name
	RetryEvery  time.Duration // pause between failed scans
	ScanTimeout time.Duration // per scan attempt; 0 => until ctx ends
}

// Client finds the sensor, subscribes to the telemetry characteristics and
// writes RX text. Run keeps the link up until ctx ends.
type Client struct {
	adapter *bluetooth.Adapter
	opts    Options
	log     *slog.Logger
	tracker *Tracker
	rxUUID  bluetooth.UUID

	mu      sync.Mutex
	dev     bluetooth.Device
	rx      bluetooth.DeviceCharacteristic
	up      bool
	addr    string
	ready   chan struct{} // closed while connected
	dropped chan struct{} // closed when the current link drops
}

func NewClient(opts Options, log *slog.Logger) (*Client, error) {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if opts.Name == "" {
		opts.Name = gatt.LocalName
	}
	if opts.RetryEvery <= 0 {
		opts.RetryEvery = 5 * time.Second
	}
	rx, err := bluetooth.ParseUUID(gatt.RXUUID)
	if err != nil {
		return nil, fmt.Errorf("parse rx uuid: %w", err)
	}
	return &Client{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
		log:     log,
		tracker: NewTracker(),
		rxUUID:  rx,
		ready:   make(chan struct{}),
	}, nil
}

func (c *Client) Tracker() *Tracker { return c.tracker }

// Run enables the adapter and reconnects until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", c.opts.Adapter, err)
	}
	c.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if !connected {
			c.markDown(d.Address.String())
		}
	})

	for {
		dropped, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("ble connect failed", "error", err, "retry_in", c.opts.RetryEvery)
			if !sleep(ctx, c.opts.RetryEvery) {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			c.disconnect()
			return nil
		case <-dropped:
			c.log.Warn("ble link lost", "address", c.Address())
		}
	}
}

func (c *Client) connect(ctx context.Context) (<-chan struct{}, error) {
	c.log.Info("ble scanning", "name", c.opts.Name)
	addr, err := c.scan(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Info("ble connecting", "address", addr.String())
	dev, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr.String(), err)
	}
	rx, err := c.subscribe(dev)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}

	c.mu.Lock()
	c.dev, c.rx, c.up, c.addr = dev, rx, true, addr.String()
	c.dropped = make(chan struct{})
	dropped := c.dropped
	close(c.ready)
	c.mu.Unlock()

	c.log.Info("ble connected", "address", addr.String())
	return dropped, nil
}

func (c *Client) scan(ctx context.Context) (bluetooth.Address, error) {
	if c.opts.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ScanTimeout)
		defer cancel()
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.adapter.StopScan()
		case <-stop:
		}
	}()

	var found bluetooth.Address
	var ok bool
	err := c.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if r.LocalName() != c.opts.Name {
			return
		}
		found, ok = r.Address, true
		_ = a.StopScan()
	})
	if ok {
		return found, nil
	}
	if err != nil {
		return found, fmt.Errorf("ble scan: %w", err)
	}
	if ctx.Err() != nil {
		return found, fmt.Errorf("ble scan: %w", ctx.Err())
	}
	return found, fmt.Errorf("ble scan: %s not found", c.opts.Name)
}

// subscribe enables notifications on every published field and returns the
// RX characteristic.
func (c *Client) subscribe(dev bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	var rx bluetooth.DeviceCharacteristic
	svcs, err := dev.DiscoverServices([]bluetooth.UUID{bluetooth.New16BitUUID(gatt.ServiceUUID16)})
	if err != nil {
		return rx, fmt.Errorf("discover services: %w", err)
	}
	if len(svcs) == 0 {
		return rx, errors.New("telemetry service not found")
	}
	chars, err := svcs[0].DiscoverCharacteristics(nil)
	if err != nil {
		return rx, fmt.Errorf("discover characteristics: %w", err)
	}

	haveRX := false
	for _, ch := range chars {
		u := ch.UUID()
		if u == c.rxUUID {
			rx, haveRX = ch, true
			continue
		}
		if !u.Is16Bit() {
			continue
		}
		f, ok := gatt.ByUUID16(u.Get16Bit())
		if !ok {
			continue
		}
		if err := ch.EnableNotifications(func(buf []byte) {
			if err := c.tracker.Apply(f, buf); err != nil {
				c.log.Debug("bad notification", "field", f.String(), "error", err)
			}
		}); err != nil {
			return rx, fmt.Errorf("enable notifications on %s: %w", f, err)
		}
	}
	if !haveRX {
		return rx, errors.New("rx characteristic not found")
	}
	return rx, nil
}

func (c *Client) markDown(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.up || (addr != "" && addr != c.addr) {
		return
	}
	c.up = false
	c.ready = make(chan struct{})
	close(c.dropped)
}

func (c *Client) disconnect() {
	c.mu.Lock()
	dev, up := c.dev, c.up
	c.mu.Unlock()
	if up {
		_ = dev.Disconnect()
		c.markDown("")
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *Client) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// WaitConnected blocks until the link is up or ctx ends.
func (c *Client) WaitConnected(ctx context.Context) error {
	c.mu.Lock()
	ready := c.ready
	c.mu.Unlock()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteRX sends text to the RX characteristic.
func (c *Client) WriteRX(text string) error {
	c.mu.Lock()
	rx, up := c.rx, c.up
	c.mu.Unlock()
	if !up {
		return ErrNotConnected
	}
	if _, err := rx.WriteWithoutResponse([]byte(text)); err != nil {
		return fmt.Errorf("write rx: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
