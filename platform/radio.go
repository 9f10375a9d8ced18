//go:build rp2040 || rp2350

package platform

import (
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"powermon-go/errcode"
	"powermon-go/gatt"
	"powermon-go/services/wireless"
	"powermon-go/types"
)

// RadioConfig configures the BLE peripheral.
type RadioConfig struct {
	LocalName   string        // "" => gatt.LocalName
	AdvInterval time.Duration // 0 => gatt.AdvIntervalMs
	EventDepth  int           // 0 => DefaultEventDepth
}

// Radio is the BLE peripheral exposing the telemetry service. Stack
// callbacks only enqueue events; the wireless task owns all decisions.
type Radio struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	chars   [len(gatt.Table)]bluetooth.Characteristic
	q       *eventQueue

	mu    sync.Mutex
	conns connTable
	devs  map[types.PeerID]bluetooth.Device
}

var _ wireless.Radio = (*Radio)(nil)

// NewRadio enables the adapter, registers the service and configures
// advertising. Errors carry errcode.RadioUnavailable.
func NewRadio(cfg RadioConfig) (*Radio, error) {
	if cfg.LocalName == "" {
		cfg.LocalName = gatt.LocalName
	}
	if cfg.AdvInterval <= 0 {
		cfg.AdvInterval = gatt.AdvIntervalMs * time.Millisecond
	}
	r := &Radio{
		adapter: bluetooth.DefaultAdapter,
		q:       newEventQueue(cfg.EventDepth),
		devs:    make(map[types.PeerID]bluetooth.Device, 2),
	}
	if err := r.adapter.Enable(); err != nil {
		return nil, errcode.Wrap(errcode.RadioUnavailable, "radio.enable", err)
	}
	r.adapter.SetConnectHandler(r.onConnect)

	if err := r.adapter.AddService(r.service()); err != nil {
		return nil, errcode.Wrap(errcode.RadioUnavailable, "radio.add_service", err)
	}

	r.adv = r.adapter.DefaultAdvertisement()
	err := r.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    cfg.LocalName,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.New16BitUUID(gatt.ServiceUUID16)},
		Interval:     bluetooth.NewDuration(cfg.AdvInterval),
	})
	if err != nil {
		return nil, errcode.Wrap(errcode.RadioUnavailable, "radio.adv_configure", err)
	}
	return r, nil
}

func (r *Radio) service() *bluetooth.Service {
	rx, _ := bluetooth.ParseUUID(gatt.RXUUID)
	cfgs := make([]bluetooth.CharacteristicConfig, 0, len(gatt.Table))
	for _, c := range gatt.Table {
		cc := bluetooth.CharacteristicConfig{Handle: &r.chars[c.Field]}
		if c.Write {
			cc.UUID = rx
			cc.Flags = bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission
			cc.WriteEvent = r.onWrite
		} else {
			cc.UUID = bluetooth.New16BitUUID(c.UUID16)
			cc.Value = make([]byte, c.Size)
			cc.Flags = bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission
		}
		cfgs = append(cfgs, cc)
	}
	return &bluetooth.Service{
		UUID:            bluetooth.New16BitUUID(gatt.ServiceUUID16),
		Characteristics: cfgs,
	}
}

func peerOf(d bluetooth.Device) types.PeerID {
	return PeerFromMAC(d.Address.MAC, d.Address.IsRandom())
}

func (r *Radio) onConnect(d bluetooth.Device, connected bool) {
	peer := peerOf(d)
	kind := wireless.EventDisconnect

	r.mu.Lock()
	if connected {
		kind = wireless.EventConnect
		r.conns.add(peer)
		r.devs[peer] = d
	} else {
		r.conns.remove(peer)
		delete(r.devs, peer)
	}
	r.mu.Unlock()

	r.q.post(wireless.Event{Kind: kind, Peer: peer})
}

func (r *Radio) onWrite(_ bluetooth.Connection, offset int, value []byte) {
	if offset != 0 {
		return
	}
	r.mu.Lock()
	peer := r.conns.writer()
	r.mu.Unlock()

	// The stack reuses value after the callback returns.
	data := make([]byte, len(value))
	copy(data, value)
	r.q.post(wireless.Event{Kind: wireless.EventWrite, Peer: peer, Field: gatt.FieldRX, Data: data})
}

func (r *Radio) Events() <-chan wireless.Event { return r.q.events() }

// Drops reports events lost to a full queue.
func (r *Radio) Drops() uint32 { return r.q.Drops() }

func (r *Radio) Notify(f gatt.Field, value []byte) error {
	if int(f) >= len(r.chars) {
		return errcode.InvalidParams
	}
	if _, err := r.chars[f].Write(value); err != nil {
		return errcode.Wrap(errcode.NotifyFailed, "radio.notify", err)
	}
	return nil
}

func (r *Radio) Disconnect(peer types.PeerID) error {
	r.mu.Lock()
	d, ok := r.devs[peer]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return d.Disconnect()
}

func (r *Radio) StartAdvertising() error {
	if err := r.adv.Start(); err != nil {
		return errcode.Wrap(errcode.RadioUnavailable, "radio.adv_start", err)
	}
	return nil
}

func (r *Radio) StopAdvertising() error { return r.adv.Stop() }
