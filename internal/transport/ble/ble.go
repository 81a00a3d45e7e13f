// Package ble implements transport.Transport on tinygo.org/x/bluetooth.
package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/transport"
)

// Transport drives a local Bluetooth adapter
type Transport struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	mu    sync.Mutex
	conns map[string]*conn
}

// New returns a transport on the system default adapter
func New() *Transport {
	return NewWithAdapter(bluetooth.DefaultAdapter)
}

// NewWithAdapter returns a transport on a specific adapter
func NewWithAdapter(adapter *bluetooth.Adapter) *Transport {
	return &Transport{adapter: adapter, conns: make(map[string]*conn)}
}

func (t *Transport) enable() error {
	t.enableOnce.Do(func() {
		if err := t.adapter.Enable(); err != nil {
			t.enableErr = fmt.Errorf("enable bluetooth adapter: %w", err)
			return
		}
		t.adapter.SetConnectHandler(t.onConnectEvent)
	})
	return t.enableErr
}

// onConnectEvent routes unsolicited disconnects to the owning conn
func (t *Transport) onConnectEvent(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	key := normalize(device.Address.String())

	t.mu.Lock()
	c := t.conns[key]
	delete(t.conns, key)
	t.mu.Unlock()

	if c != nil {
		c.dropped()
	}
}

// Discover scans until the device advertising address is seen or ctx ends
func (t *Transport) Discover(ctx context.Context, address string) (transport.Target, error) {
	if err := t.enable(); err != nil {
		return transport.Target{}, err
	}

	want := normalize(address)
	found := make(chan bluetooth.Address, 1)

	scanDone := make(chan error, 1)
	go func() {
		scanDone <- t.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if normalize(result.Address.String()) != want {
				return
			}
			select {
			case found <- result.Address:
			default:
			}
			_ = a.StopScan()
		})
	}()

	select {
	case addr := <-found:
		<-scanDone
		logging.Debug("Device found by scan", zap.String("address", address))
		return transport.Target{Address: address, Handle: addr}, nil
	case err := <-scanDone:
		if err == nil {
			err = fmt.Errorf("scan stopped before %s was seen", address)
		}
		return transport.Target{}, err
	case <-ctx.Done():
		_ = t.adapter.StopScan()
		<-scanDone
		return transport.Target{}, fmt.Errorf("%s not seen: %w", address, ctx.Err())
	}
}

// Open connects to target and discovers the clock's characteristics
func (t *Transport) Open(ctx context.Context, target transport.Target, onDisconnect func()) (transport.Conn, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}

	addr, ok := target.Handle.(bluetooth.Address)
	if !ok {
		var err error
		if addr, err = parseAddress(target.Address); err != nil {
			return nil, err
		}
	}

	params := bluetooth.ConnectionParams{}
	if deadline, ok := ctx.Deadline(); ok {
		params.ConnectionTimeout = bluetooth.NewDuration(time.Until(deadline))
	}

	type result struct {
		device bluetooth.Device
		err    error
	}
	done := make(chan result, 1)
	go func() {
		d, err := t.adapter.Connect(addr, params)
		done <- result{d, err}
	}()

	var device bluetooth.Device
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("connect %s: %w", target.Address, r.err)
		}
		device = r.device
	case <-ctx.Done():
		// The adapter call cannot be interrupted; drop the link if it lands late
		go func() {
			if r := <-done; r.err == nil {
				_ = r.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("connect %s: %w", target.Address, ctx.Err())
	}

	chars, err := discoverCharacteristics(device)
	if err != nil {
		_ = device.Disconnect()
		return nil, err
	}

	c := &conn{
		device:       device,
		chars:        chars,
		onDisconnect: onDisconnect,
		log:          logging.With(zap.String("address", target.Address)),
	}

	t.mu.Lock()
	t.conns[normalize(device.Address.String())] = c
	t.mu.Unlock()

	return c, nil
}

func discoverCharacteristics(device bluetooth.Device) (map[transport.Characteristic]bluetooth.DeviceCharacteristic, error) {
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}

	wanted := map[bluetooth.UUID]transport.Characteristic{
		bluetooth.New16BitUUID(transport.MainUUID16):        transport.Main,
		bluetooth.New16BitUUID(transport.ConfigWriteUUID16): transport.ConfigWrite,
		bluetooth.New16BitUUID(transport.ConfigReadUUID16):  transport.ConfigRead,
	}

	found := make(map[transport.Characteristic]bluetooth.DeviceCharacteristic, len(wanted))
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, ch := range chars {
			if id, ok := wanted[ch.UUID()]; ok {
				found[id] = ch
			}
		}
	}

	for uuid, id := range wanted {
		if _, ok := found[id]; !ok {
			return nil, fmt.Errorf("characteristic %s (%s) not found", id, uuid.String())
		}
	}
	return found, nil
}

func normalize(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

type conn struct {
	device       bluetooth.Device
	chars        map[transport.Characteristic]bluetooth.DeviceCharacteristic
	onDisconnect func()
	log          *zap.Logger

	mu     sync.Mutex
	closed bool
}

func (c *conn) Write(ctx context.Context, ch transport.Characteristic, data []byte, confirm bool) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	char, ok := c.chars[ch]
	if !ok {
		return fmt.Errorf("characteristic %s not available", ch)
	}

	var err error
	if confirm {
		_, err = char.Write(data)
	} else {
		_, err = char.WriteWithoutResponse(data)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", ch, err)
	}
	return nil
}

func (c *conn) Subscribe(ch transport.Characteristic, onFrame func([]byte)) error {
	char, ok := c.chars[ch]
	if !ok {
		return fmt.Errorf("characteristic %s not available", ch)
	}
	return char.EnableNotifications(func(buf []byte) {
		frame := make([]byte, len(buf))
		copy(frame, buf)
		onFrame(frame)
	})
}

func (c *conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.log.Debug("Closing BLE link")
	return c.device.Disconnect()
}

// dropped is called when the adapter reports a disconnect we did not ask for
func (c *conn) dropped() {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if wasClosed {
		return
	}
	c.log.Info("BLE link dropped")
	if c.onDisconnect != nil {
		c.onDisconnect()
	}
}
