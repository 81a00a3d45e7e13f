// Package transport defines the boundary between the protocol engine and
// the wireless link. The device package only talks to these interfaces;
// the ble subpackage implements them on a real adapter and the fake
// subpackage scripts a clock for tests.
package transport

import (
	"context"
	"errors"
)

// Characteristic identifies one of the clock's GATT characteristics
type Characteristic int

const (
	// Main carries authentication and time-set frames
	Main Characteristic = iota
	// ConfigWrite carries configuration, alarm, preview and audio frames
	ConfigWrite
	// ConfigRead delivers every notification from the clock
	ConfigRead
)

// 16-bit short forms of the characteristic UUIDs (0000xxxx-0000-1000-8000-00805f9b34fb)
const (
	MainUUID16        uint16 = 0x0001
	ConfigWriteUUID16 uint16 = 0x000B
	ConfigReadUUID16  uint16 = 0x000C
)

func (c Characteristic) String() string {
	switch c {
	case Main:
		return "main"
	case ConfigWrite:
		return "cfg-write"
	case ConfigRead:
		return "cfg-read"
	default:
		return "unknown"
	}
}

// UUID16 returns the short UUID of the characteristic
func (c Characteristic) UUID16() uint16 {
	switch c {
	case Main:
		return MainUUID16
	case ConfigWrite:
		return ConfigWriteUUID16
	default:
		return ConfigReadUUID16
	}
}

// ErrClosed is returned by Conn methods after Close
var ErrClosed = errors.New("transport: connection closed")

// Target is what Open connects to: a raw address, optionally enriched by
// a transport-specific handle found during discovery.
type Target struct {
	Address string
	Handle  any
}

// Transport discovers and opens connections to a clock
type Transport interface {
	// Discover looks for the device advertising address. Implementations
	// return an error when it is not seen before ctx expires.
	Discover(ctx context.Context, address string) (Target, error)

	// Open connects to target. onDisconnect fires at most once, when the
	// link drops for any reason other than Close.
	Open(ctx context.Context, target Target, onDisconnect func()) (Conn, error)
}

// Conn is a live link to one clock
type Conn interface {
	// Write sends data on ch. confirm requests a write-with-response.
	Write(ctx context.Context, ch Characteristic, data []byte, confirm bool) error

	// Subscribe enables notifications on ch. onFrame must not block and
	// must not retain the slice after returning.
	Subscribe(ch Characteristic, onFrame func([]byte)) error

	// Close tears down the link. Safe to call more than once.
	Close() error
}
