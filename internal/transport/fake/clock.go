// Package fake provides an in-memory CGD1 clock implementing
// transport.Transport, scripted closely enough to the real device for the
// engine's tests: it answers reads, stores writes, and acknowledges audio
// uploads.
package fake

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/transport"
)

// Write is one recorded characteristic write
type Write struct {
	Char    transport.Characteristic
	Data    []byte
	Confirm bool
}

// DefaultConfiguration is the read response a fresh Clock reports
var DefaultConfiguration = []byte{
	0x13, 0x02, 0x03, 0x58, 0x02, 0x00, 0x0A, 0x05, 0x55, 0x15,
	0x00, 0x06, 0x00, 0x01, 0x01, 0x00, 0x64, 0x64, 0x64, 0x64,
}

// Clock is a scripted device. Zero values of the knobs give a well-behaved
// clock; set them before the engine connects.
type Clock struct {
	// Address the clock answers to in Discover
	Address string

	// FailOpens makes the first N Open calls fail
	FailOpens int
	// DiscoverErr is returned by every Discover call when set
	DiscoverErr error

	// Silence suppresses replies to configuration / alarm reads
	SilentConfig bool
	SilentAlarms bool
	// DropInitAck / DropBlockAck suppress the upload acknowledgements
	DropInitAck  bool
	DropBlockAck bool
	// Async delivers notifications on a separate goroutine instead of
	// inside Write
	Async bool

	mu        sync.Mutex
	config    []byte
	alarms    [protocol.AlarmSlots][protocol.AlarmRecordLength]byte
	writes    []Write
	opens     int
	discovers int
	packets   int
	conn      *Conn
}

// NewClock returns a clock with DefaultConfiguration and all alarm slots empty
func NewClock(address string) *Clock {
	c := &Clock{Address: address, config: append([]byte(nil), DefaultConfiguration...)}
	for i := range c.alarms {
		c.alarms[i] = protocol.EmptyAlarmRecord
	}
	return c
}

// SetAlarmRecord preloads a slot
func (c *Clock) SetAlarmRecord(slot int, record [protocol.AlarmRecordLength]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alarms[slot] = record
}

// AlarmRecord returns the stored record of a slot
func (c *Clock) AlarmRecord(slot int) [protocol.AlarmRecordLength]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alarms[slot]
}

// SetConfigurationFrame replaces the stored configuration read response
func (c *Clock) SetConfigurationFrame(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = append([]byte(nil), frame...)
}

// ConfigurationFrame returns the stored configuration read response
func (c *Clock) ConfigurationFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.config...)
}

// Writes returns a copy of every write received so far
func (c *Clock) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// WritesWithPrefix returns the writes whose data starts with prefix
func (c *Clock) WritesWithPrefix(prefix ...byte) []Write {
	var out []Write
	for _, w := range c.Writes() {
		if bytes.HasPrefix(w.Data, prefix) {
			out = append(out, w)
		}
	}
	return out
}

// ResetWrites clears the write log
func (c *Clock) ResetWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
}

// Opens returns how many times Open was called
func (c *Clock) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Discovers returns how many times Discover was called
func (c *Clock) Discovers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discovers
}

// Connected reports whether a link is open
func (c *Clock) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.closed
}

// Notify pushes an arbitrary frame to the subscriber, as the clock would
func (c *Clock) Notify(frame []byte) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.deliver(frame)
	}
}

// Drop simulates the clock going out of range
func (c *Clock) Drop() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.drop()
	}
}

// Discover implements transport.Transport
func (c *Clock) Discover(ctx context.Context, address string) (transport.Target, error) {
	c.mu.Lock()
	c.discovers++
	err := c.DiscoverErr
	c.mu.Unlock()

	if err != nil {
		return transport.Target{}, err
	}
	if address != c.Address {
		<-ctx.Done()
		return transport.Target{}, ctx.Err()
	}
	return transport.Target{Address: address, Handle: c}, nil
}

// Open implements transport.Transport
func (c *Clock) Open(ctx context.Context, target transport.Target, onDisconnect func()) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.FailOpens > 0 {
		c.FailOpens--
		return nil, errors.New("fake: connection refused")
	}
	if target.Address != c.Address {
		return nil, errors.New("fake: no such device")
	}
	c.packets = 0
	c.conn = &Conn{clock: c, onDisconnect: onDisconnect}
	return c.conn, nil
}

// handle runs the clock's reaction to a write and returns the frames it
// would notify in response. Called with c.mu held.
func (c *Clock) handle(w Write) [][]byte {
	c.writes = append(c.writes, w)
	d := w.Data
	if len(d) < 2 {
		return nil
	}

	switch {
	case d[0] == protocol.OpRead && d[1] == protocol.SubReadConfiguration:
		if c.SilentConfig {
			return nil
		}
		return [][]byte{append([]byte(nil), c.config...)}

	case d[0] == protocol.OpConfiguration && d[1] == protocol.SubConfigurationWrite && len(d) >= protocol.ConfigurationLength:
		c.config = append([]byte{protocol.OpConfiguration, protocol.SubConfigurationRead}, d[2:protocol.ConfigurationLength]...)

	case d[0] == protocol.OpRead && d[1] == protocol.SubReadAlarms:
		if c.SilentAlarms {
			return nil
		}
		return c.alarmFragments()

	case d[0] == protocol.OpAlarmWrite && d[1] == protocol.SubAlarmWrite && len(d) == 3+protocol.AlarmRecordLength:
		slot := int(d[2])
		if slot < protocol.AlarmSlots {
			copy(c.alarms[slot][:], d[3:])
		}

	case d[0] == protocol.OpAudioInit && d[1] == protocol.SubAudioInit:
		c.packets = 0
		if !c.DropInitAck {
			return [][]byte{{protocol.OpAck, protocol.SubAck, protocol.AckAudioInit}}
		}

	case d[0] == protocol.OpAudioData && d[1] == protocol.SubAudioData:
		c.packets++
		if c.packets%protocol.AudioPacketsInBlock == 0 && !c.DropBlockAck {
			return [][]byte{{protocol.OpAck, protocol.SubAck, protocol.AckAudioBlock, 0x00}}
		}
	}
	return nil
}

// alarmFragments splits the table the way the clock does: slots 0-9, then 10-15
func (c *Clock) alarmFragments() [][]byte {
	build := func(base, end int) []byte {
		frame := []byte{protocol.OpAuth, protocol.SubAlarmSnapshot, byte(base)}
		for i := base; i < end; i++ {
			frame = append(frame, c.alarms[i][:]...)
		}
		return frame
	}
	return [][]byte{build(0, 10), build(10, protocol.AlarmSlots)}
}

// Conn is the fake link returned by Open
type Conn struct {
	clock        *Clock
	onDisconnect func()

	notifyMu sync.Mutex
	onFrame  func([]byte)
	closed   bool
}

// Write implements transport.Conn
func (c *Conn) Write(ctx context.Context, ch transport.Characteristic, data []byte, confirm bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.clock.mu.Lock()
	if c.closed {
		c.clock.mu.Unlock()
		return transport.ErrClosed
	}
	replies := c.clock.handle(Write{Char: ch, Data: append([]byte(nil), data...), Confirm: confirm})
	async := c.clock.Async
	c.clock.mu.Unlock()

	if len(replies) == 0 {
		return nil
	}
	if async {
		go func() {
			for _, r := range replies {
				c.deliver(r)
			}
		}()
		return nil
	}
	for _, r := range replies {
		c.deliver(r)
	}
	return nil
}

// Subscribe implements transport.Conn
func (c *Conn) Subscribe(ch transport.Characteristic, onFrame func([]byte)) error {
	if ch != transport.ConfigRead {
		return errors.New("fake: only cfg-read notifies")
	}
	c.notifyMu.Lock()
	c.onFrame = onFrame
	c.notifyMu.Unlock()
	return nil
}

// Close implements transport.Conn
func (c *Conn) Close() error {
	c.clock.mu.Lock()
	c.closed = true
	if c.clock.conn == c {
		c.clock.conn = nil
	}
	c.clock.mu.Unlock()
	return nil
}

func (c *Conn) deliver(frame []byte) {
	c.notifyMu.Lock()
	fn := c.onFrame
	c.notifyMu.Unlock()
	if fn != nil {
		fn(frame)
	}
}

func (c *Conn) drop() {
	c.clock.mu.Lock()
	already := c.closed
	c.closed = true
	c.clock.mu.Unlock()
	if !already && c.onDisconnect != nil {
		c.onDisconnect()
	}
}
