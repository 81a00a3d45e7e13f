package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/cgd1/internal/ack"
	"github.com/muurk/cgd1/internal/eventbus"
	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/metrics"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/transport"
)

// State is the connection lifecycle of a Device
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config describes the clock a Device talks to
type Config struct {
	// Address is the clock's BLE address (e.g., "58:2D:34:00:00:01")
	Address string

	// Token is the 16-byte pairing token
	Token protocol.Token

	// Transport opens links to the clock
	Transport transport.Transport

	// Options tunes timeouts and delays. Zero timeouts take the value from
	// DefaultOptions; zero delays (settle, idle, pacing) mean none.
	Options Options

	// Bus receives the device events; a private bus is created when nil
	Bus *eventbus.Bus

	// Metrics is optional
	Metrics *metrics.Metrics
}

// Device is a connection to one CGD1 clock.
//
// All methods are safe for concurrent use. Connecting is serialized;
// configuration and alarm round-trips may interleave.
type Device struct {
	address string
	token   protocol.Token
	tr      transport.Transport
	opts    Options
	bus     *eventbus.Bus
	ownsBus bool
	metrics *metrics.Metrics
	now     func() time.Time

	// connectMu serializes Connect and Disconnect
	connectMu sync.Mutex

	// mu protects the link state below
	mu          sync.Mutex
	state       State
	conn        transport.Conn
	connGen     uint64
	log         *zap.Logger
	idle        *time.Timer
	idleGen     uint64
	idlePending bool
	busy        int

	acks        *ack.Registry[byte, protocol.Ack]
	configWaits *ack.Registry[byte, *protocol.Configuration]
	alarmWaits  *ack.Registry[byte, []protocol.Alarm]

	cacheMu sync.RWMutex
	config  *protocol.Configuration

	snapshot *snapshot
}

// New creates a disconnected Device
func New(cfg Config) (*Device, error) {
	if cfg.Address == "" {
		return nil, protocol.NewValidationError("device address is required")
	}
	if cfg.Token.IsZero() {
		return nil, protocol.NewValidationError("device token is required")
	}
	if cfg.Transport == nil {
		return nil, protocol.NewValidationError("transport is required")
	}

	opts := cfg.Options
	if opts == (Options{}) {
		opts = DefaultOptions()
	} else {
		opts = opts.withDefaults()
	}

	bus, owns := cfg.Bus, false
	if bus == nil {
		bus, owns = eventbus.New(), true
	}

	return &Device{
		address:     cfg.Address,
		token:       cfg.Token,
		tr:          cfg.Transport,
		opts:        opts,
		bus:         bus,
		ownsBus:     owns,
		metrics:     cfg.Metrics,
		now:         time.Now,
		log:         logging.With(zap.String("device", cfg.Address)),
		acks:        ack.NewRegistry[byte, protocol.Ack](),
		configWaits: ack.NewRegistry[byte, *protocol.Configuration](),
		alarmWaits:  ack.NewRegistry[byte, []protocol.Alarm](),
		snapshot:    newSnapshot(),
	}, nil
}

// Address returns the clock's BLE address
func (d *Device) Address() string { return d.address }

// Events returns the bus the device publishes to
func (d *Device) Events() *eventbus.Bus { return d.bus }

// State returns the current connection state
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsConnected reports whether an authenticated link is up
func (d *Device) IsConnected() bool {
	return d.State() == StateConnected
}

func (d *Device) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Connect makes a single attempt to open and authenticate a link. It
// returns nil immediately when already connected.
func (d *Device) Connect(ctx context.Context) error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	if d.IsConnected() {
		return nil
	}
	err := d.connect(ctx)
	d.metrics.ConnectAttempt(err)
	return err
}

func (d *Device) connect(ctx context.Context) error {
	log := logging.With(zap.String("device", d.address), zap.String("session", uuid.NewString()))
	d.setState(StateConnecting)

	target := d.discover(ctx, log)

	d.mu.Lock()
	d.connGen++
	gen := d.connGen
	d.mu.Unlock()

	log.Debug("opening link")
	openCtx, cancel := context.WithTimeout(ctx, d.opts.ConnectTimeout)
	conn, err := d.tr.Open(openCtx, target, func() { d.onDisconnect(gen) })
	cancel()
	if err != nil {
		d.setState(StateDisconnected)
		if ctx.Err() != nil {
			return protocol.NewCancelledError("connect cancelled")
		}
		log.Debug("open failed", zap.Error(err))
		return protocol.NewConnectionError(fmt.Sprintf("failed to connect to %s", d.address), err)
	}

	fail := func(err error) error {
		_ = conn.Close()
		d.setState(StateDisconnected)
		if ctx.Err() != nil {
			return protocol.NewCancelledError("connect cancelled")
		}
		return err
	}

	if err := sleepCtx(ctx, d.opts.SettleDelay); err != nil {
		return fail(err)
	}

	d.setState(StateAuthenticating)
	log.Debug("authenticating")
	step1, step2 := protocol.BuildAuthFrames(d.token)
	for _, frame := range [][]byte{step1, step2} {
		if err := d.writeTo(ctx, log, conn, transport.Main, frame, false); err != nil {
			return fail(protocol.NewConnectionError("authentication failed", err))
		}
	}

	if err := conn.Subscribe(transport.ConfigRead, d.dispatch); err != nil {
		return fail(protocol.NewConnectionError("failed to enable notifications", err))
	}

	d.mu.Lock()
	if d.connGen != gen {
		d.mu.Unlock()
		return fail(protocol.NewConnectionError("link dropped during authentication", nil))
	}
	d.conn = conn
	d.log = log
	d.state = StateConnected
	d.mu.Unlock()

	d.metrics.SetConnected(true)
	d.bus.Publish(eventbus.Event{Kind: eventbus.Connected, Address: d.address})
	log.Info("connected")
	return nil
}

// discover looks the clock up by address. Failure is not fatal: the raw
// address is tried directly.
func (d *Device) discover(ctx context.Context, log *zap.Logger) transport.Target {
	scanCtx, cancel := context.WithTimeout(ctx, d.opts.ScanTimeout)
	defer cancel()

	log.Debug("scanning")
	target, err := d.tr.Discover(scanCtx, d.address)
	if err != nil {
		log.Debug("scan failed, using address directly", zap.Error(err))
		return transport.Target{Address: d.address}
	}
	return target
}

// EnsureConnected connects if needed, retrying at Options.RetryInterval
// until Options.ConnectionTimeout elapses. On a live link a running idle
// countdown restarts, so the caller gets a full idle period.
func (d *Device) EnsureConnected(ctx context.Context) error {
	if d.holdConnected() {
		return nil
	}

	connCtx, cancel := context.WithTimeout(ctx, d.opts.ConnectionTimeout)
	defer cancel()

	var lastErr error
	attempt := 0
	op := func() error {
		attempt++
		err := d.Connect(connCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !protocol.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		d.logger().Warn("connect attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", d.opts.RetryInterval),
			zap.Error(err))
		return err
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(d.opts.RetryInterval), connCtx)
	err := backoff.Retry(op, b)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return protocol.NewCancelledError("connect cancelled")
	case connCtx.Err() != nil:
		d.logger().Error("connection timeout", zap.Int("attempts", attempt))
		return protocol.NewTimeoutError(protocol.PhaseConnect,
			fmt.Sprintf("could not connect to %s within %s", d.address, d.opts.ConnectionTimeout), lastErr)
	default:
		return err
	}
}

// Disconnect closes the link. It is a no-op when not connected.
func (d *Device) Disconnect() error {
	return d.disconnect(func() bool { return true })
}

// disconnect detaches the current link if allow, evaluated under d.mu, agrees
func (d *Device) disconnect(allow func() bool) error {
	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	d.mu.Lock()
	conn := d.conn
	if conn == nil || !allow() {
		d.mu.Unlock()
		return nil
	}
	d.detachLocked()
	log := d.log
	d.mu.Unlock()

	err := conn.Close()
	log.Info("disconnected")
	d.afterDetach()
	if err != nil {
		return protocol.NewTransportError("disconnect failed", err)
	}
	return nil
}

// onDisconnect handles a link drop reported by the transport. Drops of a
// link that is no longer current are ignored.
func (d *Device) onDisconnect(gen uint64) {
	d.mu.Lock()
	if gen != d.connGen {
		d.mu.Unlock()
		return
	}
	conn := d.conn
	d.detachLocked()
	log := d.log
	d.mu.Unlock()

	// Still connecting: connect notices the generation change
	if conn == nil {
		return
	}
	log.Warn("connection lost")
	_ = conn.Close()
	d.afterDetach()
}

func (d *Device) detachLocked() {
	d.connGen++
	d.conn = nil
	d.state = StateDisconnected
	d.stopIdleLocked()
}

func (d *Device) afterDetach() {
	err := protocol.NewNotConnectedError("disconnected")
	d.acks.CancelAll(err)
	d.configWaits.CancelAll(err)
	d.alarmWaits.CancelAll(err)
	d.snapshot.discardPending()
	d.metrics.SetConnected(false)
	d.bus.Publish(eventbus.Event{Kind: eventbus.Disconnected, Address: d.address})
}

// Close disconnects and, if the device created its own bus, closes it
func (d *Device) Close() error {
	err := d.Disconnect()
	if d.ownsBus {
		d.bus.Close()
	}
	return err
}

// begin marks an operation in flight; the idle countdown is paused until
// the matching end.
func (d *Device) begin() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy++
	d.idleGen++
	if d.idle != nil {
		d.idle.Stop()
	}
}

// end re-arms the idle countdown once nothing is in flight, provided this
// or an earlier operation changed the clock's state.
func (d *Device) end(mutated bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy--
	if mutated {
		d.idlePending = true
	}
	if d.busy > 0 || !d.idlePending || d.conn == nil || d.opts.IdleDisconnect <= 0 {
		return
	}
	d.armIdleLocked()
}

// holdConnected reports whether the link is up, restarting the idle
// countdown if one is running.
func (d *Device) holdConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateConnected {
		return false
	}
	if d.idle != nil && d.busy == 0 && d.idlePending && d.opts.IdleDisconnect > 0 {
		d.armIdleLocked()
	}
	return true
}

func (d *Device) armIdleLocked() {
	if d.idle != nil {
		d.idle.Stop()
	}
	d.idleGen++
	gen := d.idleGen
	d.idle = time.AfterFunc(d.opts.IdleDisconnect, func() { d.idleExpired(gen) })
}

func (d *Device) idleExpired(gen uint64) {
	err := d.disconnect(func() bool {
		if gen != d.idleGen || d.busy > 0 {
			return false
		}
		d.log.Debug("idle, disconnecting")
		return true
	})
	if err != nil {
		d.logger().Warn("idle disconnect failed", zap.Error(err))
	}
}

func (d *Device) stopIdleLocked() {
	d.idleGen++
	d.idlePending = false
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
}

func (d *Device) logger() *zap.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.log
}

// current returns the live link and its session logger
func (d *Device) current() (transport.Conn, *zap.Logger, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.state != StateConnected {
		return nil, d.log, protocol.NewNotConnectedError(fmt.Sprintf("not connected to %s", d.address))
	}
	return d.conn, d.log, nil
}

func (d *Device) write(ctx context.Context, ch transport.Characteristic, frame []byte, confirm bool) error {
	conn, log, err := d.current()
	if err != nil {
		return err
	}
	return d.writeTo(ctx, log, conn, ch, frame, confirm)
}

func (d *Device) writeTo(ctx context.Context, log *zap.Logger, conn transport.Conn, ch transport.Characteristic, frame []byte, confirm bool) error {
	logging.LogFrame(log, "tx", ch.String(), frame)
	d.metrics.Frame(metrics.DirectionOut, protocol.Describe(frame))

	if err := conn.Write(ctx, ch, frame, confirm); err != nil {
		logging.LogRawBytes(log, "write failed", frame)
		switch {
		case errors.Is(err, transport.ErrClosed):
			return protocol.NewNotConnectedError("link closed")
		case ctx.Err() != nil:
			return protocol.NewCancelledError("write cancelled")
		}
		return protocol.NewTransportError(fmt.Sprintf("%s write to %s failed", protocol.Describe(frame), ch), err)
	}
	return nil
}

// await waits for w with a timeout and maps the outcome onto the error
// taxonomy.
func await[V any](ctx context.Context, d *Device, w *ack.Waiter[byte, V], timeout time.Duration, phase protocol.TimeoutPhase, what string) (V, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := w.Wait(waitCtx)
	switch {
	case err == nil:
		d.metrics.AckWait(w.Key(), metrics.ResultOK)
		return v, nil
	case errors.Is(err, ack.ErrSuperseded):
		d.metrics.AckWait(w.Key(), metrics.ResultSuperseded)
		return v, protocol.NewCancelledError(what + " superseded by a newer request")
	case ctx.Err() != nil:
		return v, protocol.NewCancelledError(what + " cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		d.metrics.AckWait(w.Key(), metrics.ResultTimeout)
		return v, protocol.NewTimeoutError(phase, fmt.Sprintf("no %s within %s", what, timeout), err)
	default:
		return v, err
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
