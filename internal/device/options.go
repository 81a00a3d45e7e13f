package device

import "time"

// Options holds the timeouts and pacing delays of the engine
type Options struct {
	// ScanTimeout bounds discovery; on expiry the raw address is used
	ScanTimeout time.Duration

	// ConnectTimeout bounds a single link attempt
	ConnectTimeout time.Duration

	// ConnectionTimeout bounds EnsureConnected across all retries
	ConnectionTimeout time.Duration

	// RetryInterval is the fixed delay between connect attempts
	RetryInterval time.Duration

	// ResponseTimeout bounds configuration and alarm reads
	ResponseTimeout time.Duration

	// SettleDelay is waited after the link opens, before authenticating
	SettleDelay time.Duration

	// IdleDisconnect drops the link this long after the last mutating
	// write (0 keeps the link open)
	IdleDisconnect time.Duration

	// InitAckTimeout bounds the wait for the upload header ack
	InitAckTimeout time.Duration

	// BlockAckTimeout bounds the wait for each block ack
	BlockAckTimeout time.Duration

	// PacketPace spaces the packets inside a block
	PacketPace time.Duration

	// BlockPace is waited after each acknowledged block
	BlockPace time.Duration
}

// DefaultOptions returns the timings the clock is known to work with
func DefaultOptions() Options {
	return Options{
		ScanTimeout:       8 * time.Second,
		ConnectTimeout:    10 * time.Second,
		ConnectionTimeout: 30 * time.Second,
		RetryInterval:     2 * time.Second,
		ResponseTimeout:   10 * time.Second,
		SettleDelay:       2 * time.Second,
		IdleDisconnect:    5 * time.Second,
		InitAckTimeout:    2 * time.Second,
		BlockAckTimeout:   10 * time.Second,
		PacketPace:        20 * time.Millisecond,
		BlockPace:         5 * time.Second,
	}
}

// withDefaults fills zero timeouts from DefaultOptions. Delays keep zero.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	fill := func(v *time.Duration, d time.Duration) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&o.ScanTimeout, def.ScanTimeout)
	fill(&o.ConnectTimeout, def.ConnectTimeout)
	fill(&o.ConnectionTimeout, def.ConnectionTimeout)
	fill(&o.RetryInterval, def.RetryInterval)
	fill(&o.ResponseTimeout, def.ResponseTimeout)
	fill(&o.InitAckTimeout, def.InitAckTimeout)
	fill(&o.BlockAckTimeout, def.BlockAckTimeout)
	return o
}
