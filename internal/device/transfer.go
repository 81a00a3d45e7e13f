package device

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/cgd1/internal/ack"
	"github.com/muurk/cgd1/internal/protocol"
	"github.com/muurk/cgd1/internal/transport"
)

// ProgressFunc receives the fraction of payload bytes sent, in (0, 1].
// It is called from the uploading goroutine.
type ProgressFunc func(fraction float64)

// UploadRingtone streams pcm (8 kHz, unsigned 8-bit, mono) into the
// ringtone slot identified by sig.
//
// The transfer is a header acknowledged with opcode 0x10, then blocks of
// four 128-byte packets, each block acknowledged with opcode 0x08. A missing
// acknowledgement aborts the transfer; nothing already written is rolled
// back.
func (d *Device) UploadRingtone(ctx context.Context, pcm []byte, sig protocol.Signature, progress ProgressFunc) error {
	header, err := protocol.BuildAudioInit(len(pcm), sig)
	if err != nil {
		return err
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return err
	}

	d.begin()
	defer d.end(true)
	return d.transfer(ctx, pcm, header, progress)
}

// UploadRingtoneAuto uploads into whichever custom slot is not currently
// selected and returns that slot's signature.
func (d *Device) UploadRingtoneAuto(ctx context.Context, pcm []byte, progress ProgressFunc) (protocol.Signature, error) {
	if _, err := protocol.BuildAudioInit(len(pcm), protocol.CustomSlotDead); err != nil {
		return protocol.Signature{}, err
	}
	if err := d.EnsureConnected(ctx); err != nil {
		return protocol.Signature{}, err
	}
	cfg, err := d.ensureConfiguration(ctx)
	if err != nil {
		return protocol.Signature{}, err
	}

	current := cfg.Ringtone()
	sig := protocol.ChooseNextCustomSlot(&current)
	d.logger().Info("selected upload slot",
		zap.String("current", protocol.SignatureName(current)),
		zap.String("target", protocol.SignatureName(sig)))

	return sig, d.UploadRingtone(ctx, pcm, sig, progress)
}

func (d *Device) transfer(ctx context.Context, payload, header []byte, progress ProgressFunc) error {
	_, log, err := d.current()
	if err != nil {
		return protocol.NewTransferError(protocol.StageInit, 0, err)
	}

	blocks := protocol.SplitAudioBlocks(payload)
	log.Info("uploading ringtone", zap.Int("bytes", len(payload)), zap.Int("blocks", len(blocks)))
	start := time.Now()

	w := d.acks.Arm(protocol.AckAudioInit)
	if err := d.write(ctx, transport.ConfigWrite, header, true); err != nil {
		w.Cancel(err)
		return protocol.NewTransferError(protocol.StageInit, 0, err)
	}
	if _, err := await(ctx, d, w, d.opts.InitAckTimeout, protocol.PhaseAck, "upload header ack"); err != nil {
		return protocol.NewTransferError(protocol.StageInitAck, 0, err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if d.opts.PacketPace > 0 {
		limiter = rate.NewLimiter(rate.Every(d.opts.PacketPace), 1)
	}
	report := &progressReporter{total: len(payload), fn: progress}

	for b, block := range blocks {
		for p := 0; p < protocol.AudioPacketsInBlock; p++ {
			if err := limiter.Wait(ctx); err != nil {
				return protocol.NewTransferError(protocol.StageData, b, protocol.NewCancelledError("upload cancelled"))
			}

			chunk := block[p*protocol.AudioPacketSize : (p+1)*protocol.AudioPacketSize]
			packet, err := protocol.BuildAudioPacket(chunk)
			if err != nil {
				return protocol.NewTransferError(protocol.StageData, b, err)
			}

			last := p == protocol.AudioPacketsInBlock-1
			var bw *ack.Waiter[byte, protocol.Ack]
			if last {
				bw = d.acks.Arm(protocol.AckAudioBlock)
			}
			if err := d.write(ctx, transport.ConfigWrite, packet, true); err != nil {
				if bw != nil {
					bw.Cancel(err)
				}
				return protocol.NewTransferError(protocol.StageData, b, err)
			}

			n := payloadBytes(len(payload), b, p)
			d.metrics.Uploaded(n)
			report.add(n)

			if last {
				if _, err := await(ctx, d, bw, d.opts.BlockAckTimeout, protocol.PhaseAck, "block ack"); err != nil {
					return protocol.NewTransferError(protocol.StageBlockAck, b, err)
				}
			}
		}
		log.Debug("block acknowledged", zap.Int("block", b+1), zap.Int("of", len(blocks)))

		if b < len(blocks)-1 {
			if err := sleepCtx(ctx, d.opts.BlockPace); err != nil {
				return protocol.NewTransferError(protocol.StageData, b+1, protocol.NewCancelledError("upload cancelled"))
			}
		}
	}

	log.Info("upload complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// payloadBytes is how many real (unpadded) bytes packet p of block b carries
func payloadBytes(size, b, p int) int {
	off := b*protocol.AudioBlockSize + p*protocol.AudioPacketSize
	n := size - off
	switch {
	case n <= 0:
		return 0
	case n > protocol.AudioPacketSize:
		return protocol.AudioPacketSize
	default:
		return n
	}
}

// progressReporter forwards progress at most once per whole percent
type progressReporter struct {
	total int
	sent  int
	last  int
	fn    ProgressFunc
}

func (r *progressReporter) add(n int) {
	r.sent += n
	if r.fn == nil || r.total == 0 {
		return
	}
	pct := r.sent * 100 / r.total
	if pct > r.last {
		r.last = pct
		r.fn(float64(r.sent) / float64(r.total))
	}
}
