package device

import (
	"go.uber.org/zap"

	"github.com/muurk/cgd1/internal/eventbus"
	"github.com/muurk/cgd1/internal/logging"
	"github.com/muurk/cgd1/internal/metrics"
	"github.com/muurk/cgd1/internal/protocol"
)

// dispatch routes one notification from the config-read characteristic.
// It runs on the transport's callback goroutine and must never block.
func (d *Device) dispatch(frame []byte) {
	d.mu.Lock()
	log := d.log
	d.mu.Unlock()

	logging.LogFrame(log, "rx", "cfg-read", frame)
	kind := protocol.Classify(frame)
	d.metrics.Frame(metrics.DirectionIn, kind.String())

	switch kind {
	case protocol.FrameAck:
		d.handleAck(log, frame)
	case protocol.FrameConfiguration:
		d.handleConfiguration(log, frame)
	case protocol.FrameAlarmSnapshot:
		d.handleAlarmFragment(log, frame)
	default:
		logging.LogRawBytes(log, "ignoring notification", frame)
	}
}

func (d *Device) handleAck(log *zap.Logger, frame []byte) {
	a, err := protocol.ParseAck(frame)
	if err != nil {
		log.Debug("bad ack", zap.Error(err))
		logging.LogRawBytes(log, "bad ack frame", frame)
		return
	}
	if !d.acks.Resolve(a.Opcode, a) {
		log.Warn("unmatched ack", zap.Uint8("opcode", a.Opcode), zap.Binary("payload", a.Payload))
		return
	}
	log.Debug("ack", zap.Uint8("opcode", a.Opcode))
}

func (d *Device) handleConfiguration(log *zap.Logger, frame []byte) {
	cfg, err := protocol.DecodeConfiguration(frame, d.now())
	if err != nil {
		log.Warn("bad configuration frame", zap.Error(err))
		logging.LogRawBytes(log, "bad configuration frame", frame)
		return
	}

	d.cacheMu.Lock()
	d.config = cfg
	d.cacheMu.Unlock()

	log.Debug("configuration received", zap.Stringer("ringtone", cfg.Ringtone()))
	d.configWaits.Resolve(protocol.OpConfiguration, cfg.Clone())
	d.bus.Publish(eventbus.Event{
		Kind:          eventbus.ConfigurationUpdated,
		Address:       d.address,
		Configuration: cfg.Clone(),
	})
}

func (d *Device) handleAlarmFragment(log *zap.Logger, frame []byte) {
	frag, err := protocol.ParseAlarmFragment(frame)
	if err != nil {
		log.Debug("bad alarm fragment", zap.Error(err))
		logging.LogRawBytes(log, "bad alarm fragment", frame)
		return
	}

	alarms, complete := d.snapshot.add(frag)
	log.Debug("alarm fragment",
		zap.Int("base", frag.Base),
		zap.Int("records", len(frag.Records)),
		zap.Bool("complete", complete))

	if complete {
		d.alarmWaits.Resolve(protocol.SubAlarmSnapshot, cloneAlarms(alarms))
	}
	d.bus.Publish(eventbus.Event{
		Kind:    eventbus.AlarmsUpdated,
		Address: d.address,
		Alarms:  alarms,
		Partial: !complete,
	})
}
