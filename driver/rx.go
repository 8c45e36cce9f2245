package driver

import (
	"errors"
	"time"

	"github.com/notnil/armbus"
	"github.com/notnil/armbus/protocol"
)

// rxLoop receives frames until the running flag drops or the transport
// fails fatally.
func (d *Driver) rxLoop() {
	var acc accumulator
	for d.running.Load() {
		f, err := d.transport.Receive(d.cfg.RxTimeout)
		if err != nil {
			switch armbus.Classify(err) {
			case armbus.KindTimeout:
				d.metrics.rxTimeouts.Add(1)
			case armbus.KindFatal:
				d.fail("rx", err)
				return
			default:
				d.metrics.rxErrors.Add(1)
				d.logger.Debug("receive error", "error", err)
			}
			continue
		}
		d.metrics.rxFrames.Add(1)
		d.mux.Dispatch(f)
		d.route(&acc, f)
	}
}

// route decodes one received frame and hands it to the accumulator or the
// diagnostics aggregate.
func (d *Driver) route(acc *accumulator, f armbus.Frame) {
	if f.RTR {
		d.metrics.unknownFrames.Add(1)
		return
	}
	msg, err := protocol.Decode(f)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownID) {
			d.metrics.unknownFrames.Add(1)
			return
		}
		d.metrics.decodeErrors.Add(1)
		d.logger.Debug("decode error", "id", f.ID, "error", err)
		return
	}
	ts := f.Timestamp
	if ts == 0 {
		ts = uint64(time.Now().UnixMicro())
	}

	switch m := msg.(type) {
	case protocol.MotorLowSpeed:
		d.telemetry.updateMotor(m, ts)
		d.metrics.diagnosticUpdates.Add(1)
		return
	case protocol.FirmwareVersion:
		d.telemetry.appendFirmware(m, ts)
		d.metrics.diagnosticUpdates.Add(1)
		return
	}

	g, complete := acc.add(msg, ts)
	switch {
	case g == protocol.GroupNone:
		// Control frames echoed on the bus carry no telemetry.
		d.metrics.unknownFrames.Add(1)
	case complete:
		d.telemetry.commit(g, acc)
		d.metrics.groupCommits.Add(1)
	}
}
