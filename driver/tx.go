package driver

import (
	"time"

	"github.com/notnil/armbus"
)

// txLoop drains the mailbox first and the reliable queue second until the
// running flag drops or the transport fails fatally.
//
// After BurstLimit consecutive mailbox takes the loop takes a queue turn even
// if the mailbox is already full again, so a reliable frame waits at most
// BurstLimit realtime packages. A take counts whether or not its package
// reached the bus; failing realtime traffic still yields to the queue.
func (d *Driver) txLoop() {
	burst := 0
	for d.running.Load() {
		worked := false

		if cmd, ok := d.mailbox.Take(); ok {
			worked = true
			if !d.transmitPackage(cmd) {
				return
			}
			burst++
			if burst < d.cfg.BurstLimit {
				continue
			}
			d.metrics.burstYields.Add(1)
		}
		burst = 0

		if f, ok := d.queue.TryDequeue(); ok {
			worked = true
			if !d.transmit(f) {
				return
			}
			d.metrics.reliableSent.Add(1)
		}

		if !worked {
			time.Sleep(d.cfg.IdleSleep)
		}
	}
}

// transmitPackage sends the frames of cmd in order and stops at the first
// failure. It returns false if the failure was fatal.
func (d *Driver) transmitPackage(cmd Command) bool {
	n := cmd.Len()
	for i := 0; i < n; i++ {
		err := d.transport.Send(cmd.Frame(i))
		if err == nil {
			d.metrics.txFrames.Add(1)
			continue
		}
		if i > 0 {
			d.metrics.partialPackages.Add(1)
			d.logger.Warn("realtime package cut short",
				"error", ErrPartialPackageSent, "sent", i, "frames", n, "cause", err)
		}
		return d.sendFailed(err)
	}
	return true
}

// transmit sends a single reliable frame. It returns false if the failure was
// fatal.
func (d *Driver) transmit(f armbus.Frame) bool {
	if err := d.transport.Send(f); err != nil {
		d.logger.Warn("reliable frame not sent", "id", f.ID, "error", err)
		return d.sendFailed(err)
	}
	d.metrics.txFrames.Add(1)
	return true
}

func (d *Driver) sendFailed(err error) bool {
	switch armbus.Classify(err) {
	case armbus.KindFatal:
		d.fail("tx", err)
		return false
	case armbus.KindTimeout:
		d.metrics.txTimeouts.Add(1)
	default:
		d.metrics.txErrors.Add(1)
	}
	return true
}
