// Package driver is the concurrency core of the arm driver.
//
// Two long-lived goroutines, each locked to its own OS thread, own the bus:
//
//   - RX receives frames with a bounded timeout, assembles multi-frame
//     telemetry groups and publishes each completed group as a new immutable
//     Snapshot with one atomic pointer store.
//   - TX drains the realtime Mailbox first and the ReliableQueue second. The
//     mailbox holds only the latest command; older unsent commands are
//     replaced and counted as overwrites. After BurstLimit consecutive
//     mailbox deliveries the queue gets a turn.
//
// Both loops poll one shared running flag. A fatal transport error in either
// clears it and both stop. Shutdown does the same on request and waits for
// them.
//
//	d, err := driver.Open(driver.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer d.Shutdown()
//	frames, _ := protocol.JointCommand(50, target)
//	err = d.SendRealtimeFrames(frames...)
//	joints := d.Snapshot().Joints
package driver
