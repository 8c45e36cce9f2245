package driver

import "sync/atomic"

// Metrics holds the driver counters. Every field is an independent counter;
// readers get a best-effort view, not a consistent cut across fields.
type Metrics struct {
	rxFrames          atomic.Uint64
	rxTimeouts        atomic.Uint64
	rxErrors          atomic.Uint64
	decodeErrors      atomic.Uint64
	unknownFrames     atomic.Uint64
	groupCommits      atomic.Uint64
	diagnosticUpdates atomic.Uint64

	txFrames        atomic.Uint64
	txErrors        atomic.Uint64
	txTimeouts      atomic.Uint64
	partialPackages atomic.Uint64
	burstYields     atomic.Uint64

	realtimeCommands atomic.Uint64
	realtimeFrames   atomic.Uint64
	overwrites       atomic.Uint64

	reliableEnqueued atomic.Uint64
	reliableSent     atomic.Uint64
	queueFull        atomic.Uint64
	sendTimeouts     atomic.Uint64

	fatalErrors atomic.Uint64
}

// MetricsSnapshot is a copy of the counters at one point in time.
type MetricsSnapshot struct {
	RxFrames          uint64 // frames returned by the transport
	RxTimeouts        uint64 // receive calls that ended with nothing
	RxErrors          uint64 // transient receive errors
	DecodeErrors      uint64 // known IDs with malformed payloads
	UnknownFrames     uint64 // frames that carry no telemetry
	GroupCommits      uint64 // snapshots published
	DiagnosticUpdates uint64 // diagnostics aggregate writes

	TxFrames        uint64 // frames accepted by the transport
	TxErrors        uint64 // transient send errors
	TxTimeouts      uint64 // send calls that timed out
	PartialPackages uint64 // realtime packages cut short by a send error
	BurstYields     uint64 // times the burst limit forced a queue turn

	RealtimeCommands uint64 // commands accepted by the mailbox
	RealtimeFrames   uint64 // frames in those commands
	Overwrites       uint64 // commands replaced before transmission

	ReliableEnqueued uint64
	ReliableSent     uint64
	QueueFull        uint64
	SendTimeouts     uint64

	FatalErrors uint64
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		RxFrames:          m.rxFrames.Load(),
		RxTimeouts:        m.rxTimeouts.Load(),
		RxErrors:          m.rxErrors.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		UnknownFrames:     m.unknownFrames.Load(),
		GroupCommits:      m.groupCommits.Load(),
		DiagnosticUpdates: m.diagnosticUpdates.Load(),
		TxFrames:          m.txFrames.Load(),
		TxErrors:          m.txErrors.Load(),
		TxTimeouts:        m.txTimeouts.Load(),
		PartialPackages:   m.partialPackages.Load(),
		BurstYields:       m.burstYields.Load(),
		RealtimeCommands:  m.realtimeCommands.Load(),
		RealtimeFrames:    m.realtimeFrames.Load(),
		Overwrites:        m.overwrites.Load(),
		ReliableEnqueued:  m.reliableEnqueued.Load(),
		ReliableSent:      m.reliableSent.Load(),
		QueueFull:         m.queueFull.Load(),
		SendTimeouts:      m.sendTimeouts.Load(),
		FatalErrors:       m.fatalErrors.Load(),
	}
}

// OverwriteRate is the fraction of realtime commands that were replaced
// before the TX pipeline picked them up. A rate near 1 means the caller
// produces faster than the bus drains.
func (s MetricsSnapshot) OverwriteRate() float64 {
	if s.RealtimeCommands == 0 {
		return 0
	}
	return float64(s.Overwrites) / float64(s.RealtimeCommands)
}
