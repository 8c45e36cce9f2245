// Package armbus provides the transport layer for driving a multi-joint robotic
// arm over a CAN bus.
//
// It includes:
//   - A core Frame type with validation, capture timestamp and can_frame
//     binary marshaling
//   - The Transport boundary (timed Receive, Send) with a Timeout/Transient/
//     Fatal error taxonomy consumed by the driver pipelines
//   - An in-memory loopback bus for tests and simulations
//   - A logging decorator, composable frame filters and a non-blocking frame
//     fan-out Mux
//   - A Linux SocketCAN transport and interface helpers (linux-only)
//
// The byte-level message codec lives in package protocol, the USB serial
// bridge in package slcan, and the realtime RX/TX pipelines in package driver.
package armbus
