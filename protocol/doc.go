// Package protocol is the frame codec for the arm's CAN messages.
//
// It is stateless: every message type converts to and from a single
// armbus.Frame through MarshalCANFrame/UnmarshalCANFrame, and Decode
// dispatches on the frame identifier to the matching type. Feedback
// identifiers are additionally classified into Groups so the driver can tell
// which physical frames form one logical, must-be-atomic telemetry update.
//
// Payloads are big-endian. Angles are in 0.001 degree, positions in 0.001 mm.
package protocol
