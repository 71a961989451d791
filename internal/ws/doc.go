// Package ws provides WebSocket connection handling and message routing
// for the browser bridge.
//
// The package implements:
//   - Hub: Manages the shared set of client connections (terminal UI
//     clients and the browser extension)
//   - Client: A single connection with a buffered outbound queue
//   - Handler: Routes inbound envelopes (terminal input/resize, browser
//     responses) and broadcasts outbound ones
//
// Key behaviors:
//   - Broadcast serializes a message once and fans it out; closed clients
//     are skipped
//   - Malformed or unknown inbound payloads are logged and dropped without
//     closing the connection
//   - Reconnecting clients receive buffered terminal history for hot restore
//   - A disconnecting peer never fails pending browser calls; they are left
//     to their timers
package ws
