// Package wsserver serves ACI clients over WebSocket.
//
// Each connection is a session with its own read loop: frames are decoded
// as protocol.Request, dispatched to the storage engine or the auth
// service with the session's identity, and answered in order. Sessions
// that authenticate are registered under their principal so that events
// can be routed to them by SendEvent.
//
//   - server.go: Server, accept path and shutdown
//   - session.go: per-connection state and the session registry
//   - handler.go: command dispatch
//   - event.go: event fan-out
package wsserver
