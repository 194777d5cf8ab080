// Package client is the Go client of an ACI server.
//
// A Client owns one WebSocket connection. A single receive goroutine
// decodes every inbound message: events go to subscriptions, everything
// else is held until a caller waiting for that signature consumes it.
// Requests carry a ULID request id by default so concurrent requests of
// the same shape resolve to their own responses; WithoutRequestIDs falls
// back to matching by kind, key and database only.
package client
