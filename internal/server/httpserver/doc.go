// Package httpserver serves the ACI endpoints over HTTP or HTTPS:
//
//   - the websocket endpoint (server.ws_path)
//   - /metrics (Prometheus)
//   - /healthz and /readyz
//   - /clients, the connected session list, behind a network allow-list
//
// Requests pass through a middleware chain of Recover, RequestID and
// AccessLog. The websocket route skips AccessLog since its handler runs
// for the life of the connection.
package httpserver
