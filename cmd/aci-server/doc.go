// Package main provides the entry point for aci-server.
//
// aci-server serves the ACI key-value store over a websocket endpoint,
// with /healthz, /readyz, /clients and /metrics on the same listener.
// Configuration comes from a YAML file, ACI_* environment variables and
// the reserved config database under the storage root.
package main
