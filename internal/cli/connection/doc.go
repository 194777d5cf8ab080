// Package connection opens aci-cli connections to a server: the
// websocket client used by data commands and an HTTP client for the
// health and client-list endpoints.
package connection
