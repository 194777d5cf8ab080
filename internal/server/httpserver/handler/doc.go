// Package handler implements the plain HTTP endpoints of aci-server:
// health, readiness and the connected client list. Responses use the
// Response envelope.
package handler
