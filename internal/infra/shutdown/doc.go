// Package shutdown runs named cleanup hooks when the process receives
// SIGINT or SIGTERM, or when a parent context ends.
package shutdown
