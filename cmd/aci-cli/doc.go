// Package main provides the entry point for aci-cli.
//
// aci-cli talks to an ACI server over its websocket endpoint:
//
//   - Values and lists (get, set, get-index, set-index, append, len, recent)
//   - Databases (list-keys, create-db, write, read)
//   - Events (event send, event listen)
//   - Server health and connected clients
//   - Credential helpers (token, idtoken)
//
// Usage:
//
//	aci-cli -s ws://127.0.0.1:8765/ --id svc --token ... get main greeting
//	aci-cli config set-profile --server ws://db:8765/ --id svc --token ... --use prod
package main
