// Package config defines the aci-server process configuration.
//
//   - spec.go: ServerConfig struct definition (koanf tags)
//   - default.go: default values
//   - verify.go: validation after loading
//   - sanitize.go: a copy safe to log
//
// Values are loaded by internal/infra/confloader. The reserved config
// database read by the storage engine at startup overrides the listen
// address and storage root.
package config
