// Package config loads and saves the aci-cli profile file
// (~/.aci/cli.yaml). A profile stores a server address and static
// credentials so they need not be passed on every invocation.
package config
