// Package buildinfo reports the build version of the ACI binaries.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/aci-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Values not injected fall back to the module build info embedded by the
// Go toolchain.
package buildinfo
