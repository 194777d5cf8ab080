package connection

import (
	"net/http"

	"github.com/yndnr/aci-go/internal/infra/tlsroots"
)

// newHTTPClient returns an http.Client trusting the system roots plus
// caFiles. Empty caFiles keeps the default transport.
func newHTTPClient(caFiles []string) (*http.Client, error) {
	var files []string
	for _, f := range caFiles {
		if f != "" {
			files = append(files, f)
		}
	}
	cfg, err := tlsroots.ClientConfig(files...)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &http.Client{}, nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = cfg
	return &http.Client{Transport: transport}, nil
}
