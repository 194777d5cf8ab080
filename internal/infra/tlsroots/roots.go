package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned when a PEM input holds no certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// LoadPool returns the system root pool extended with the certificates in
// files. An unavailable system pool starts from an empty one.
func LoadPool(files ...string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: read %s: %w", f, err)
		}
		if err := AppendPEM(pool, data); err != nil {
			return nil, fmt.Errorf("tlsroots: %s: %w", f, err)
		}
	}
	return pool, nil
}

// AppendPEM adds every CERTIFICATE block of data to pool. Other block
// types are skipped.
func AppendPEM(pool *x509.CertPool, data []byte) error {
	added := 0
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		pool.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// ClientConfig returns a client TLS config trusting the system roots and
// caFiles. With no files it returns nil so callers keep Go's defaults.
func ClientConfig(caFiles ...string) (*tls.Config, error) {
	if len(caFiles) == 0 {
		return nil, nil
	}
	pool, err := LoadPool(caFiles...)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
