package tlsroots

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/aci-go/internal/telemetry/logger"
)

// writeCert writes a self-signed certificate for 127.0.0.1 and its key
// and returns the serial number.
func writeCert(t *testing.T, certFile, keyFile string) *big.Int {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "aci-test"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return serial
}

func certPair(t *testing.T) (string, string) {
	dir := t.TempDir()
	return filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")
}

func servedSerial(t *testing.T, r *CertReloader) *big.Int {
	t.Helper()
	cert, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	return leaf.SerialNumber
}

func TestAppendPEM(t *testing.T) {
	certFile, keyFile := certPair(t)
	writeCert(t, certFile, keyFile)
	certPEM, _ := os.ReadFile(certFile)
	keyPEM, _ := os.ReadFile(keyFile)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"certificate", certPEM, nil},
		{"certificate after key", append(append([]byte{}, keyPEM...), certPEM...), nil},
		{"key only", keyPEM, ErrNoCertsFound},
		{"empty", nil, ErrNoCertsFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AppendPEM(x509.NewCertPool(), tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")})
	if err := AppendPEM(x509.NewCertPool(), bad); err == nil {
		t.Error("junk certificate accepted")
	}
}

func TestLoadPool(t *testing.T) {
	if _, err := LoadPool(); err != nil {
		t.Fatalf("LoadPool() = %v", err)
	}
	if _, err := LoadPool(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestClientConfig(t *testing.T) {
	cfg, err := ClientConfig()
	if err != nil || cfg != nil {
		t.Fatalf("ClientConfig() = %v, %v; want nil, nil", cfg, err)
	}

	certFile, keyFile := certPair(t)
	writeCert(t, certFile, keyFile)
	r, err := NewCertReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	ts.TLS = r.ServerConfig()
	ts.StartTLS()
	defer ts.Close()

	if _, err := http.Get(ts.URL); err == nil {
		t.Fatal("untrusted certificate accepted with default roots")
	}

	cfg, err = ClientConfig(certFile)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("trusted get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestNewCertReloader_Errors(t *testing.T) {
	certFile, keyFile := certPair(t)
	if _, err := NewCertReloader(certFile, keyFile); err == nil {
		t.Error("missing files accepted")
	}
	if err := os.WriteFile(certFile, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, []byte("nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCertReloader(certFile, keyFile); err == nil {
		t.Error("invalid pair accepted")
	}
}

func TestCertReloader_Run(t *testing.T) {
	certFile, keyFile := certPair(t)
	first := writeCert(t, certFile, keyFile)

	r, err := NewCertReloader(certFile, keyFile,
		WithLogger(logger.Discard()),
		WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if got := servedSerial(t, r); got.Cmp(first) != 0 {
		t.Fatalf("serial = %v, want %v", got, first)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	second := writeCert(t, certFile, keyFile)
	deadline := time.Now().Add(5 * time.Second)
	for servedSerial(t, r).Cmp(second) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("certificate not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	// A broken write keeps the last good pair.
	if err := os.WriteFile(certFile, []byte("broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	if got := servedSerial(t, r); got.Cmp(second) != 0 {
		t.Errorf("serial after broken write = %v, want %v", got, second)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
