package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")

	err := GenerateSelfSignedCert(certFile, keyFile, "shopd", "192.0.2.1", "shop.internal")
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}

	pemBytes, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("reading cert file: %v", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("cert file does not contain a PEM certificate")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}

	if cert.Subject.CommonName != "shopd" {
		t.Errorf("CommonName = %q, expected %q", cert.Subject.CommonName, "shopd")
	}

	wantDNS := map[string]bool{"shopd": false, "localhost": false, "shop.internal": false}
	for _, name := range cert.DNSNames {
		if _, ok := wantDNS[name]; ok {
			wantDNS[name] = true
		}
	}
	for name, seen := range wantDNS {
		if !seen {
			t.Errorf("certificate missing DNS SAN %q", name)
		}
	}

	foundIP := false
	for _, ip := range cert.IPAddresses {
		if ip.String() == "192.0.2.1" {
			foundIP = true
		}
	}
	if !foundIP {
		t.Error("certificate missing IP SAN 192.0.2.1")
	}
}

func TestServerConfigRoundtrip(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")

	if err := GenerateSelfSignedCert(certFile, keyFile, "shopd"); err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}

	cfg, err := ServerConfig(certFile, keyFile, "", false)
	if err != nil {
		t.Fatalf("ServerConfig failed: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("ServerConfig loaded %d certificates, expected 1", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, expected TLS 1.2", cfg.MinVersion)
	}
	if cfg.ClientAuth == tls.RequireAndVerifyClientCert {
		t.Error("ClientAuth should not require certificates without a CA file")
	}
}

func TestServerConfigWithClientCA(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")

	if err := GenerateSelfSignedCert(certFile, keyFile, "shopd"); err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}

	// Reuse the self-signed cert as the client CA
	cfg, err := ServerConfig(certFile, keyFile, certFile, true)
	if err != nil {
		t.Fatalf("ServerConfig with CA failed: %v", err)
	}
	if cfg.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Error("ClientAuth should require and verify client certificates")
	}
	if cfg.ClientCAs == nil {
		t.Error("ClientCAs pool should be populated")
	}
}

func TestClientConfig(t *testing.T) {
	cfg, err := ClientConfig("", "", "")
	if err != nil {
		t.Fatalf("ClientConfig failed: %v", err)
	}
	if len(cfg.Certificates) != 0 {
		t.Error("ClientConfig without cert files should carry no certificates")
	}
	if cfg.RootCAs != nil {
		t.Error("ClientConfig without a CA file should fall back to the system pool")
	}
}

func TestClientConfigMissingFiles(t *testing.T) {
	if _, err := ClientConfig("/nonexistent.crt", "/nonexistent.key", ""); err == nil {
		t.Error("ClientConfig should fail when cert files are missing")
	}
	if _, err := ClientConfig("", "", "/nonexistent-ca.crt"); err == nil {
		t.Error("ClientConfig should fail when the CA file is missing")
	}
}
