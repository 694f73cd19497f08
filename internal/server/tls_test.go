package server

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "tls", "cert.pem")
	keyPath := filepath.Join(dir, "tls", "key.pem")

	first, err := LoadOrCreateCertificate(certPath, keyPath, SelfSignedTemplate(), nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != permKey {
		t.Fatalf("key perm = %o, want %o", perm, permKey)
	}

	leaf, err := x509.ParseCertificate(first.Certificate[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Fatalf("hostname: %v", err)
	}

	second, err := LoadOrCreateCertificate(certPath, keyPath, SelfSignedTemplate(), nil)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if string(first.Certificate[0]) != string(second.Certificate[0]) {
		t.Fatal("existing certificate was not reused")
	}

	if err := os.Remove(certPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	third, err := LoadOrCreateCertificate(certPath, keyPath, SelfSignedTemplate(), nil)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if string(third.Certificate[0]) == string(first.Certificate[0]) {
		t.Fatal("expected a new certificate")
	}
}

func TestLoadOrCreateCertificate_BadKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(keyPath, []byte("garbage"), permKey); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOrCreateCertificate(filepath.Join(dir, "cert.pem"), keyPath, SelfSignedTemplate(), nil); err == nil {
		t.Fatal("expected error for malformed key")
	}
}
