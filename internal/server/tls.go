package server

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/charadev96/walletd/internal/shared/log"
)

const (
	permKey  = 0600
	permCert = 0644
	permDir  = 0700

	certValidity = 365 * 24 * time.Hour
)

// SelfSignedTemplate covers localhost and the loopback addresses.
func SelfSignedTemplate() x509.Certificate {
	now := time.Now()
	return x509.Certificate{
		Subject:               pkix.Name{CommonName: "walletd"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
}

// LoadOrCreateCertificate reads the PEM key pair at certPath and keyPath.
// A missing key creates both files; a missing certificate is re-issued
// for the existing key.
func LoadOrCreateCertificate(
	certPath, keyPath string,
	template x509.Certificate,
	logger *zerolog.Logger,
) (tls.Certificate, error) {
	logger = log.OrNop(logger)

	var (
		key    *ecdsa.PrivateKey
		keyPEM []byte
		err    error
	)
	_, statErr := os.Stat(keyPath)
	keyIsNew := errors.Is(statErr, os.ErrNotExist)
	switch {
	case keyIsNew:
		logger.Warn().
			Str("file", keyPath).
			Msg("private key does not exist")
		if key, keyPEM, err = generateKeyFile(keyPath); err != nil {
			return tls.Certificate{}, err
		}
		logger.Info().
			Str("file", keyPath).
			Msg("created new private key")
	case statErr != nil:
		return tls.Certificate{}, fmt.Errorf("failed to retrieve private key: %w", statErr)
	default:
		if key, keyPEM, err = loadKeyFile(keyPath); err != nil {
			return tls.Certificate{}, err
		}
	}

	var certPEM []byte
	if _, err := os.Stat(certPath); errors.Is(err, os.ErrNotExist) || keyIsNew {
		logger.Warn().
			Str("file", certPath).
			Msg("certificate does not exist or invalid")
		if certPEM, err = generateCertificateFile(certPath, key, template); err != nil {
			return tls.Certificate{}, err
		}
		logger.Info().
			Str("file", certPath).
			Msg("created new certificate")
	} else if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to retrieve certificate: %w", err)
	} else if certPEM, err = os.ReadFile(certPath); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read certificate: %w", err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse key pair: %w", err)
	}
	return cert, nil
}

func generateKeyFile(keyPath string) (*ecdsa.PrivateKey, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	keyPEM, err := encodePEM("PRIVATE KEY", keyBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	if err := writeFile(keyPath, keyPEM, permKey); err != nil {
		return nil, nil, fmt.Errorf("failed to write private key: %w", err)
	}
	return key, keyPEM, nil
}

func loadKeyFile(keyPath string) (*ecdsa.PrivateKey, []byte, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key: %w", err)
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, nil, errors.New("failed to decode private key: no PEM block")
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := keyAny.(*ecdsa.PrivateKey)
	if !ok {
		return nil, nil, errors.New("incorrect private key format (must be ecdsa)")
	}
	return key, keyPEM, nil
}

func generateCertificateFile(
	certPath string, key *ecdsa.PrivateKey,
	template x509.Certificate,
) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	template.SerialNumber = serial

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("failed generating certificate: %w", err)
	}

	certPEM, err := encodePEM("CERTIFICATE", der)
	if err != nil {
		return nil, fmt.Errorf("failed encoding certificate: %w", err)
	}
	if err := writeFile(certPath, certPEM, permCert); err != nil {
		return nil, fmt.Errorf("failed to write certificate: %w", err)
	}
	return certPEM, nil
}

func encodePEM(kind string, der []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: kind, Bytes: der}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), permDir); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}
