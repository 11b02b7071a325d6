// Package tls loads or generates the certificate soapd serves HTTPS with.
package tls

import (
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
)

// ErrNoCertificate is returned when no key pair exists and generation is off.
var ErrNoCertificate = errors.New("tls: certificate and key files are required")

// DefaultValidity is the lifetime of generated certificates.
const DefaultValidity = 365 * 24 * time.Hour

// Config selects the server certificate.
type Config struct {
	CertFile string
	KeyFile  string
	// AutoGenerate creates a self-signed certificate when the files are
	// missing. It is written to CertFile and KeyFile when both are set.
	AutoGenerate bool
	// Hosts are the DNS names and IP addresses of a generated certificate.
	// Defaults to localhost, 127.0.0.1 and ::1.
	Hosts []string
}

// ServerConfig returns a TLS 1.2+ server configuration for cfg.
func ServerConfig(cfg Config) (*tls.Config, error) {
	cert, err := loadOrGenerate(cfg)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func loadOrGenerate(cfg Config) (tls.Certificate, error) {
	if cfg.CertFile != "" && cfg.KeyFile != "" && exists(cfg.CertFile) && exists(cfg.KeyFile) {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("load key pair: %w", err)
		}
		return cert, nil
	}
	if !cfg.AutoGenerate {
		return tls.Certificate{}, ErrNoCertificate
	}

	certPEM, keyPEM, err := GenerateSelfSigned(cfg.Hosts, DefaultValidity)
	if err != nil {
		return tls.Certificate{}, err
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		if err := save(cfg.CertFile, certPEM, 0o644); err != nil {
			return tls.Certificate{}, err
		}
		if err := save(cfg.KeyFile, keyPEM, 0o600); err != nil {
			_ = os.Remove(cfg.CertFile)
			return tls.Certificate{}, err
		}
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}

// GenerateSelfSigned creates a P-256 server certificate for hosts and
// returns it with its key, PEM encoded.
func GenerateSelfSigned(hosts []string, validFor time.Duration) (certPEM, keyPEM []byte, err error) {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial number: %w", err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"soapd"}, CommonName: hosts[0]},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal key: %w", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func save(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
