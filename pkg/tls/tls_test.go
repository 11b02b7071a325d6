package tls

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSigned(t *testing.T) {
	certPEM, keyPEM, err := GenerateSelfSigned([]string{"soap.example", "10.0.0.1"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, keyPEM)

	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, []string{"soap.example"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "10.0.0.1", cert.IPAddresses[0].String())
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, cert.ExtKeyUsage)
	assert.False(t, cert.IsCA)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cert.NotAfter, time.Minute)
	assert.NoError(t, cert.VerifyHostname("soap.example"))
}

func TestServerConfig_GeneratesAndReuses(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CertFile:     filepath.Join(dir, "certs", "server.crt"),
		KeyFile:      filepath.Join(dir, "certs", "server.key"),
		AutoGenerate: true,
	}

	first, err := ServerConfig(cfg)
	require.NoError(t, err)
	require.Len(t, first.Certificates, 1)

	info, err := os.Stat(cfg.KeyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := ServerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, first.Certificates[0].Certificate[0], second.Certificates[0].Certificate[0])

	leaf, err := x509.ParseCertificate(second.Certificates[0].Certificate[0])
	require.NoError(t, err)
	assert.NoError(t, leaf.VerifyHostname("localhost"))
}

func TestServerConfig_InMemory(t *testing.T) {
	cfg, err := ServerConfig(Config{AutoGenerate: true})
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
}

func TestServerConfig_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := ServerConfig(Config{
		CertFile: filepath.Join(dir, "missing.crt"),
		KeyFile:  filepath.Join(dir, "missing.key"),
	})
	assert.ErrorIs(t, err, ErrNoCertificate)
}

func TestServerConfig_BadPair(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, []byte("not a cert"), 0o600))
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0o600))

	_, err := ServerConfig(Config{CertFile: certFile, KeyFile: keyFile, AutoGenerate: true})
	assert.ErrorContains(t, err, "load key pair")
}
