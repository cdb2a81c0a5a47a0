package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCert writes a self-signed certificate for cn and returns the paths.
func writeCert(t *testing.T, dir, cn string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{cn},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func commonName(t *testing.T, l *CertLoader) string {
	t.Helper()
	cert, err := l.GetCertificate(nil)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCertLoader(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCert(t, dir, "robot.local")

	l, err := NewCertLoader(certPath, keyPath, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "robot.local", commonName(t, l))
	assert.NotNil(t, l.TLSConfig().GetCertificate)

	_, err = NewCertLoader(filepath.Join(dir, "missing.pem"), keyPath, quietLogger())
	assert.Error(t, err)
}

func TestCertLoader_PicksUpRenewal(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCert(t, dir, "old.local")

	l, err := NewCertLoader(certPath, keyPath, quietLogger())
	require.NoError(t, err)

	now := time.Now()
	l.now = func() time.Time { return now }
	l.loadedAt = now.Add(-time.Hour)
	l.lastCheck = now

	writeCert(t, dir, "new.local")
	assert.Equal(t, "old.local", commonName(t, l), "files are not checked inside the interval")

	now = now.Add(2 * defaultCertCheckInterval)
	assert.Equal(t, "new.local", commonName(t, l))
}

func TestCertLoader_KeepsCertOnBadRenewal(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeCert(t, dir, "robot.local")

	l, err := NewCertLoader(certPath, keyPath, quietLogger())
	require.NoError(t, err)

	now := time.Now()
	l.now = func() time.Time { return now }
	l.loadedAt = now.Add(-time.Hour)

	require.NoError(t, os.WriteFile(certPath, []byte("not a certificate"), 0o600))
	now = now.Add(2 * defaultCertCheckInterval)
	assert.Equal(t, "robot.local", commonName(t, l))

	require.NoError(t, os.Remove(keyPath))
	now = now.Add(2 * defaultCertCheckInterval)
	assert.Equal(t, "robot.local", commonName(t, l))
}
