package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCSR(t *testing.T, commonName string) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: commonName},
	}, key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})
}

func TestGenerateRootCA(t *testing.T) {
	t.Parallel()
	root, err := GenerateRootCA("platform-root", 15*365*24*time.Hour)
	require.NoError(t, err)

	assert.True(t, root.Cert.IsCA)
	assert.Equal(t, "platform-root", root.Cert.Subject.CommonName)
	assert.NotZero(t, root.Cert.KeyUsage&x509.KeyUsageCertSign)
	assert.NotZero(t, root.Cert.KeyUsage&x509.KeyUsageCRLSign)
	assert.True(t, root.Cert.NotAfter.After(time.Now().Add(14*365*24*time.Hour)))
}

func TestSignIntermediateCSR(t *testing.T) {
	t.Parallel()
	root, err := GenerateRootCA("platform-root", 15*365*24*time.Hour)
	require.NoError(t, err)

	certPEM, err := root.SignIntermediateCSR(makeCSR(t, "platform-intermediate"), 10*365*24*time.Hour)
	require.NoError(t, err)

	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	intermediate, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.True(t, intermediate.IsCA)
	assert.True(t, intermediate.MaxPathLenZero)
	assert.Equal(t, 0, intermediate.MaxPathLen)
	assert.Equal(t, x509.KeyUsageCertSign|x509.KeyUsageCRLSign, intermediate.KeyUsage)
	assert.Equal(t, "platform-intermediate", intermediate.Subject.CommonName)
	assert.True(t, intermediate.NotAfter.Before(root.Cert.NotAfter),
		"intermediate must expire before the root")

	// The issued chain must verify against the root.
	roots := x509.NewCertPool()
	roots.AddCert(root.Cert)
	_, err = intermediate.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	assert.NoError(t, err)
}

func TestSignIntermediateCSR_ValidityBoundedByRoot(t *testing.T) {
	t.Parallel()
	root, err := GenerateRootCA("platform-root", 24*time.Hour)
	require.NoError(t, err)

	_, err = root.SignIntermediateCSR(makeCSR(t, "platform-intermediate"), 48*time.Hour)
	require.Error(t, err)
}

func TestSignIntermediateCSR_RejectsGarbage(t *testing.T) {
	t.Parallel()
	root, err := GenerateRootCA("platform-root", 15*365*24*time.Hour)
	require.NoError(t, err)

	_, err = root.SignIntermediateCSR([]byte("not a csr"), time.Hour)
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	certPath := dir + "/pki/root-ca.pem"
	keyPath := dir + "/pki/root-ca.key"

	root, err := GenerateRootCA("platform-root", 15*365*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, root.Save(certPath, keyPath))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "root key must be restricted")

	loaded, err := LoadRootCA(certPath, keyPath)
	require.NoError(t, err)
	assert.Equal(t, root.Cert.SerialNumber, loaded.Cert.SerialNumber)

	// A loaded root must still be able to sign.
	_, err = loaded.SignIntermediateCSR(makeCSR(t, "platform-intermediate"), 10*365*24*time.Hour)
	assert.NoError(t, err)
}

func TestLoadRootCA_MissingFiles(t *testing.T) {
	t.Parallel()
	_, err := LoadRootCA(t.TempDir()+"/missing.pem", t.TempDir()+"/missing.key")
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
