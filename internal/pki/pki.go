// Package pki implements the offline root of trust.
//
// The root CA key pair is generated locally, persisted to restricted files
// and never transmitted to the secret store. Only certificate material
// crosses that boundary: the store produces an intermediate CSR, this
// package signs it with the offline root key, and the signed chain is
// imported back.
package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"
)

// RootCA is the top-level signing certificate and its private key.
type RootCA struct {
	Cert    *x509.Certificate
	CertPEM []byte

	key    *ecdsa.PrivateKey
	keyPEM []byte
}

// GenerateRootCA creates a new self-signed ECDSA P-256 root certificate.
// Root rotation is a deliberate operation; callers must prefer LoadRootCA
// so an existing root is never accidentally replaced.
func GenerateRootCA(commonName string, validity time.Duration) (*RootCA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate root key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(validity),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create root certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated root certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal root key: %w", err)
	}

	return &RootCA{
		Cert:    cert,
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		key:     key,
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}, nil
}

// LoadRootCA reads a persisted root CA. os.IsNotExist errors mean no root
// exists yet; callers decide whether to recover or generate one.
func LoadRootCA(certPath, keyPath string) (*RootCA, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return ParseRootCA(certPEM, keyPEM)
}

// ParseRootCA builds a RootCA from PEM-encoded certificate and key.
func ParseRootCA(certPEM, keyPEM []byte) (*RootCA, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("root certificate is not valid PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root certificate: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("root key is not valid PEM")
	}
	key, err := x509.ParseECPrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root key: %w", err)
	}

	return &RootCA{Cert: cert, CertPEM: certPEM, key: key, keyPEM: keyPEM}, nil
}

// Save persists the root CA. The private key is written with 0600.
func (r *RootCA) Save(certPath, keyPath string) error {
	if err := os.MkdirAll(filepath.Dir(certPath), 0o700); err != nil {
		return fmt.Errorf("failed to create pki directory: %w", err)
	}
	if err := os.WriteFile(certPath, r.CertPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write root certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, r.keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write root key: %w", err)
	}
	return nil
}

// KeyPEM exposes the private key material for local persistence only.
func (r *RootCA) KeyPEM() []byte {
	return r.keyPEM
}

// SignIntermediateCSR signs an intermediate CA signing request with the
// offline root key. The issued certificate is a CA constrained to path
// length zero, restricted to certificate and CRL signing, with a validity
// shorter than the root's.
func (r *RootCA) SignIntermediateCSR(csrPEM []byte, validity time.Duration) ([]byte, error) {
	block, _ := pem.Decode(csrPEM)
	if block == nil {
		return nil, fmt.Errorf("intermediate CSR is not valid PEM")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse intermediate CSR: %w", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("intermediate CSR signature invalid: %w", err)
	}

	remaining := time.Until(r.Cert.NotAfter)
	if validity >= remaining {
		return nil, fmt.Errorf("intermediate validity %s exceeds remaining root validity %s", validity, remaining)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               csr.Subject,
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(validity),
		IsCA:                  true,
		BasicConstraintsValid: true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, r.Cert, csr.PublicKey, r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign intermediate certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate serial: %w", err)
	}
	return serial, nil
}
