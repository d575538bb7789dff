package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/platforge/platforge/internal/pki"
)

// Root CA validity. Rotation is a deliberate operation, never automatic.
const rootCAValidity = 15 * 365 * 24 * time.Hour

// RootSource establishes the offline root of trust. Preference order: an
// existing root on disk, then recovery from durable provisioning state,
// then fresh generation. The private key only ever touches local files.
type RootSource struct {
	CertPath   string
	KeyPath    string
	CommonName string

	// Recover retrieves root PEM material from durable provisioning state.
	// Optional; returning nil PEM means nothing to recover.
	Recover func(ctx context.Context) (certPEM, keyPEM []byte, err error)
}

// Establish loads, recovers or generates the root CA. The second return
// reports whether a new root was generated.
func (s *RootSource) Establish(ctx context.Context) (*pki.RootCA, bool, error) {
	root, err := pki.LoadRootCA(s.CertPath, s.KeyPath)
	if err == nil {
		return root, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	if s.Recover != nil {
		certPEM, keyPEM, err := s.Recover(ctx)
		if err != nil {
			return nil, false, err
		}
		if len(certPEM) > 0 && len(keyPEM) > 0 {
			root, err := pki.ParseRootCA(certPEM, keyPEM)
			if err != nil {
				return nil, false, err
			}
			if err := root.Save(s.CertPath, s.KeyPath); err != nil {
				return nil, false, err
			}
			return root, false, nil
		}
	}

	root, err = pki.GenerateRootCA(s.CommonName, rootCAValidity)
	if err != nil {
		return nil, false, err
	}
	if err := root.Save(s.CertPath, s.KeyPath); err != nil {
		return nil, false, err
	}
	return root, true, nil
}
