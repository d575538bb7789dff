// Package bootstrap drives the consensus-backed secret store from
// nonexistent to unsealed, clustered and serving a signed PKI chain.
//
// Progress is never checkpointed. Every transition probes the store's
// current state first, so a crashed or restarted run re-derives where it
// left off and each step is safe to repeat.
package bootstrap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KeyMaterial is the one-time output of store initialization: the ordered
// unseal key shares, the reconstruction threshold, and the privileged token.
// It is required to administer the store on every run after the first.
type KeyMaterial struct {
	UnsealKeys []string `yaml:"unseal_keys"`
	Threshold  int      `yaml:"threshold"`
	RootToken  string   `yaml:"root_token"`
}

// LoadKeyMaterial reads persisted key material. os.IsNotExist errors mean
// the store was initialized by someone else or the file was lost; callers
// treat that as fatal.
func LoadKeyMaterial(path string) (*KeyMaterial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var km KeyMaterial
	if err := yaml.Unmarshal(data, &km); err != nil {
		return nil, fmt.Errorf("failed to parse key material: %w", err)
	}
	if err := km.validate(); err != nil {
		return nil, err
	}
	return &km, nil
}

// Save persists the key material with restricted permissions.
func (k *KeyMaterial) Save(path string) error {
	if err := k.validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(k)
	if err != nil {
		return fmt.Errorf("failed to encode key material: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write key material: %w", err)
	}
	return nil
}

func (k *KeyMaterial) validate() error {
	if len(k.UnsealKeys) == 0 {
		return fmt.Errorf("key material holds no unseal keys")
	}
	if k.Threshold < 1 || k.Threshold > len(k.UnsealKeys) {
		return fmt.Errorf("key material threshold %d invalid for %d shares", k.Threshold, len(k.UnsealKeys))
	}
	if k.RootToken == "" {
		return fmt.Errorf("key material holds no root token")
	}
	return nil
}
