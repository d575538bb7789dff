// Package keygen generates ed25519 SSH key pairs.
//
// Keys are produced in PEM format (private) and OpenSSH authorized_keys
// format (public), suitable for registering as deploy keys on the
// source-control host.
package keygen
