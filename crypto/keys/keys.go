// Package keys implements parsing and use of the Ed25519 key material used
// throughout the auditor: the auditor's own signing key, and the public keys
// of the key transparency service it audits.
package keys

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"fmt"
)

// rawKeyLen is the length of a raw Ed25519 public key.
const rawKeyLen = ed25519.PublicKeySize

// PrivateKey wraps an Ed25519 private key parsed from a PKCS8 DER encoding.
type PrivateKey struct {
	inner ed25519.PrivateKey
}

// ParsePrivateKey decodes a base64-encoded PKCS8 DER Ed25519 private key.
func ParsePrivateKey(encoded string) (PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("decoding base64 private key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(raw)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("parsing PKCS8 private key: %w", err)
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return PrivateKey{}, fmt.Errorf("private key is not an Ed25519 key")
	}
	return PrivateKey{key}, nil
}

// Sign returns an Ed25519 signature over message.
func (k PrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.inner, message)
}

// Public returns the raw 32-byte public key corresponding to k.
func (k PrivateKey) Public() PublicKey {
	return PublicKey{k.inner.Public().(ed25519.PublicKey)}
}

// PublicKey wraps an Ed25519 public key parsed from an X.509 DER encoding.
type PublicKey struct {
	inner ed25519.PublicKey
}

// ParsePublicKey decodes a base64-encoded X.509 DER Ed25519 public key.
//
// The raw 32-byte key is taken from the trailing bytes of the X.509 encoding
// rather than walking the ASN.1 structure: MarshalPKIXPublicKey always
// produces a fixed 12-byte prefix followed by the raw key for Ed25519.
func ParsePublicKey(encoded string) (PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decoding base64 public key: %w", err)
	}
	if len(raw) < rawKeyLen {
		return PublicKey{}, fmt.Errorf("encoded public key is too short")
	}
	// Confirm the encoding actually parses as a PKIX Ed25519 key before
	// trusting the trailing-bytes shortcut.
	parsed, err := x509.ParsePKIXPublicKey(raw)
	if err != nil {
		return PublicKey{}, fmt.Errorf("parsing X.509 public key: %w", err)
	}
	if _, ok := parsed.(ed25519.PublicKey); !ok {
		return PublicKey{}, fmt.Errorf("public key is not an Ed25519 key")
	}
	return PublicKey{ed25519.PublicKey(raw[len(raw)-rawKeyLen:])}, nil
}

// RawPublicKey wraps a previously-extracted raw 32-byte Ed25519 public key,
// skipping X.509 parsing. Used for keys embedded in wire messages.
func RawPublicKey(raw []byte) (PublicKey, error) {
	if len(raw) != rawKeyLen {
		return PublicKey{}, fmt.Errorf("raw public key must be %d bytes", rawKeyLen)
	}
	return PublicKey{ed25519.PublicKey(raw)}, nil
}

// Bytes returns the raw 32-byte public key.
func (k PublicKey) Bytes() []byte {
	return []byte(k.inner)
}

// Verify reports whether sig is a valid Ed25519 signature of message under k.
func (k PublicKey) Verify(message, sig []byte) bool {
	return ed25519.Verify(k.inner, message, sig)
}
