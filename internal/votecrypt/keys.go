// Package votecrypt implements the cryptographic primitives of the voting
// protocol: voter and institution RSA keypairs, blinded-token derivation,
// RSA blind signatures over tokens, and the hash/signature material for
// votes and receipts.
package votecrypt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/blindvote/blindvote/internal/common"
)

// KeySize is the RSA modulus size used for both voter and institution keys.
const KeySize = 2048

// GenerateKeyPair generates a fresh RSA-2048 keypair. It wraps failures of
// the host crypto primitive in common.ErrCryptoUnavailable so callers can
// distinguish "switch environment" from ordinary errors.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa keygen: %v", common.ErrCryptoUnavailable, err)
	}
	return key, nil
}

// GenerateKeyPairPEM generates a keypair and returns both halves in PEM
// encoding (PKCS#8 private, PKIX public). Used for institution keys, which
// are stored and transported as text.
func GenerateKeyPairPEM() (privatePEM, publicPEM string, err error) {
	key, err := GenerateKeyPair()
	if err != nil {
		return "", "", err
	}
	privatePEM, err = EncodePrivateKeyPEM(key)
	if err != nil {
		return "", "", err
	}
	publicPEM, err = EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return "", "", err
	}
	return privatePEM, publicPEM, nil
}

// EncodePrivateKeyPEM serializes a private key as a PKCS#8 PEM block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("marshal private key: %w", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// EncodePublicKeyPEM serializes a public key as a PKIX PEM block.
func EncodePublicKeyPEM(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// ParsePrivateKeyPEM loads an RSA private key from a PKCS#8 PEM block.
func ParsePrivateKeyPEM(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", common.ErrorValidation)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", common.ErrorValidation)
	}
	return key, nil
}

// ParsePublicKeyPEM loads an RSA public key from a PKIX PEM block.
func ParsePublicKeyPEM(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", common.ErrorValidation)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", common.ErrorValidation)
	}
	return key, nil
}

// PublicKeyFromPrivatePEM extracts the PEM-encoded public half from a
// PEM-encoded private key. Used by the admin key endpoints, which never
// expose the private half.
func PublicKeyFromPrivatePEM(privatePEM string) (string, error) {
	key, err := ParsePrivateKeyPEM(privatePEM)
	if err != nil {
		return "", err
	}
	return EncodePublicKeyPEM(&key.PublicKey)
}
