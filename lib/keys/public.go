// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/ssh"
)

// keyIDDomain is the BLAKE3 derive-key context for key identifiers.
// Changing it changes every logged key ID.
const keyIDDomain = "gatepass 2026 attestation public key id"

// PublicKey verifies attestation signatures. It is immutable and safe
// for concurrent use.
type PublicKey struct {
	algorithm Algorithm
	ed25519   ed25519.PublicKey
	rsa       *rsa.PublicKey
}

// Algorithm returns the key's signature scheme.
func (k *PublicKey) Algorithm() Algorithm { return k.algorithm }

// Verify reports whether signature is a valid signature of message.
// Wrong-length signatures are rejected without panicking.
func (k *PublicKey) Verify(message, signature []byte) bool {
	switch k.algorithm {
	case Ed25519:
		if len(signature) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(k.ed25519, message, signature)
	case RSAPKCS1v15SHA256:
		digest := sha256.Sum256(message)
		return rsa.VerifyPKCS1v15(k.rsa, crypto.SHA256, digest[:], signature) == nil
	default:
		return false
	}
}

// ID returns a short stable identifier for the key: the first 8 bytes
// of a BLAKE3 derived hash over the PKIX encoding, in hex. Services log
// it at startup so operators can confirm every service trusts the same
// gateway key.
func (k *PublicKey) ID() string {
	der, err := x509.MarshalPKIXPublicKey(k.cryptoKey())
	if err != nil {
		return "invalid"
	}
	var sum [32]byte
	blake3.DeriveKey(keyIDDomain, der, sum[:])
	return hex.EncodeToString(sum[:8])
}

// MarshalPEM encodes the key as a PKIX "PUBLIC KEY" PEM block.
func (k *PublicKey) MarshalPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.cryptoKey())
	if err != nil {
		return nil, fmt.Errorf("keys: encoding public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func (k *PublicKey) cryptoKey() crypto.PublicKey {
	if k.algorithm == Ed25519 {
		return k.ed25519
	}
	return k.rsa
}

// NewPublicKey wraps a standard library public key.
func NewPublicKey(key crypto.PublicKey) (*PublicKey, error) {
	switch typed := key.(type) {
	case ed25519.PublicKey:
		if len(typed) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("keys: Ed25519 public key has %d bytes, want %d", len(typed), ed25519.PublicKeySize)
		}
		return &PublicKey{algorithm: Ed25519, ed25519: typed}, nil
	case *rsa.PublicKey:
		if typed.N.BitLen() < minimumRSABits {
			return nil, fmt.Errorf("keys: RSA public key has %d bits, minimum is %d", typed.N.BitLen(), minimumRSABits)
		}
		return &PublicKey{algorithm: RSAPKCS1v15SHA256, rsa: typed}, nil
	default:
		return nil, fmt.Errorf("keys: unsupported public key type %T", key)
	}
}

// ParsePublicKey decodes a PEM or OpenSSH authorized_keys public key.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		switch block.Type {
		case "PUBLIC KEY":
			key, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("keys: parsing PKIX public key: %w", err)
			}
			return NewPublicKey(key)
		case "RSA PUBLIC KEY":
			key, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("keys: parsing PKCS#1 public key: %w", err)
			}
			return NewPublicKey(key)
		default:
			return nil, fmt.Errorf("keys: unexpected PEM block %q for a public key", block.Type)
		}
	}

	authorized, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, errors.New("keys: public key is neither PEM nor an OpenSSH authorized key")
	}
	cryptoKey, ok := authorized.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("keys: OpenSSH key type %s has no standard form", authorized.Type())
	}
	return NewPublicKey(cryptoKey.CryptoPublicKey())
}

// LoadPublicKeyFile reads and parses a public key file, checking that it
// matches the configured algorithm.
func LoadPublicKeyFile(path string, algorithm Algorithm) (*PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading public key: %w", err)
	}
	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if key.algorithm != algorithm {
		return nil, fmt.Errorf("keys: %s holds a %s key, configured algorithm is %s", path, key.algorithm, algorithm)
	}
	return key, nil
}
