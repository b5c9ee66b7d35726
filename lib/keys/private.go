// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/bureau-foundation/gatepass/lib/sealed"
	"github.com/bureau-foundation/gatepass/lib/secret"
)

// PrivateKey signs attestation messages. Sign is safe for concurrent
// use. Call Close when the key is no longer needed.
type PrivateKey struct {
	algorithm Algorithm

	// ed25519 holds the 64-byte Ed25519 private key.
	ed25519 *secret.Buffer

	rsa *rsa.PrivateKey

	public *PublicKey
}

// Algorithm returns the key's signature scheme.
func (k *PrivateKey) Algorithm() Algorithm { return k.algorithm }

// Public returns the matching public key.
func (k *PrivateKey) Public() *PublicKey { return k.public }

// Sign signs message. The result is deterministic for a fixed key and
// message.
func (k *PrivateKey) Sign(message []byte) ([]byte, error) {
	switch k.algorithm {
	case Ed25519:
		key := k.heapEd25519()
		defer clear(key)
		return ed25519.Sign(key, message), nil
	case RSAPKCS1v15SHA256:
		digest := sha256.Sum256(message)
		signature, err := rsa.SignPKCS1v15(nil, k.rsa, crypto.SHA256, digest[:])
		if err != nil {
			return nil, fmt.Errorf("keys: RSA signing: %w", err)
		}
		return signature, nil
	default:
		return nil, fmt.Errorf("keys: unknown algorithm %q", k.algorithm)
	}
}

// heapEd25519 copies the locked key into Go heap memory for one
// operation. crypto/ed25519 takes weak pointers to its argument, which
// the runtime refuses for memory outside the heap. Callers clear the
// copy when done.
func (k *PrivateKey) heapEd25519() ed25519.PrivateKey {
	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(key, k.ed25519.Bytes())
	return key
}

// MarshalPEM encodes the key as a PKCS#8 "PRIVATE KEY" PEM block. The
// result is heap memory; write it out and clear it.
func (k *PrivateKey) MarshalPEM() ([]byte, error) {
	var key any
	switch k.algorithm {
	case Ed25519:
		heap := k.heapEd25519()
		defer clear(heap)
		key = heap
	case RSAPKCS1v15SHA256:
		key = k.rsa
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("keys: encoding private key: %w", err)
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	clear(der)
	return encoded, nil
}

// Close zeros Ed25519 key material. Idempotent.
func (k *PrivateKey) Close() error {
	if k.ed25519 != nil {
		return k.ed25519.Close()
	}
	return nil
}

// Generate creates a new key pair for the algorithm.
func Generate(algorithm Algorithm) (*PrivateKey, error) {
	switch algorithm {
	case Ed25519:
		_, private, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("keys: generating Ed25519 key: %w", err)
		}
		return newPrivateKey(private)
	case RSAPKCS1v15SHA256:
		private, err := rsa.GenerateKey(rand.Reader, 3072)
		if err != nil {
			return nil, fmt.Errorf("keys: generating RSA key: %w", err)
		}
		return newPrivateKey(private)
	default:
		return nil, fmt.Errorf("keys: unknown algorithm %q", algorithm)
	}
}

// newPrivateKey wraps a standard library private key. An Ed25519 key's
// bytes are moved into locked memory and zeroed in place.
func newPrivateKey(key any) (*PrivateKey, error) {
	switch typed := key.(type) {
	case ed25519.PrivateKey:
		if len(typed) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("keys: Ed25519 private key has %d bytes, want %d", len(typed), ed25519.PrivateKeySize)
		}
		public := &PublicKey{
			algorithm: Ed25519,
			ed25519:   append(ed25519.PublicKey(nil), typed.Public().(ed25519.PublicKey)...),
		}
		buffer, err := secret.NewFromBytes(typed)
		if err != nil {
			return nil, fmt.Errorf("keys: protecting private key: %w", err)
		}
		return &PrivateKey{algorithm: Ed25519, ed25519: buffer, public: public}, nil
	case *ed25519.PrivateKey:
		return newPrivateKey(*typed)
	case *rsa.PrivateKey:
		if typed.N.BitLen() < minimumRSABits {
			return nil, fmt.Errorf("keys: RSA private key has %d bits, minimum is %d", typed.N.BitLen(), minimumRSABits)
		}
		if err := typed.Validate(); err != nil {
			return nil, fmt.Errorf("keys: invalid RSA private key: %w", err)
		}
		typed.Precompute()
		return &PrivateKey{
			algorithm: RSAPKCS1v15SHA256,
			rsa:       typed,
			public:    &PublicKey{algorithm: RSAPKCS1v15SHA256, rsa: &typed.PublicKey},
		}, nil
	default:
		return nil, fmt.Errorf("keys: unsupported private key type %T", key)
	}
}

// ParsePrivateKey decodes an unencrypted PEM or OpenSSH private key.
func ParsePrivateKey(data []byte) (*PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("keys: private key is not PEM encoded")
	}
	defer clear(block.Bytes)

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parsing PKCS#8 private key: %w", err)
		}
		return newPrivateKey(key)
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("keys: parsing PKCS#1 private key: %w", err)
		}
		return newPrivateKey(key)
	case "OPENSSH PRIVATE KEY":
		key, err := ssh.ParseRawPrivateKey(data)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				return nil, errors.New("keys: OpenSSH private key is passphrase-protected; seal it with age instead")
			}
			return nil, fmt.Errorf("keys: parsing OpenSSH private key: %w", err)
		}
		return newPrivateKey(key)
	default:
		return nil, fmt.Errorf("keys: unexpected PEM block %q for a private key", block.Type)
	}
}

// LoadPrivateKeyFile reads the gateway signing key. If the file is
// age-sealed, identityPath names the age identity file used to open it;
// otherwise identityPath is ignored. The loaded key must match the
// configured algorithm.
func LoadPrivateKeyFile(path, identityPath string, algorithm Algorithm) (*PrivateKey, error) {
	contents, err := secret.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: reading private key: %w", err)
	}
	defer contents.Close()

	plaintext := contents
	if sealed.IsSealed(contents.Bytes()) {
		if identityPath == "" {
			return nil, fmt.Errorf("keys: %s is age-sealed but no identity file is configured", path)
		}
		identity, err := secret.ReadFile(identityPath)
		if err != nil {
			return nil, fmt.Errorf("keys: reading age identity: %w", err)
		}
		defer identity.Close()

		plaintext, err = sealed.Open(contents.Bytes(), identity)
		if err != nil {
			return nil, fmt.Errorf("keys: opening %s: %w", path, err)
		}
		defer plaintext.Close()
	}

	key, err := ParsePrivateKey(plaintext.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if key.algorithm != algorithm {
		key.Close()
		return nil, fmt.Errorf("keys: %s holds a %s key, configured algorithm is %s", path, key.algorithm, algorithm)
	}
	return key, nil
}

// WriteKeypair writes the private key (PKCS#8 PEM, mode 0600, sealed to
// recipients when any are given) and the public key (PKIX PEM, mode
// 0644).
func WriteKeypair(key *PrivateKey, privatePath, publicPath string, recipients []string) error {
	privatePEM, err := key.MarshalPEM()
	if err != nil {
		return err
	}
	defer clear(privatePEM)

	output := privatePEM
	if len(recipients) > 0 {
		output, err = sealed.Seal(privatePEM, recipients)
		if err != nil {
			return fmt.Errorf("keys: sealing private key: %w", err)
		}
	}
	if err := os.WriteFile(privatePath, output, 0600); err != nil {
		return fmt.Errorf("keys: writing private key: %w", err)
	}

	publicPEM, err := key.Public().MarshalPEM()
	if err != nil {
		return err
	}
	if err := os.WriteFile(publicPath, publicPEM, 0644); err != nil {
		return fmt.Errorf("keys: writing public key: %w", err)
	}
	return nil
}
