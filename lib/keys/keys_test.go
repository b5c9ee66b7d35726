// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/bureau-foundation/gatepass/lib/sealed"
)

func testRSAKey(t *testing.T) *PrivateKey {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	key, err := newPrivateKey(raw)
	if err != nil {
		t.Fatalf("newPrivateKey: %v", err)
	}
	return key
}

func TestSignVerify(t *testing.T) {
	ed, err := Generate(Ed25519)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer ed.Close()

	for _, key := range []*PrivateKey{ed, testRSAKey(t)} {
		t.Run(string(key.Algorithm()), func(t *testing.T) {
			message := []byte("canonical attestation bytes")
			first, err := key.Sign(message)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			second, err := key.Sign(message)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			if string(first) != string(second) {
				t.Error("signature is not deterministic")
			}
			if !key.Public().Verify(message, first) {
				t.Fatal("Verify rejected a valid signature")
			}
			if key.Public().Verify([]byte("other message"), first) {
				t.Error("Verify accepted a signature over a different message")
			}
			if key.Public().Verify(message, first[:len(first)-1]) {
				t.Error("Verify accepted a truncated signature")
			}
		})
	}
}

func TestEd25519SignMatchesStandardLibrary(t *testing.T) {
	_, standard, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := newPrivateKey(append(ed25519.PrivateKey(nil), standard...))
	if err != nil {
		t.Fatalf("newPrivateKey: %v", err)
	}
	defer key.Close()

	message := []byte("gatepass.attestation.v1")
	want := ed25519.Sign(standard, message)

	// Concurrent signers share the locked key; each must see it intact.
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := key.Sign(message)
			if err != nil {
				t.Errorf("Sign: %v", err)
				return
			}
			if string(got) != string(want) {
				t.Error("signature differs from crypto/ed25519")
			}
		}()
	}
	wg.Wait()

	if _, err := key.MarshalPEM(); err != nil {
		t.Fatalf("MarshalPEM: %v", err)
	}
	after, err := key.Sign(message)
	if err != nil {
		t.Fatalf("Sign after MarshalPEM: %v", err)
	}
	if string(after) != string(want) {
		t.Error("key material changed after MarshalPEM")
	}
}

func TestPEMRoundTrip(t *testing.T) {
	key, err := Generate(Ed25519)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	defer key.Close()

	privatePEM, err := key.MarshalPEM()
	if err != nil {
		t.Fatalf("MarshalPEM: %v", err)
	}
	parsed, err := ParsePrivateKey(privatePEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	defer parsed.Close()

	publicPEM, err := key.Public().MarshalPEM()
	if err != nil {
		t.Fatalf("public MarshalPEM: %v", err)
	}
	public, err := ParsePublicKey(publicPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if public.ID() != key.Public().ID() {
		t.Errorf("key ID changed across PEM: %s vs %s", public.ID(), key.Public().ID())
	}

	signature, err := parsed.Sign([]byte("m"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !public.Verify([]byte("m"), signature) {
		t.Error("parsed key pair does not verify")
	}
}

func TestParsePKCS1RSA(t *testing.T) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(raw)})
	key, err := ParsePrivateKey(privatePEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if key.Algorithm() != RSAPKCS1v15SHA256 {
		t.Errorf("Algorithm = %s, want %s", key.Algorithm(), RSAPKCS1v15SHA256)
	}
}

func TestRejectsShortRSA(t *testing.T) {
	raw, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newPrivateKey(raw); err == nil || !strings.Contains(err.Error(), "minimum") {
		t.Errorf("newPrivateKey(1024-bit) = %v, want minimum-size error", err)
	}
	if _, err := NewPublicKey(&raw.PublicKey); err == nil {
		t.Error("NewPublicKey accepted a 1024-bit key")
	}
}

func TestParseOpenSSH(t *testing.T) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	block, err := ssh.MarshalPrivateKey(private, "gateway")
	if err != nil {
		t.Fatalf("ssh.MarshalPrivateKey: %v", err)
	}
	key, err := ParsePrivateKey(pem.EncodeToMemory(block))
	if err != nil {
		t.Fatalf("ParsePrivateKey(openssh): %v", err)
	}
	defer key.Close()

	sshPublic, err := ssh.NewPublicKey(public)
	if err != nil {
		t.Fatal(err)
	}
	authorized := ssh.MarshalAuthorizedKey(sshPublic)
	parsedPublic, err := ParsePublicKey(authorized)
	if err != nil {
		t.Fatalf("ParsePublicKey(authorized_keys): %v", err)
	}

	signature, err := key.Sign([]byte("m"))
	if err != nil {
		t.Fatal(err)
	}
	if !parsedPublic.Verify([]byte("m"), signature) {
		t.Error("OpenSSH key pair does not verify")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ParsePrivateKey([]byte("not a key")); err == nil {
		t.Error("ParsePrivateKey accepted garbage")
	}
	if _, err := ParsePublicKey([]byte("not a key")); err == nil {
		t.Error("ParsePublicKey accepted garbage")
	}
	certificate := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}})
	if _, err := ParsePrivateKey(certificate); err == nil {
		t.Error("ParsePrivateKey accepted a CERTIFICATE block")
	}
}

func TestWriteAndLoadKeypair(t *testing.T) {
	directory := t.TempDir()
	privatePath := filepath.Join(directory, "gateway.key")
	publicPath := filepath.Join(directory, "gateway.pub")

	key, err := Generate(Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()

	if err := WriteKeypair(key, privatePath, publicPath, nil); err != nil {
		t.Fatalf("WriteKeypair: %v", err)
	}
	info, err := os.Stat(privatePath)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("private key mode = %o, want 0600", mode)
	}

	loaded, err := LoadPrivateKeyFile(privatePath, "", Ed25519)
	if err != nil {
		t.Fatalf("LoadPrivateKeyFile: %v", err)
	}
	defer loaded.Close()
	public, err := LoadPublicKeyFile(publicPath, Ed25519)
	if err != nil {
		t.Fatalf("LoadPublicKeyFile: %v", err)
	}
	if public.ID() != key.Public().ID() {
		t.Error("loaded public key differs")
	}

	if _, err := LoadPublicKeyFile(publicPath, RSAPKCS1v15SHA256); err == nil {
		t.Error("LoadPublicKeyFile accepted an Ed25519 key for the RSA algorithm")
	}
}

func TestWriteAndLoadSealedKeypair(t *testing.T) {
	directory := t.TempDir()
	privatePath := filepath.Join(directory, "gateway.key.age")
	publicPath := filepath.Join(directory, "gateway.pub")
	identityPath := filepath.Join(directory, "identity.txt")

	identity, err := sealed.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	defer identity.Close()
	if err := os.WriteFile(identityPath, append([]byte(nil), identity.Private.Bytes()...), 0600); err != nil {
		t.Fatal(err)
	}

	key, err := Generate(Ed25519)
	if err != nil {
		t.Fatal(err)
	}
	defer key.Close()
	if err := WriteKeypair(key, privatePath, publicPath, []string{identity.Recipient}); err != nil {
		t.Fatalf("WriteKeypair: %v", err)
	}

	if _, err := LoadPrivateKeyFile(privatePath, "", Ed25519); err == nil {
		t.Fatal("loading a sealed key without an identity succeeded")
	}

	loaded, err := LoadPrivateKeyFile(privatePath, identityPath, Ed25519)
	if err != nil {
		t.Fatalf("LoadPrivateKeyFile(sealed): %v", err)
	}
	defer loaded.Close()
	if loaded.Public().ID() != key.Public().ID() {
		t.Error("sealed key round trip changed the key")
	}
}

func TestParseAlgorithm(t *testing.T) {
	if algorithm, err := ParseAlgorithm(""); err != nil || algorithm != Ed25519 {
		t.Errorf("ParseAlgorithm(\"\") = %q, %v", algorithm, err)
	}
	if algorithm, err := ParseAlgorithm("rsa-pkcs1v15-sha256"); err != nil || algorithm != RSAPKCS1v15SHA256 {
		t.Errorf("ParseAlgorithm(rsa) = %q, %v", algorithm, err)
	}
	if _, err := ParseAlgorithm("rsa-pss"); err == nil {
		t.Error("ParseAlgorithm accepted rsa-pss")
	}
}
