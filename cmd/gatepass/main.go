// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gatepass/lib/attestation"
	"github.com/bureau-foundation/gatepass/lib/clock"
	"github.com/bureau-foundation/gatepass/lib/codec"
	"github.com/bureau-foundation/gatepass/lib/keys"
	"github.com/bureau-foundation/gatepass/lib/process"
	"github.com/bureau-foundation/gatepass/lib/sealed"
	"github.com/bureau-foundation/gatepass/lib/version"
)

// exitRejected is the exit code for an attestation that verify rejects.
const exitRejected = 2

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		process.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return fmt.Errorf("subcommand required")
	}

	subcommand := args[0]
	switch subcommand {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "identity":
		return runIdentity(stdout, stderr)
	case "sign":
		return runSign(args[1:], stdout, stderr)
	case "verify":
		return runVerify(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "gatepass %s\n", version.Full())
		return nil
	case "-h", "--help", "help":
		printUsage(stderr)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: gatepass <subcommand> [flags]

Subcommands:
  keygen      Generate a signing key pair
  identity    Generate an age identity for sealing private keys
  sign        Print attestation headers for a user and token
  verify      Check an attestation (exit 2 when rejected)
  version     Print version information

Run 'gatepass <subcommand> --help' for subcommand flags.
`)
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SortFlags = false
	return flags
}

func runKeygen(args []string, stdout, stderr io.Writer) error {
	flags := newFlagSet("keygen", stderr)
	var (
		algorithmName string
		privatePath   string
		publicPath    string
		recipients    []string
	)
	flags.StringVar(&algorithmName, "algorithm", string(keys.Ed25519), "ed25519 or rsa-pkcs1v15-sha256")
	flags.StringVar(&privatePath, "private", "gatepass.key", "private key output path")
	flags.StringVar(&publicPath, "public", "gatepass.pub", "public key output path")
	flags.StringSliceVar(&recipients, "seal-to", nil, "age recipient to seal the private key to (repeatable)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	algorithm, err := keys.ParseAlgorithm(algorithmName)
	if err != nil {
		return err
	}
	key, err := keys.Generate(algorithm)
	if err != nil {
		return err
	}
	defer key.Close()

	if err := keys.WriteKeypair(key, privatePath, publicPath, recipients); err != nil {
		return err
	}

	newCommandLogger(stderr).Info("key pair written",
		"algorithm", algorithm,
		"key_id", key.Public().ID(),
		"private", privatePath,
		"public", publicPath,
		"sealed", len(recipients) > 0,
	)
	fmt.Fprintln(stdout, key.Public().ID())
	return nil
}

// runIdentity prints a new age identity. The recipient goes to stdout
// for use with keygen --seal-to; the private identity goes to stderr.
func runIdentity(stdout, stderr io.Writer) error {
	identity, err := sealed.GenerateIdentity()
	if err != nil {
		return err
	}
	defer identity.Close()

	fmt.Fprintf(stderr, "# Private identity (store securely):\n%s\n", identity.Private.Bytes())
	fmt.Fprintln(stdout, identity.Recipient)
	return nil
}

// attestationFlags are the fields shared by sign and verify.
type attestationFlags struct {
	userID    string
	username  string
	tokenJTI  string
	timestamp int64
}

func (a *attestationFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&a.userID, "user-id", "", "user id (required)")
	flags.StringVar(&a.username, "username", "", "username (required)")
	flags.StringVar(&a.tokenJTI, "jti", "", "access token id (required)")
	flags.Int64Var(&a.timestamp, "timestamp", 0, "attestation time in Unix milliseconds (default now)")
}

func (a *attestationFlags) validate() error {
	var missing []string
	if a.userID == "" {
		missing = append(missing, "--user-id")
	}
	if a.username == "" {
		missing = append(missing, "--username")
	}
	if a.tokenJTI == "" {
		missing = append(missing, "--jti")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

func runSign(args []string, stdout, stderr io.Writer) error {
	flags := newFlagSet("sign", stderr)
	var (
		fields        attestationFlags
		keyPath       string
		identityPath  string
		algorithmName string
		diagnose      bool
	)
	fields.register(flags)
	flags.StringVar(&keyPath, "key", "", "private key file (required)")
	flags.StringVar(&identityPath, "identity", "", "age identity file for a sealed private key")
	flags.StringVar(&algorithmName, "algorithm", string(keys.Ed25519), "ed25519 or rsa-pkcs1v15-sha256")
	flags.BoolVar(&diagnose, "diagnose", false, "print the canonical message in CBOR diagnostic notation to stderr")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := fields.validate(); err != nil {
		return err
	}
	if keyPath == "" {
		return fmt.Errorf("--key is required")
	}

	algorithm, err := keys.ParseAlgorithm(algorithmName)
	if err != nil {
		return err
	}
	key, err := keys.LoadPrivateKeyFile(keyPath, identityPath, algorithm)
	if err != nil {
		return err
	}
	defer key.Close()

	timestamp := fields.timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	if diagnose {
		message, err := attestation.CanonicalMessage(fields.userID, fields.username, fields.tokenJTI, timestamp)
		if err != nil {
			return err
		}
		notation, err := codec.Diagnose(message)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "canonical message: %s\n", notation)
	}

	signature, err := attestation.Sign(key, fields.userID, fields.username, fields.tokenJTI, timestamp)
	if err != nil {
		return err
	}

	signed := &attestation.Attestation{
		UserID:    fields.userID,
		Username:  fields.username,
		TokenJTI:  fields.tokenJTI,
		Timestamp: timestamp,
		Signature: signature,
	}
	header := http.Header{}
	signed.SetHeaders(header)
	for _, name := range []string{
		attestation.HeaderUserID,
		attestation.HeaderUsername,
		attestation.HeaderTokenJTI,
		attestation.HeaderTimestamp,
		attestation.HeaderSignature,
	} {
		fmt.Fprintf(stdout, "%s: %s\n", name, header.Get(name))
	}
	return nil
}

func runVerify(args []string, stdout, stderr io.Writer) error {
	flags := newFlagSet("verify", stderr)
	var (
		fields        attestationFlags
		signature     string
		publicPath    string
		algorithmName string
		validity      int64
		now           int64
	)
	fields.register(flags)
	flags.StringVar(&signature, "signature", "", "attestation signature (required)")
	flags.StringVar(&publicPath, "public-key", "", "public key file (required)")
	flags.StringVar(&algorithmName, "algorithm", string(keys.Ed25519), "ed25519 or rsa-pkcs1v15-sha256")
	flags.Int64Var(&validity, "validity", attestation.DefaultValidity.Milliseconds(), "replay window in milliseconds")
	flags.Int64Var(&now, "now", 0, "verification time in Unix milliseconds (default now)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := fields.validate(); err != nil {
		return err
	}
	if publicPath == "" || signature == "" || fields.timestamp == 0 {
		return fmt.Errorf("--public-key, --signature, and --timestamp are required")
	}

	algorithm, err := keys.ParseAlgorithm(algorithmName)
	if err != nil {
		return err
	}
	publicKey, err := keys.LoadPublicKeyFile(publicPath, algorithm)
	if err != nil {
		return err
	}
	verifier, err := attestation.NewVerifier(attestation.VerifierConfig{
		PublicKey: publicKey,
		Validity:  time.Duration(validity) * time.Millisecond,
		Clock:     clock.Real(),
	})
	if err != nil {
		return err
	}

	at := time.Now()
	if now != 0 {
		at = time.UnixMilli(now)
	}
	principal, err := verifier.VerifyAt(&attestation.Attestation{
		UserID:    fields.userID,
		Username:  fields.username,
		TokenJTI:  fields.tokenJTI,
		Timestamp: fields.timestamp,
		Signature: signature,
	}, at)
	if err != nil {
		return &process.ExitError{Code: exitRejected, Err: err}
	}

	fmt.Fprintf(stdout, "valid: user %s (%s), token %s\n", principal.Username, principal.UserID, principal.TokenJTI)
	return nil
}
