// Package signing provides ed25519 signing of CLARITY proof hashes and
// rendered report bytes, grounded on the teacher's internal/signing
// package. Private key material is generated once at provisioning time
// via crypto/rand and is never part of the deterministic boundary: the
// CLI's `sign proof` command signs the SHA-256 of the already
// byte-stable rendered report, and the signature is not fed back into
// anything that gets hashed.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// Algorithm identifies the signature scheme. CLARITY supports exactly
// one.
const Algorithm = "ed25519"

// KeyPair holds an ed25519 key pair. The only helper in this package
// that serializes the private key is LoadOrCreateKeyPair, which writes
// it hex-encoded to a file with mode 0600.
type KeyPair struct {
	PublicKey  string // hex-encoded
	privateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new ed25519 key pair from crypto/rand.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return &KeyPair{PublicKey: hex.EncodeToString(pub), privateKey: priv}, nil
}

// LoadOrCreateKeyPair reads an existing key pair from keyDir, creating
// one if absent.
func LoadOrCreateKeyPair(keyDir string) (*KeyPair, error) {
	keyPath := keyDir + "/clarity_signing.key"
	pubPath := keyDir + "/clarity_signing.pub"

	if data, err := os.ReadFile(keyPath); err == nil {
		priv, decErr := hex.DecodeString(string(data))
		if decErr != nil {
			return nil, fmt.Errorf("signing: decode key: %w", decErr)
		}
		pubData, err := os.ReadFile(pubPath)
		if err != nil {
			return nil, fmt.Errorf("signing: read public key: %w", err)
		}
		return &KeyPair{PublicKey: string(pubData), privateKey: ed25519.PrivateKey(priv)}, nil
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("signing: mkdir %s: %w", keyDir, err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(kp.privateKey)), 0o600); err != nil {
		return nil, fmt.Errorf("signing: write key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(kp.PublicKey), 0o644); err != nil {
		return nil, fmt.Errorf("signing: write public key: %w", err)
	}
	return kp, nil
}

// Signature is a detached signature over a proof hash, sidecar to a
// rendered report.
type Signature struct {
	RunID        string `json:"run_id"`
	ProofHash    string `json:"proof_hash"`
	Algorithm    string `json:"algorithm"`
	PublicKey    string `json:"public_key"`
	SignatureHex string `json:"signature_hex"`
	// SignedAt is sourced from the case manifest's generated_at field,
	// never time.Now(), so the signature itself stays reproducible
	// from a fixed artifact tree.
	SignedAt string `json:"signed_at"`
}

// Sign produces a Signature over proofHash. signedAt should be the
// manifest timestamp the caller already resolved (see
// internal/report's timestamp sanitization).
func (kp *KeyPair) Sign(runID, proofHash, signedAt string) Signature {
	sig := ed25519.Sign(kp.privateKey, []byte(proofHash))
	return Signature{
		RunID:        runID,
		ProofHash:    proofHash,
		Algorithm:    Algorithm,
		PublicKey:    kp.PublicKey,
		SignatureHex: hex.EncodeToString(sig),
		SignedAt:     signedAt,
	}
}

// Verify checks sig against proofHash using the embedded public key.
func Verify(sig Signature, proofHash string) (bool, error) {
	if sig.Algorithm != Algorithm {
		return false, fmt.Errorf("signing: unsupported algorithm %q", sig.Algorithm)
	}
	pub, err := hex.DecodeString(sig.PublicKey)
	if err != nil {
		return false, fmt.Errorf("signing: decode public key: %w", err)
	}
	raw, err := hex.DecodeString(sig.SignatureHex)
	if err != nil {
		return false, fmt.Errorf("signing: decode signature: %w", err)
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(proofHash), raw), nil
}
