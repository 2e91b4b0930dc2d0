package ajeossida

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// loadPrivateKey reads an Ed25519 private key stored as 128 hex characters
// or as 64 raw bytes.
func loadPrivateKey(keyPath string) (ed25519.PrivateKey, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("private key not found at %s: %w", keyPath, err)
	}

	trimmedKey := strings.TrimSpace(string(keyData))
	if len(trimmedKey) == 128 {
		decoded, err := hex.DecodeString(trimmedKey)
		if err == nil && len(decoded) == ed25519.PrivateKeySize {
			return ed25519.PrivateKey(decoded), nil
		}
	}
	if len(keyData) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(keyData), nil
	}
	return nil, fmt.Errorf("invalid private key format at %s (expected 64 bytes raw or 128 hex chars, got %d)", keyPath, len(trimmedKey))
}

// SignData signs arbitrary data and returns the hex encoded signature.
func SignData(data []byte, privateKey ed25519.PrivateKey) []byte {
	return []byte(hex.EncodeToString(ed25519.Sign(privateKey, data)))
}

// VerifySignatureRaw verifies a hex signature against public key bytes.
func VerifySignatureRaw(data, sigHex, pubKeyBytes []byte) error {
	signature, err := hex.DecodeString(strings.TrimSpace(string(sigHex)))
	if err != nil {
		return fmt.Errorf("invalid signature format: %w", err)
	}
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key size %d", len(pubKeyBytes))
	}

	publicKey := ed25519.PublicKey(pubKeyBytes)
	if !ed25519.Verify(publicKey, data, signature) {
		return errors.New("signature verification failed")
	}
	return nil
}

// GenerateKeyPair writes <id>.key (hex private key, 0600) and <id>.pub
// (hex public key) into dir.
func GenerateKeyPair(dir, id string) (string, string, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", err
	}
	keyPath := filepath.Join(dir, id+".key")
	pubPath := filepath.Join(dir, id+".pub")
	if _, err := os.Stat(keyPath); err == nil {
		return "", "", fmt.Errorf("key %s already exists", keyPath)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(priv)+"\n"), 0o600); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)+"\n"), 0o644); err != nil {
		return "", "", err
	}
	return keyPath, pubPath, nil
}
