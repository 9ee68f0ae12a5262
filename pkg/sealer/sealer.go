// Package sealer issues opaque booking confirmation codes. A code is the
// AES-GCM sealed pair of booking id and renter account, so it can be handed
// to the renter and later exchanged for the booking without exposing the
// raw ledger id or trusting the caller's claim of ownership.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// fallbackKey keeps development setups working without configuration.
// Deployments override it through SEALER_KEY.
const fallbackKey = "5d41402abc4b2a76b9719d911017c59268a7d0ab3a2f6e4c8b1d0f9e7c5a3b62"

type Sealer struct {
	key []byte
}

// New builds a Sealer from a 64-character hex key (AES-256). An empty
// string selects the built-in development key.
func New(hexKey string) (*Sealer, error) {
	if hexKey == "" {
		hexKey = fallbackKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("sealer key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("sealer key must be 32 bytes, got %d", len(key))
	}
	return &Sealer{key: key}, nil
}

func (s *Sealer) SealConfirmation(bookingID uint64, renter string) (string, error) {
	plaintext := []byte(strconv.FormatUint(bookingID, 10) + ":" + renter)

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) OpenConfirmation(code string) (uint64, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return 0, "", err
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return 0, "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return 0, "", err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return 0, "", fmt.Errorf("invalid confirmation code")
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return 0, "", err
	}

	parts := strings.SplitN(string(pt), ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid confirmation code format")
	}

	bookingID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid booking id in confirmation code: %w", err)
	}

	return bookingID, parts[1], nil
}
