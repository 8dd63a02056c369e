package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix and KeyVersion open every API key.
const (
	KeyPrefix  = "ca"
	KeyVersion = "v1"
)

// ParseAPIKey extracts secret_id and random_data.
// Format: ca-v1-<secret_id>-<random_data>, secret_id 32 hex, random_data 64 hex.
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != KeyPrefix || parts[1] != KeyVersion {
		return "", "", ErrInvalidKeyFormat
	}

	secretID, randomData = parts[2], parts[3]
	if len(secretID) != 32 || len(randomData) != 64 {
		return "", "", ErrInvalidKeyFormat
	}
	if !isLowerHex(secretID) || !isLowerHex(randomData) {
		return "", "", ErrInvalidKeyFormat
	}

	return secretID, randomData, nil
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// ComputeHMAC computes the HMAC-SHA256 of apiKey under secret.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return h.Sum(nil)
}

// FormatAPIKey constructs an API key from its components.
func FormatAPIKey(secretID, randomData string) string {
	return fmt.Sprintf("%s-%s-%s-%s", KeyPrefix, KeyVersion, secretID, randomData)
}

// GenerateAPIKey returns a fresh key for secretID with 256 random bits.
func GenerateAPIKey(secretID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return FormatAPIKey(secretID, hex.EncodeToString(buf)), nil
}
