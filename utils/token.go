package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// GenerateQRToken returns a 64-char hex string from crypto/rand. QR tokens are
// bearer secrets, so they must be unguessable.
func GenerateQRToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateSessionToken returns an opaque guest session token.
func GenerateSessionToken() string {
	return "guest-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
