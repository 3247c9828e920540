package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// KeySeparator splits an API key into {productID}_{tag}_{random}. Product
// IDs must never contain it.
const KeySeparator = "_"

const (
	keyTag         = "prod"
	keyRandomBytes = 16
	maxProductID   = 32
)

var (
	ErrInvalidProductID = errors.New("product id must be 1-32 characters of a-z, 0-9, or '-' and start with a letter or digit")

	productIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,31}$`)
	nonSlugRun       = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidateProductID checks that id is a usable product ID and API key
// prefix.
func ValidateProductID(id string) error {
	if !productIDPattern.MatchString(id) {
		return ErrInvalidProductID
	}
	return nil
}

// ProductIDFromName derives a product ID from a display name, e.g.
// "Auto Landlord" becomes "auto-landlord". The result may still be empty
// for names without any letters or digits.
func ProductIDFromName(name string) string {
	id := nonSlugRun.ReplaceAllString(strings.ToLower(name), "-")
	id = strings.Trim(id, "-")
	if len(id) > maxProductID {
		id = strings.TrimRight(id[:maxProductID], "-")
	}
	return id
}

// ProductIDFromKey returns the product ID prefix of a raw API key.
func ProductIDFromKey(key string) (string, bool) {
	id, _, _ := strings.Cut(key, KeySeparator)
	if id == "" {
		return "", false
	}
	return id, true
}

// GenerateAPIKey returns a fresh plaintext key for the product.
func GenerateAPIKey(productID string) (string, error) {
	if err := ValidateProductID(productID); err != nil {
		return "", err
	}
	b := make([]byte, keyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return productID + KeySeparator + keyTag + KeySeparator + hex.EncodeToString(b), nil
}
