package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint is the hex sha256 of the JSON encoding of input.
// Map keys are encoded sorted, so equal payloads hash equally.
func Fingerprint[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonData)
	return hex.EncodeToString(sum[:]), nil
}
