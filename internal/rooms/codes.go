package rooms

import (
	"crypto/rand"
	"encoding/hex"
)

// Room codes are 6 lowercase hex characters, e.g. "ab12cd".
const codeBytes = 3

func GenerateCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
