package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// generateUserID returns a random user id
func generateUserID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("u_%d", time.Now().UnixNano())
	}
	return "u_" + hex.EncodeToString(b)
}
