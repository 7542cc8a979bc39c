/*
Package randx provides identifiers and random choices used across the server.
*/
package randx

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// ConnectionID returns a UUID v4 string identifying one WebSocket connection in logs.
func ConnectionID() string {
	return uuid.New().String()
}

// Intn returns a pseudo-random number in [0, n). It panics if n <= 0.
func Intn(n int) int {
	return rand.IntN(n)
}
