/*
Package user contains the identity helpers of the lobby server.

An identity is an opaque, client-generated string that stays stable across sessions.
It is never shown to other players; instead a short deterministic code derived from it
is displayed beside the nickname so that players sharing a nickname can be told apart.
*/
package user

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// Anonymous is the identity used by clients that did not send one.
	// It never accrues persisted playtime and never gets an identity record.
	Anonymous = "anonymous"

	// DefaultNickname is the nickname of a connection that has not introduced itself.
	DefaultNickname = "Unknown"

	// codeLength is the number of hex characters kept from the identity digest.
	codeLength = 4
)

// Code derives the short display code for identityID: the first four hex characters
// of its SHA-256 digest. The result is stable across runs and processes.
func Code(identityID string) string {
	sum := sha256.Sum256([]byte(identityID))
	return hex.EncodeToString(sum[:])[:codeLength]
}

// IsAnonymous reports whether identityID is the anonymous sentinel.
func IsAnonymous(identityID string) bool {
	return identityID == Anonymous
}
