package user

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeIsDeterministic(t *testing.T) {
	ids := []string{"99d04503-41b3-4d52-9ce7-bc447804e722", "anonymous", "", "ünïcødé"}

	for _, id := range ids {
		first := Code(id)
		assert.Len(t, first, 4)
		assert.Equal(t, first, Code(id), "code for %q must be stable", id)

		sum := sha256.Sum256([]byte(id))
		assert.Equal(t, hex.EncodeToString(sum[:])[:4], first)
	}
}

func TestCodeDiffersBetweenIdentities(t *testing.T) {
	assert.NotEqual(t, Code("player-one"), Code("player-two"))
}

func TestIsAnonymous(t *testing.T) {
	assert.True(t, IsAnonymous(Anonymous))
	assert.False(t, IsAnonymous("Anonymous"))
	assert.False(t, IsAnonymous(""))
}

func TestColorForIsStablePerNickname(t *testing.T) {
	book := NewColorBook()

	c := book.ColorFor("Solaire")
	assert.Contains(t, Palette, c)
	assert.Equal(t, c, book.ColorFor("Solaire"))
	assert.Equal(t, 1, book.Len())
}

func TestColorForAvoidsUsedColors(t *testing.T) {
	// Always pick the first candidate so the assignment order is predictable.
	book := NewColorBookWithRand(func(int) int { return 0 })

	seen := make(map[string]bool)
	for i := range Palette {
		c := book.ColorFor(string(rune('a'+i%26)) + string(rune('A'+i/26)))
		assert.False(t, seen[c], "color %s handed out twice before palette exhaustion", c)
		seen[c] = true
	}
	assert.Len(t, seen, len(Palette))

	// Palette exhausted: falls back to any palette color.
	assert.Equal(t, Palette[0], book.ColorFor("late-comer"))
}

func TestColorsKeyedByNicknameNotIdentity(t *testing.T) {
	book := NewColorBook()

	// Two different identities using the same nickname share one color.
	assert.Equal(t, book.ColorFor("Knight"), book.ColorFor("Knight"))
}
