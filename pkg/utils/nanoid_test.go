package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNanoID(t *testing.T) {
	t.Run("default length", func(t *testing.T) {
		assert.Len(t, NewNanoID(), 8)
	})

	t.Run("custom length", func(t *testing.T) {
		assert.Len(t, NewNanoIDN(21), 21)
		assert.Empty(t, NewNanoIDN(0))
		assert.Empty(t, NewNanoIDN(-1))
	})

	t.Run("uses the alphabet only", func(t *testing.T) {
		id := NewNanoIDN(256)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(string(alphabet), c), "unexpected symbol %q", c)
		}
	})

	t.Run("alphabet has 64 symbols", func(t *testing.T) {
		assert.Len(t, alphabet, 64)
	})
}

func BenchmarkNanoid(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewNanoID()
	}
}
