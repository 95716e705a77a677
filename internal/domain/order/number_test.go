package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumberFormat(t *testing.T) {
	ts := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	n := NewNumber(ts)

	require.Len(t, n, len("ORD-20260828-")+numberSuffixLen)
	assert.True(t, strings.HasPrefix(n, "ORD-20260828-"), "got %s", n)

	suffix := n[len("ORD-20260828-"):]
	for _, c := range suffix {
		assert.Contains(t, numberAlphabet, string(c))
	}
}

func TestNewNumberUnique(t *testing.T) {
	ts := time.Now()
	seen := make(map[string]bool)
	for range 1000 {
		n := NewNumber(ts)
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
}
