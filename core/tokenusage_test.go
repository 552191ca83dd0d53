package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsageAddIsElementWiseAndImmutable(t *testing.T) {
	a := TokenUsage{CacheRead: 1, InputRegular: 2, TextOutput: 3}
	b := TokenUsage{CacheWrite: 10, InputRegular: 5, ReasoningOutput: 1}

	sum := a.Add(b)

	assert.Equal(t, TokenUsage{CacheRead: 1, CacheWrite: 10, InputRegular: 7, ReasoningOutput: 1, TextOutput: 3}, sum)
	// inputs unchanged
	assert.Equal(t, TokenUsage{CacheRead: 1, InputRegular: 2, TextOutput: 3}, a)
	assert.Equal(t, TokenUsage{CacheWrite: 10, InputRegular: 5, ReasoningOutput: 1}, b)
}

func TestTokenUsageTotal(t *testing.T) {
	u := TokenUsage{CacheRead: 1, CacheWrite: 2, InputRegular: 3, ReasoningOutput: 4, TextOutput: 5}
	assert.Equal(t, int64(15), u.Total())
}
