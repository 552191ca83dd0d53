package agentloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepLimiterErrorsOnceExceeded(t *testing.T) {
	l := NewStepLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Error(t, l.Increment())
	assert.Equal(t, 3, l.Count())
}

func TestStepLimiterUnlimitedWhenNonPositive(t *testing.T) {
	l := NewStepLimiter(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, l.Increment())
	}
	assert.Equal(t, 1000, l.Count())
}
