package token_management

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenManager_AccumulatesAndClears(t *testing.T) {
	tm := NewTokenManager()

	tm.UsedTokens(100, 20)
	tm.UsedTokens(5, 7)

	total, input, output := tm.GetCurrentTokenUsage()
	assert.Equal(t, 132, total)
	assert.Equal(t, 105, input)
	assert.Equal(t, 27, output)

	tm.ClearToken()
	total, input, output = tm.GetCurrentTokenUsage()
	assert.Zero(t, total)
	assert.Zero(t, input)
	assert.Zero(t, output)
}
