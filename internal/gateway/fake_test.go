package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptreach/scriptreach/internal/model"
)

func TestFakeMintsDistinctTokensPerSession(t *testing.T) {
	f := NewFake()
	f.AddAccount("a@example.com", "secret1", "A", model.RoleUser, model.StatusApproved)

	first, err := f.SignIn(context.Background(), "a@example.com", "secret1")
	require.NoError(t, err)
	second, err := f.SignIn(context.Background(), "a@example.com", "secret1")
	require.NoError(t, err)

	// Two sessions minted within the same second must still rotate, or
	// refresh-path tests cannot tell old token from new.
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}
