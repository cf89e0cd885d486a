package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return tok
}

func TestInspectAccessToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := mintToken(t, jwt.MapClaims{"sub": "subject-123", "exp": exp.Unix()})

	sub, at, err := InspectAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "subject-123", sub)
	assert.True(t, at.Equal(exp.UTC()))
}

func TestInspectAccessTokenNoExpiry(t *testing.T) {
	tok := mintToken(t, jwt.MapClaims{"sub": "subject-123"})

	sub, at, err := InspectAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "subject-123", sub)
	assert.True(t, at.IsZero())
}

func TestInspectAccessTokenErrors(t *testing.T) {
	_, _, err := InspectAccessToken("not-a-jwt")
	assert.Error(t, err)

	tok := mintToken(t, jwt.MapClaims{"exp": time.Now().Unix()})
	_, _, err = InspectAccessToken(tok)
	assert.Error(t, err, "a token without a subject is useless to us")
}
