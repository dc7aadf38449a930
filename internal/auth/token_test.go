package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	sut := NewJWTVerifier("test-secret")

	token, err := sut.Sign("U1", time.Minute)
	require.NoError(t, err)

	userID, err := sut.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "U1", userID)
}

func TestVerify_EmptyToken(t *testing.T) {
	sut := NewJWTVerifier("test-secret")

	_, err := sut.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	sut := NewJWTVerifier("test-secret")

	_, err := sut.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	sut := NewJWTVerifier("test-secret")

	token, err := sut.Sign("U1", -time.Minute)
	require.NoError(t, err)

	_, err = sut.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewJWTVerifier("other-secret").Sign("U1", time.Minute)
	require.NoError(t, err)

	_, err = NewJWTVerifier("test-secret").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingSubject(t *testing.T) {
	sut := NewJWTVerifier("test-secret")

	token, err := sut.Sign("", time.Minute)
	require.NoError(t, err)

	_, err = sut.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
