package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	userID, err := UserIDFromToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, 42, userID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken(42, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, []byte("other-secret"))
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken(42, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, testSecret)
	require.Error(t, err)
}

func TestZeroUserIDRejected(t *testing.T) {
	token, err := GenerateToken(0, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, testSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := UserIDFromToken("not-a-token", testSecret)
	require.Error(t, err)
}
