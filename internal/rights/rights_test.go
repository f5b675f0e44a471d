package rights

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestFromTokenGrantsScope(t *testing.T) {
	key := []byte("test-secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": "call.echo admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	r, err := FromToken(signed, key)
	require.NoError(t, err)
	require.True(t, r.Has("call.echo"))
	require.True(t, r.Has("admin"))
	require.False(t, r.Has("nope"))
	require.NoError(t, r.Require("admin"))
	require.ErrorIs(t, r.Require("nope"), ErrMissing)
}

func TestFromTokenRejectsBadSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"scope": "x"})
	signed, err := tok.SignedString([]byte("right-key"))
	require.NoError(t, err)

	_, err = FromToken(signed, []byte("wrong-key"))
	require.Error(t, err)
}

func TestAnonymousHasNoCapabilities(t *testing.T) {
	require.Error(t, Anonymous.Require("anything"))
}
