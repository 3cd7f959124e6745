package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateJWT(42, time.Hour)
	require.NoError(t, err)

	uid, err := ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestJWTRejectsExpiredAndForeign(t *testing.T) {
	InitJWT("test-secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	s, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ParseJWT(s)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err = foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ParseJWT(s)
	assert.Error(t, err)

	_, err = ParseJWT("garbage")
	assert.Error(t, err)
}
