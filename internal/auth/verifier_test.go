package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevMode(t *testing.T) {
	v := NewVerifier("", "")
	p, err := v.Verify("t1:admin")
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "t1", Role: "admin"}, p)

	_, err = v.Verify("t1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHMACMode(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	tok, err := v.Issue(Principal{Tenant: "t1", Role: "planner", Subject: "u1"}, time.Minute)
	require.NoError(t, err)

	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Principal{Tenant: "t1", Role: "planner", Subject: "u1"}, p)

	other := NewVerifier("hmac", "different")
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired, err := v.Issue(Principal{Tenant: "t1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHMACRejectsOtherAlgorithms(t *testing.T) {
	v := NewVerifier("hmac", "s3cret")
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"tenant": "t1", "exp": time.Now().Add(time.Minute).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(none)
	assert.ErrorIs(t, err, ErrUnauthorized)

	noTenant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}).
		SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(noTenant)
	assert.ErrorContains(t, err, "tenant")
}
