package main

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T, db *DB) *Auth {
	t.Helper()
	a, err := NewAuth(db, nopLogger())
	require.NoError(t, err)
	a.cost = bcrypt.MinCost
	return a
}

func TestRegisterAndValidate(t *testing.T) {
	a := newTestAuth(t, openTestDB(t))

	id, token, err := a.Register("  alice_1 ", "secret")
	require.NoError(t, err)
	assert.Positive(t, id)

	gotID, username, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "alice_1", username)

	_, _, err = a.Register("alice_1", "another")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAuth(t, openTestDB(t))

	for _, name := range []string{"a", "a-b", "guest-1234", "with space", strings.Repeat("x", 17)} {
		_, _, err := a.Register(name, "secret")
		assert.ErrorIs(t, err, ErrBadUsername, name)
	}
	_, _, err := a.Register("bob", "abc")
	assert.ErrorIs(t, err, ErrBadPassword)
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t, openTestDB(t))
	id, _, err := a.Register("alice", "secret")
	require.NoError(t, err)

	gotID, token, err := a.Login("alice", "secret", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	_, username, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, _, err = a.Login("alice", "wrong", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login("nobody", "secret", "1.2.3.4")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRateLimit(t *testing.T) {
	a := newTestAuth(t, openTestDB(t))
	for i := 0; i < maxLoginAttempts; i++ {
		_, _, err := a.Login("nobody", "x", "5.6.7.8")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, err := a.Login("nobody", "x", "5.6.7.8")
	assert.ErrorIs(t, err, ErrRateLimited)

	_, _, err = a.Login("nobody", "x", "9.9.9.9")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "limits are per address")
}

func TestValidateTokenRejects(t *testing.T) {
	db := openTestDB(t)
	a := newTestAuth(t, db)

	_, _, err := a.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"pid": 1, "usr": "alice"})
	signed, err := forged.SignedString([]byte("some other key"))
	require.NoError(t, err)
	_, _, err = a.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"pid": 1}).SignedString(a.jwtSecret)
	require.NoError(t, err)
	_, _, err = a.ValidateToken(noUser)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSecretSurvivesRestart(t *testing.T) {
	db := openTestDB(t)
	first := newTestAuth(t, db)
	_, token, err := first.Register("alice", "secret")
	require.NoError(t, err)

	second := newTestAuth(t, db)
	assert.Equal(t, first.jwtSecret, second.jwtSecret)
	_, username, err := second.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestGuestPlayerID(t *testing.T) {
	a, b := GuestPlayerID(), GuestPlayerID()
	assert.True(t, strings.HasPrefix(string(a), "guest-"))
	assert.NotEqual(t, a, b)
	assert.False(t, usernameRe.MatchString(string(a)), "guests never collide with accounts")
}
