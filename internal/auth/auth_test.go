package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("test-secret", 12*time.Hour, "security_console", "letmein123")
}

func TestAuthenticate_ValidCredentials(t *testing.T) {
	m := newTestManager()

	token, err := m.Authenticate("security_console", "letmein123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "security_console", claims.Subject)
	assert.Equal(t, RoleSecurityEngineer, claims.Role)
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	m := newTestManager()

	_, err := m.Authenticate("security_console", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.Authenticate("intruder", "letmein123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	token, err := m.GenerateToken("security_console")
	require.NoError(t, err)

	other := NewManager("different-secret", 12*time.Hour, "security_console", "letmein123")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	m := newTestManager()
	// Issue a token from two days in the past.
	m.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := m.GenerateToken("security_console")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	m := newTestManager()
	_, err := m.ValidateToken("not-a-token")
	assert.Error(t, err)
}
