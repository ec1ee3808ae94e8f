package services

import (
	"testing"

	"github.com/latestcomment/educhat/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticateGrantsAndRemembers(t *testing.T) {
	gate := NewAdminGate("P@ssword")
	sess := models.NewSession()

	assert.NoError(t, gate.Authenticate(sess, "P@ssword"))
	assert.True(t, gate.Granted(sess))

	// Later checks short-circuit even with a wrong password.
	assert.NoError(t, gate.Authenticate(sess, ""))
	assert.NoError(t, gate.Authenticate(sess, "nope"))
}

func TestAuthenticateWrongPassword(t *testing.T) {
	gate := NewAdminGate("P@ssword")
	sess := models.NewSession()

	for _, pwd := range []string{"", "p@ssword", "P@ssword ", "P@sswor"} {
		assert.ErrorIs(t, gate.Authenticate(sess, pwd), ErrAdminDenied)
	}
	assert.False(t, gate.Granted(sess))
}

func TestAuthenticateUnconfigured(t *testing.T) {
	gate := NewAdminGate("")
	sess := models.NewSession()

	err := gate.Authenticate(sess, "anything")
	assert.ErrorIs(t, err, ErrAdminNotConfigured)
	assert.NotErrorIs(t, err, ErrAdminDenied)
	assert.ErrorIs(t, gate.Authenticate(sess, ""), ErrAdminNotConfigured)
	assert.False(t, gate.Granted(sess))
	assert.False(t, gate.Configured())
}

func TestAdminGrantIsPerSession(t *testing.T) {
	gate := NewAdminGate("P@ssword")
	a, b := models.NewSession(), models.NewSession()

	assert.NoError(t, gate.Authenticate(a, "P@ssword"))
	assert.False(t, gate.Granted(b))
	assert.ErrorIs(t, gate.Authenticate(b, "wrong"), ErrAdminDenied)
}
