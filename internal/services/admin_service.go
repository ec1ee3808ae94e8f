package services

import (
	"crypto/subtle"
	"errors"

	"github.com/latestcomment/educhat/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	ErrAdminNotConfigured = errors.New("ADMIN_PASS not set: add ADMIN_PASS to the environment")
	ErrAdminDenied        = errors.New("incorrect admin password")
	ErrAdminRequired      = errors.New("admin access required")
)

// AdminGate checks the shared admin password. A grant is remembered on the
// session so later checks do not ask again.
type AdminGate struct {
	password string
}

func NewAdminGate(password string) *AdminGate {
	return &AdminGate{password: password}
}

func (g *AdminGate) Configured() bool { return g.password != "" }

// Authenticate returns nil when access is granted.
func (g *AdminGate) Authenticate(sess *models.Session, password string) error {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	if sess.AdminGranted {
		return nil
	}
	if g.password == "" {
		return ErrAdminNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) != 1 {
		log.Warn().Str("session_id", sess.ID).Msg("admin login rejected")
		return ErrAdminDenied
	}
	sess.AdminGranted = true
	log.Info().Str("session_id", sess.ID).Msg("admin access granted")
	return nil
}

// Granted reports whether the session already holds admin access.
func (g *AdminGate) Granted(sess *models.Session) bool {
	sess.Mu.Lock()
	defer sess.Mu.Unlock()
	return sess.AdminGranted
}
