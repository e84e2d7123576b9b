package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/config"
)

func TestEnabled(t *testing.T) {
	log := zap.NewNop()

	m := New(&config.Config{}, log)
	assert.False(t, m.Enabled())

	m = New(&config.Config{SMTPHost: "smtp.example.com"}, log)
	assert.False(t, m.Enabled())

	m = New(&config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUser:     "mailer",
		SMTPPassword: "hunter2",
	}, log)
	assert.True(t, m.Enabled())
}

// Sends with no SMTP configured must be silent no-ops, not errors or
// panics; handlers call these fire-and-forget.
func TestSendSkippedWhenDisabled(t *testing.T) {
	m := New(&config.Config{FrontendURL: "http://localhost:3000"}, zap.NewNop())

	assert.NotPanics(t, func() {
		m.SendVerificationEmail("user@example.com", "tok123")
		m.SendPasswordResetEmail("user@example.com", "tok456")
		m.SendOrderConfirmation("user@example.com", "ORD-ABC-12345", 28.32)
	})
}
