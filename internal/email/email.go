// Package email sends transactional mail on a fire-and-forget basis.
// Missing SMTP configuration disables sending entirely; failures are
// logged and never surface to the operation that triggered the send.
package email

import (
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/liquidinsider/storefront-api/internal/config"
)

type Mailer struct {
	host        string
	port        int
	user        string
	password    string
	from        string
	frontendURL string
	log         *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Mailer {
	return &Mailer{
		host:        cfg.SMTPHost,
		port:        cfg.SMTPPort,
		user:        cfg.SMTPUser,
		password:    cfg.SMTPPassword,
		from:        cfg.FromEmail,
		frontendURL: cfg.FrontendURL,
		log:         log,
	}
}

// Enabled reports whether SMTP credentials are configured.
func (m *Mailer) Enabled() bool {
	return m.host != "" && m.user != "" && m.password != ""
}

// SendVerificationEmail mails the signup verification link.
func (m *Mailer) SendVerificationEmail(to, token string) {
	url := fmt.Sprintf("%s/verify-email?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"<h2>Verify your email</h2><p>Click the link below to verify your email address:</p><a href=%q>Verify Email</a><p>Or copy this link: %s</p>",
		url, url)
	m.send(to, "Verify your email", body)
}

// SendPasswordResetEmail mails the password reset link.
func (m *Mailer) SendPasswordResetEmail(to, token string) {
	url := fmt.Sprintf("%s/reset-password?token=%s", m.frontendURL, token)
	body := fmt.Sprintf(
		"<h2>Reset your password</h2><p>Click the link below to choose a new password. The link expires in one hour.</p><a href=%q>Reset Password</a><p>Or copy this link: %s</p>",
		url, url)
	m.send(to, "Reset your password", body)
}

// SendOrderConfirmation mails a receipt after an order is placed.
func (m *Mailer) SendOrderConfirmation(to, orderNumber string, total float64) {
	body := fmt.Sprintf(
		"<h2>Thanks for your order!</h2><p>Order <strong>%s</strong> has been received. Total: $%.2f.</p><p>We will email you again when it ships.</p>",
		orderNumber, total)
	m.send(to, fmt.Sprintf("Order confirmation %s", orderNumber), body)
}

// send delivers in a background goroutine so a slow or failing SMTP
// server can never block or fail the request that triggered the mail.
func (m *Mailer) send(to, subject, htmlBody string) {
	if !m.Enabled() {
		m.log.Warn("email not configured, skipping send", zap.String("subject", subject))
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	go func() {
		d := gomail.NewDialer(m.host, m.port, m.user, m.password)
		if err := d.DialAndSend(msg); err != nil {
			m.log.Error("failed to send email",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err))
			return
		}
		m.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	}()
}
