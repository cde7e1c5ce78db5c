package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/config"
	"github.com/mtsatou/mte-core/internal/infra/logger"
)

// SMTPMailer delivers verification codes over SMTP with PLAIN auth.
type SMTPMailer struct {
	cfg config.EmailSettings
	log *zap.Logger

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer wires an SMTP-backed mailer.
func NewSMTPMailer(cfg config.EmailSettings, log *zap.Logger) *SMTPMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPMailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Send delivers the verification code to the recipient.
func (m *SMTPMailer) Send(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Verification code\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nYour verification code is %s. It expires in 10 minutes.\r\n",
		from, email, code,
	)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	if err := m.send(addr, auth, from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.log.Info("verification mail sent",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("code", logger.MaskString(code)),
	)
	return nil
}

var _ port.Mailer = (*SMTPMailer)(nil)
