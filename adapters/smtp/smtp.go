// Package smtp delivers verification codes by email over plain SMTP.
package smtp

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"

	"github.com/avennor/sluice/core"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address. Defaults to Username when empty.
	From string
}

type Mailer struct {
	config Config
	from   string
}

var _ core.Mailer = (*Mailer)(nil)

func New(config Config) *Mailer {
	from := config.From
	if from == "" {
		from = config.Username
	}
	return &Mailer{config: config, from: from}
}

func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = "Your verification code"
	e.Text = []byte(fmt.Sprintf("Your verification code is %s.\n\nThe code expires in 15 minutes.\n", code))

	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
