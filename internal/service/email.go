package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"rentalhub-backend/internal/config"
	"rentalhub-backend/internal/logger"
)

// NewEmailSender picks the delivery backend named by cfg.Provider.
func NewEmailSender(cfg config.EmailConfig) (EmailSender, error) {
	switch cfg.Provider {
	case "smtp":
		return NewSMTPEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.From, cfg.FromName), nil
	case "sendgrid":
		return NewSendGridEmailSender(cfg.SendGridAPIKey, cfg.From, cfg.FromName), nil
	case "", "log":
		return logEmailSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

type smtpEmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

func NewSMTPEmailSender(host string, port int, username, password, from, fromName string) EmailSender {
	return &smtpEmailSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

func (s *smtpEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	logger.ExternalServiceCall("smtp", "send", "to", to, "subject", subject)
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetAddressHeader("To", to, toName)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	err := d.DialAndSend(m)
	if err != nil {
		err = fmt.Errorf("failed to send email via gomail: %w", err)
	}
	logger.ExternalServiceResult("smtp", "send", err, "to", to)
	return err
}

type sendGridEmailSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridEmailSender(apiKey, from, fromName string) EmailSender {
	return &sendGridEmailSender{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}
}

func (s *sendGridEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	logger.ExternalServiceCall("sendgrid", "send", "to", to, "subject", subject)
	message := mail.NewSingleEmail(mail.NewEmail(s.fromName, s.from), subject, mail.NewEmail(toName, to), body, "")
	response, err := s.client.SendWithContext(ctx, message)
	switch {
	case err != nil:
		err = fmt.Errorf("failed to send email: %w", err)
	case response.StatusCode >= 400:
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", to)
	return err
}

// logEmailSender only logs. Used in development and tests.
type logEmailSender struct{}

func (logEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	logger.Info("Email (not sent)", "to", to, "subject", subject)
	return nil
}
