package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mail письмо по шаблону
type Mail struct {
	To      string
	ToName  string
	Subject string
	Body    string
	Data    map[string]any
}

// Mailer отправка писем
type Mailer interface {
	SendMailWithTemplate(ctx context.Context, mail Mail) error
}

// SendGridMailer отправляет письма через SendGrid
type SendGridMailer struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridMailer(apiKey, fromName, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: "[" + fromName + "] ",
	}
}

func (m *SendGridMailer) SendMailWithTemplate(ctx context.Context, mail Mail) error {
	to := sgmail.NewEmail(mail.ToName, mail.To)
	message := sgmail.NewSingleEmail(m.from, m.subjPrefix+mail.Subject, to, mail.Body, "")

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send mail: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

// LogMailer пишет письма в лог, когда SendGrid не настроен
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMailWithTemplate(_ context.Context, mail Mail) error {
	m.logger.Info("Mail (not sent, mailer disabled)",
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject),
		zap.String("body", mail.Body))
	return nil
}
