// Package sender отправляет письма подтверждения email по сообщениям
// из очереди RabbitMQ.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/lib/smtp"
	"github.com/avdeevsm/servergate/internal/models"
)

// Service читает сообщения очереди и доставляет письма через SMTP.
type Service struct {
	transport   smtp.TransportInterface
	frontendURL string
	log         *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		transport:   transport,
		frontendURL: frontendURL,
		log:         log,
	}
}

// SendVerificationEmail отправляет письмо со ссылкой подтверждения email.
// body — JSON-сообщение models.VerificationEmail из очереди.
func (s *Service) SendVerificationEmail(body []byte) error {
	var message models.VerificationEmail
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, message.Token)
	to := []string{message.Email}
	subject := "Подтверждение адреса электронной почты"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nЧтобы подтвердить адрес электронной почты, перейдите по ссылке:\n%s\n\nЕсли вы не регистрировались, просто проигнорируйте это письмо.",
		message.Username, link)

	return s.sendEmail(to, subject, bodyText)
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
