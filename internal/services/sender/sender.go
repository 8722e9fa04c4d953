// Package sender delivers outbound email for queued notification tasks.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/lib/smtp"
	"github.com/onirworld/legalassist/internal/services/auth"
)

// Service consumes mail tasks from the queue and sends them over SMTP.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New creates a sender service over the given SMTP transport.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendPasswordReset handles one password reset task from the queue.
func (s *Service) SendPasswordReset(body []byte) error {
	const op = "sender.SendPasswordReset"

	var task auth.ResetTask
	if err := json.Unmarshal(body, &task); err != nil {
		s.log.Error("failed to unmarshal reset task", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	subject := "Password reset request"
	bodyText := fmt.Sprintf(
		"Hello,\n\nA password reset was requested for your account.\n"+
			"Follow this link to choose a new password:\n\n%s\n\n"+
			"The link expires in one hour. If you did not request a reset, ignore this email.",
		task.ResetLink)

	return s.sendEmail([]string{task.Email}, subject, bodyText)
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
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP session", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Any("to", to))
	return nil
}
