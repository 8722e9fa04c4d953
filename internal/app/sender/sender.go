// Package sender assembles the notification-sender worker: the mail queue
// consumer and the SMTP transport.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/onirworld/legalassist/internal/config"
	smtptransport "github.com/onirworld/legalassist/internal/lib/smtp"
	"github.com/onirworld/legalassist/internal/rabbitmq"
	senderservice "github.com/onirworld/legalassist/internal/services/sender"
)

// App is the assembled worker.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	service *senderservice.Service
	logger  *slog.Logger
}

// New connects to the queue and builds the sender service.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	transport := smtptransport.NewTransport(&cfg.SMTPConnection, logger)
	service := senderservice.New(transport, logger)

	return &App{
		conn:    conn,
		ch:      ch,
		service: service,
		logger:  logger,
	}, nil
}

// Run consumes the mail queues until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.PasswordResetQueue, a.service.SendPasswordReset)
	if err != nil {
		a.logger.Error("failed to start password reset consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	return nil
}
