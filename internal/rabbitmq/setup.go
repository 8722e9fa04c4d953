package rabbitmq

// MailExchange is the direct exchange for outbound mail tasks.
const MailExchange = "mail"

// PasswordResetQueue carries password reset email tasks to the
// notification-sender worker.
const PasswordResetQueue = "mail.password_reset"

// PasswordResetRoutingKey routes reset tasks to PasswordResetQueue.
const PasswordResetRoutingKey = "password_reset"

// QueueConfig binds one queue to the mail exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetMailQueues returns the queue topology used by the API publisher and the
// notification-sender consumer.
func GetMailQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: PasswordResetQueue, RoutingKey: PasswordResetRoutingKey},
	}
}
