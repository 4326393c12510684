package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

const (
	// MailExchange — exchange для почтовых уведомлений.
	MailExchange = "mail"
	// VerificationQueue — очередь писем с подтверждением почты.
	VerificationQueue = "mail.verification"
	// VerificationRoutingKey — ключ маршрутизации для писем подтверждения.
	VerificationRoutingKey = "verification"
)

// SetupChannel создаёт канал и объявляет exchange и очередь почтовых уведомлений.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	err = ch.ExchangeDeclare(
		MailExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_, err = ch.QueueDeclare(
		VerificationQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = ch.QueueBind(VerificationQueue, VerificationRoutingKey, MailExchange, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}
