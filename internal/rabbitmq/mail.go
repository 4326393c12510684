package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/avdeevsm/servergate/internal/models"
)

// MailPublisher публикует почтовые сообщения в exchange почтовых уведомлений.
type MailPublisher struct {
	ch *amqp.Channel
}

// NewMailPublisher создает новый экземпляр MailPublisher.
func NewMailPublisher(ch *amqp.Channel) *MailPublisher {
	return &MailPublisher{ch: ch}
}

// PublishVerificationEmail ставит письмо подтверждения email в очередь отправки.
func (p *MailPublisher) PublishVerificationEmail(msg models.VerificationEmail) error {
	return PublishMessage(p.ch, MailExchange, VerificationRoutingKey, msg)
}
