// Package queue carries booking and car events over RabbitMQ.  The API
// publishes every event to a durable topic exchange with the event kind as
// routing key; the audit consumer binds a queue to all of them and appends
// one line per event to logs/booking.log.
package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange every event is published to.
	ExchangeName = "car_rental.events"
	// AuditQueueName is the durable queue feeding the audit log.
	AuditQueueName = "booking.audit"
	// auditBinding matches every routing key.
	auditBinding = "#"
)

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

func declareAuditQueue(ch *amqp.Channel) error {
	if err := declareExchange(ch); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(AuditQueueName, auditBinding, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}
