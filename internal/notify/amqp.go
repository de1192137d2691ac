package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/turnosmed/api-turnos/internal/model"
)

// AMQPEmitter publishes turno events to a durable RabbitMQ queue.  This
// is the audit feed: unlike the live channel, messages are persistent so
// the background consumer can append every booking and cancellation to
// the log even across broker restarts.  The function attempts to be
// robust and never panic; any error is logged and returned so the caller
// can choose to ignore it.
type AMQPEmitter struct {
	url       string
	queueName string
}

// NewAMQPEmitter returns an emitter that dials the broker per publish.
// Booking throughput is human-paced, so connection churn is preferable
// to keeping a broker connection healthy in every API instance.
func NewAMQPEmitter(url, queueName string) *AMQPEmitter {
	return &AMQPEmitter{url: url, queueName: queueName}
}

// Publish implements Emitter.
func (e *AMQPEmitter) Publish(ctx context.Context, topic string, turno model.Turno) error {
	conn, err := amqp.Dial(e.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		e.queueName, // name
		true,        // durable
		false,       // autoDelete
		false,       // exclusive
		false,       // noWait
		nil,         // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(envelope(topic, turno))
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",          // default exchange
		e.queueName, // routing key = queue name
		false,       // mandatory
		false,       // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
