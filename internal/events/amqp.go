package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/streadway/amqp"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpDialer opens a connection and a channel with the queue declared.
type amqpDialer func() (amqpChannel, io.Closer, error)

// AMQPPublisher sends events to a durable RabbitMQ queue through the
// default exchange. A channel closed by the broker is re-dialed once on the
// next publish.
type AMQPPublisher struct {
	mu    sync.Mutex
	dial  amqpDialer
	conn  io.Closer
	ch    amqpChannel
	queue string
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		queue: queue,
		dial:  func() (amqpChannel, io.Closer, error) { return dialAMQP(url, queue) },
	}
	if err := p.redial(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialAMQP(url, queue string) (amqpChannel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare %s: %w", queue, err)
	}

	return ch, conn, nil
}

// redial replaces the connection and channel. Callers hold mu, except the
// constructor.
func (p *AMQPPublisher) redial() error {
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e OrderSaved) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         e.Type,
		Timestamp:    e.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish("", p.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if rerr := p.redial(); rerr != nil {
			return fmt.Errorf("amqp reconnect: %w", rerr)
		}
		err = p.ch.Publish("", p.queue, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil && !errors.Is(chErr, amqp.ErrClosed) {
		return fmt.Errorf("failed to close channel: %w", chErr)
	}
	return connErr
}
