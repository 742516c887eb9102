package queue

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/campaign-dispatch/internal/logging"
)

// Channel is the part of *amqp.Channel the queue uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue publishes JSON bodies to one durable queue per topic.
type AMQPQueue struct {
	conn     *amqp.Connection
	ch       Channel
	mu       sync.Mutex
	declared map[string]bool
	logger   *zap.Logger
}

func DialAMQP(url string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	q := NewAMQPQueue(ch, logger)
	q.conn = conn
	return q, nil
}

func NewAMQPQueue(ch Channel, logger *zap.Logger) *AMQPQueue {
	return &AMQPQueue{ch: ch, declared: map[string]bool{}, logger: logging.OrNop(logger)}
}

func (q *AMQPQueue) declare(topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	_, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return q.ch.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Subscribe consumes topic with manual ack. Handler errors are logged and
// the delivery is acked anyway: failed dispatches are not requeued.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	if err := q.declare(topic); err != nil {
		return err
	}
	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			payload, err := decode(topic, d.Body)
			if err != nil {
				q.logger.Warn("invalid job", zap.String("topic", topic), zap.Error(err))
				_ = d.Ack(false)
				continue
			}
			if err := handler(payload); err != nil {
				q.logger.Error("job failed", zap.String("topic", topic), zap.Error(err))
			}
			_ = d.Ack(false)
		}
		q.logger.Info("consumer stopped", zap.String("topic", topic))
	}()
	return nil
}

// decode maps known topics to their payload type.
func decode(topic string, body []byte) (any, error) {
	switch topic {
	case DispatchTopic:
		var job DispatchJob
		if err := json.Unmarshal(body, &job); err != nil {
			return nil, err
		}
		if job.CampaignID <= 0 {
			return nil, fmt.Errorf("missing campaign_id")
		}
		return job, nil
	}
	return json.RawMessage(body), nil
}

func (q *AMQPQueue) Close() error {
	err := q.ch.Close()
	if q.conn != nil {
		if cerr := q.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var (
	_ Queue = (*InMemoryQueue)(nil)
	_ Queue = (*AMQPQueue)(nil)
)
