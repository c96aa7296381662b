package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type ConsumerConfig struct {
	URL                string
	ExchangeName       string
	QueueName          string
	BindingKey         string
	ConsumerTag        string
	PrefetchCount      int
	MaxRetries         int
	DeadLetterExchange string
}

// Consumer pulls inbound lookup events off the bus and feeds them to the
// event handler one at a time. Validation and dispatch failures are the
// handler's concern; the consumer only manages the AMQP plumbing.
type Consumer struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	config     *ConsumerConfig
	logger     *logrus.Logger
	handler    *EventHandler
}

func connectWithRetry(url string, maxRetries int, logger *logrus.Logger) (*amqp.Connection, error) {
	for i := 0; i < maxRetries; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}

		if i < maxRetries-1 {
			wait := time.Duration(1<<uint(i)) * time.Second
			logger.Warnf("Failed to connect to RabbitMQ (attempt %d/%d), retrying in %v", i+1, maxRetries, wait)
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d retries", maxRetries)
}

func NewConsumer(config *ConsumerConfig, handler *EventHandler, logger *logrus.Logger) (*Consumer, error) {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}

	conn, err := connectWithRetry(config.URL, config.MaxRetries, logger)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		config.ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	queueArgs := amqp.Table{}
	if config.DeadLetterExchange != "" {
		queueArgs["x-dead-letter-exchange"] = config.DeadLetterExchange
	}

	q, err := ch.QueueDeclare(
		config.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		queueArgs,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(q.Name, config.BindingKey, config.ExchangeName, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"queue":       q.Name,
		"binding_key": config.BindingKey,
	}).Info("Account lookup consumer initialized")

	return &Consumer{
		connection: conn,
		channel:    ch,
		config:     config,
		logger:     logger,
		handler:    handler,
	}, nil
}

// Start consumes until the context is cancelled or the channel closes.
// Every delivery is acked after handling: the handler never returns
// transport-level failures, and redelivery of unprocessable messages would
// only loop.
func (c *Consumer) Start(ctx context.Context) error {
	prefetch := c.config.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.config.QueueName,
		c.config.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Account lookup worker started, waiting for messages")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Account lookup worker shutting down")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handler.HandleMessage(ctx, msg.Body)
			if err := msg.Ack(false); err != nil {
				c.logger.WithError(err).Error("Failed to ack message")
			}
		}
	}
}

// IsHealthy reports whether the underlying connection is still open.
func (c *Consumer) IsHealthy() bool {
	return c.connection != nil && !c.connection.IsClosed()
}

func (c *Consumer) Stop() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.connection != nil {
		if err := c.connection.Close(); err != nil {
			return fmt.Errorf("failed to close consumer connection: %w", err)
		}
	}
	return nil
}
