package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"account-lookup-api/internal/models"
)

const eventSource = "account-lookup-api"

type MessagingConfig struct {
	URL                string
	ExchangeName       string
	DeadLetterExchange string
	Persistent         bool
}

// EventMessage is the outbound envelope. The Subject carries the lookup key
// so consumers can correlate results with the originating request.
type EventMessage struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Source     string      `json:"source"`
	Subject    string      `json:"subject"`
	Data       interface{} `json:"data"`
	Timestamp  time.Time   `json:"timestamp"`
	Version    string      `json:"version"`
	RoutingKey string      `json:"routing_key"`
}

// LookupResultData is the payload of result events. An empty FspID with
// Found=false is the explicit no-FSP outcome.
type LookupResultData struct {
	Scope      string `json:"scope"`
	PartyType  string `json:"partyType"`
	PartyID    string `json:"partyId"`
	PartySubID string `json:"partySubId,omitempty"`
	Currency   string `json:"currency,omitempty"`
	FspID      string `json:"fspId,omitempty"`
	Found      bool   `json:"found"`
}

// AssociationEventData is the payload of association confirmation events.
type AssociationEventData struct {
	Scope      string `json:"scope"`
	FspID      string `json:"fspId"`
	PartyType  string `json:"partyType"`
	PartyID    string `json:"partyId"`
	PartySubID string `json:"partySubId,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

// LookupErrorData is the payload of error events.
type LookupErrorData struct {
	EventType string `json:"eventType"`
	Error     string `json:"error"`
}

type Publisher struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	config     *MessagingConfig
}

func NewPublisher(config *MessagingConfig) (*Publisher, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	publisher := &Publisher{
		connection: conn,
		channel:    ch,
		config:     config,
	}

	if err := publisher.setupExchanges(); err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to setup exchanges: %w", err)
	}

	return publisher, nil
}

func (p *Publisher) setupExchanges() error {
	for _, name := range []string{p.config.ExchangeName, p.config.DeadLetterExchange} {
		err := p.channel.ExchangeDeclare(
			name,
			"topic",
			true,  // durable
			false, // auto-delete
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func (p *Publisher) PublishLookupResult(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) error {
	data := &LookupResultData{
		Scope:      scope,
		PartyType:  ident.PartyType,
		PartyID:    ident.PartyID,
		PartySubID: ident.PartySubID,
		Currency:   ident.Currency,
		FspID:      fspID,
		Found:      fspID != "",
	}
	routingKey := fmt.Sprintf("account-lookup.%s.resolved", scope)
	return p.publishMessage(ctx, routingKey, ident.LookupKey(), data)
}

func (p *Publisher) PublishAssociationCreated(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) error {
	data := &AssociationEventData{
		Scope:      scope,
		FspID:      fspID,
		PartyType:  ident.PartyType,
		PartyID:    ident.PartyID,
		PartySubID: ident.PartySubID,
		Currency:   ident.Currency,
	}
	routingKey := fmt.Sprintf("account-lookup.%s.associated", scope)
	return p.publishMessage(ctx, routingKey, ident.LookupKey(), data)
}

func (p *Publisher) PublishAssociationRemoved(ctx context.Context, scope string, ident models.PartyIdentifier, fspID string) error {
	data := &AssociationEventData{
		Scope:      scope,
		FspID:      fspID,
		PartyType:  ident.PartyType,
		PartyID:    ident.PartyID,
		PartySubID: ident.PartySubID,
		Currency:   ident.Currency,
	}
	routingKey := fmt.Sprintf("account-lookup.%s.disassociated", scope)
	return p.publishMessage(ctx, routingKey, ident.LookupKey(), data)
}

// PublishLookupError mirrors the originating event's correlation key and
// carries an error descriptor instead of a result.
func (p *Publisher) PublishLookupError(ctx context.Context, eventType models.EventType, correlationKey, errorMessage string) error {
	data := &LookupErrorData{
		EventType: string(eventType),
		Error:     errorMessage,
	}
	return p.publishMessage(ctx, "account-lookup.error", correlationKey, data)
}

func (p *Publisher) publishMessage(ctx context.Context, routingKey, subject string, data interface{}) error {
	message := &EventMessage{
		ID:         uuid.NewString(),
		Type:       routingKey,
		Source:     eventSource,
		Subject:    subject,
		Data:       data,
		Timestamp:  time.Now().UTC(),
		Version:    "1.0",
		RoutingKey: routingKey,
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnableToPublishEvent, err)
	}

	deliveryMode := amqp.Transient
	if p.config.Persistent {
		deliveryMode = amqp.Persistent
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnableToPublishEvent, err)
	}

	err = p.channel.Publish(
		p.config.ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: deliveryMode,
			MessageId:    message.ID,
			Timestamp:    message.Timestamp,
			Type:         message.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: routing key %s: %v", models.ErrUnableToPublishEvent, routingKey, err)
	}

	return nil
}

// IsHealthy reports whether the underlying connection is still open.
func (p *Publisher) IsHealthy() bool {
	return p.connection != nil && !p.connection.IsClosed()
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
		}
	}
	return nil
}
