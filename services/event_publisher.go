package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yashrajoria/storefront/models"
	aws_pkg "github.com/yashrajoria/storefront/pkg/aws"
)

// EventPublisher delivers order events to the configured event bus.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error
}

// KafkaWriter is satisfied by kafka.Producer.
type KafkaWriter interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type snsEventPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSEventPublisher(client aws_pkg.SNSPublisher, topicArn string) EventPublisher {
	return &snsEventPublisher{client: client, topicArn: topicArn}
}

func (p *snsEventPublisher) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.client.Publish(ctx, p.topicArn, data)
}

type kafkaEventPublisher struct {
	writer KafkaWriter
}

func NewKafkaEventPublisher(writer KafkaWriter) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

// PublishOrderEvent keys messages by order id.
func (p *kafkaEventPublisher) PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.writer.Publish(ctx, evt.OrderID, data)
}

// NopEventPublisher is used when EVENT_BUS=none.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }
