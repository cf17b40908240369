package utils

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishJSON 把消息序列化后投递到指定队列
func PublishJSON(ctx context.Context, ch *amqp.Channel, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// QueuePublisher 绑定到单个队列的发布者，每次发布都有独立的超时
type QueuePublisher struct {
	ch      *amqp.Channel
	queue   string
	timeout time.Duration
}

func NewQueuePublisher(ch *amqp.Channel, queue string, timeout time.Duration) *QueuePublisher {
	return &QueuePublisher{
		ch:      ch,
		queue:   queue,
		timeout: timeout,
	}
}

func (p *QueuePublisher) Publish(ctx context.Context, v any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return PublishJSON(ctx, p.ch, p.queue, v)
}
