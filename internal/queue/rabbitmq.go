package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
	"github.com/KOFI-GYIMAH/github-popularity/pkg/logger"
	"github.com/streadway/amqp"
)

const WarmupQueue = "popularity_warmup"

type WarmupHandler func(ctx context.Context, req models.WarmupRequest) error

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.New(
			"QUEUE_CONNECTION_ERROR",
			"Failed to connect to RabbitMQ",
			"Could not dial the message broker",
			err,
			errors.LevelFatal,
		)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.New(
			"QUEUE_CONNECTION_ERROR",
			"Failed to open RabbitMQ channel",
			"Could not open a channel on the broker connection",
			err,
			errors.LevelFatal,
		)
	}

	if _, err := channel.QueueDeclare(
		WarmupQueue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, errors.New(
			"QUEUE_CONNECTION_ERROR",
			"Failed to declare queue",
			fmt.Sprintf("Could not declare queue %s", WarmupQueue),
			err,
			errors.LevelFatal,
		)
	}

	logger.Info("Connected to RabbitMQ, using queue %s", WarmupQueue)
	return &RabbitMQ{
		conn:    conn,
		channel: channel,
	}, nil
}

func (r *RabbitMQ) PublishWarmupRequest(ctx context.Context, req models.WarmupRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.Publish(
		"",
		WarmupQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return errors.New(
			errors.RefQueuePublish,
			"Failed to queue warm-up",
			fmt.Sprintf("Could not publish warm-up [date=%s, lang=%s]", req.Since, req.Language),
			err,
			errors.LevelFatal,
		)
	}

	return nil
}

// ConsumeWarmupRequests delivers queued warm-ups to handler until ctx is done.
// Messages are acknowledged once handled; undecodable messages and failed
// warm-ups are dropped rather than requeued.
func (r *RabbitMQ) ConsumeWarmupRequests(ctx context.Context, handler WarmupHandler) error {
	r.mu.Lock()
	msgs, err := r.channel.Consume(
		WarmupQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					logger.Warn("Warm-up delivery channel closed")
					return
				}
				handleDelivery(ctx, d, handler)
			}
		}
	}()

	return nil
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handler WarmupHandler) {
	var req models.WarmupRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		logger.Error("Error decoding warm-up message: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, req); err != nil {
		logger.Error("Error handling warm-up [date=%s, lang=%s]: %v", req.Since, req.Language, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
