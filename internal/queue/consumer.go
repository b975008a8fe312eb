package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campaignstudio/internal/config"
)

// maxDeliveries bounds redelivery of a task that keeps failing.
const maxDeliveries = 5

type Handler interface {
	Handle(ctx context.Context, task Task) error
}

type Consumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	log           zerolog.Logger
	handler       Handler
}

func NewConsumer(client *redis.Client, cfg config.QueueConfig, log zerolog.Logger, handler Handler) *Consumer {
	claim := cfg.ClaimInterval
	if claim <= 0 {
		claim = 30 * time.Second
	}
	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumer:      cfg.Consumer,
		claimInterval: claim,
		log:           log.With().Str("component", "queue").Str("stream", cfg.Stream).Logger(),
		handler:       handler,
	}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s: %w", c.group, err)
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		if err := c.read(ctx); err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Msg("stream read error")
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.log.Error().Err(err).Msg("claim stalled failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    5 * time.Second,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg, 1)
		}
	}
	return nil
}

// process acks on success and on undecodable payloads; a failed handler
// leaves the entry pending for claimStalled.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage, attempt int) {
	task, err := decodeTask(msg.Values)
	if err != nil {
		c.log.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping task")
		c.ack(ctx, msg.ID)
		return
	}
	task.Attempt = attempt

	start := time.Now()
	if err := c.handler.Handle(ctx, task); err != nil {
		c.log.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("task", string(task.Type)).
			Int("attempt", attempt).
			Msg("task failed")
		return
	}
	c.log.Debug().
		Str("message_id", msg.ID).
		Str("task", string(task.Type)).
		Dur("took", time.Since(start)).
		Msg("task done")
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.log.Error().Err(err).Str("message_id", id).Msg("ack failed")
	}
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   c.claimInterval,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.RetryCount >= maxDeliveries {
			c.log.Warn().Str("message_id", entry.ID).Int64("deliveries", entry.RetryCount).Msg("giving up on task")
			c.ack(ctx, entry.ID)
			continue
		}
		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.log.Error().Err(err).Str("message_id", entry.ID).Msg("claim failed")
			continue
		}
		for _, msg := range msgs {
			c.process(ctx, msg, int(entry.RetryCount)+1)
		}
	}
	return nil
}
