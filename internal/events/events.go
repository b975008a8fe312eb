// Package events carries post lifecycle changes over Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"campaignstudio/internal/config"
)

type Type string

const (
	PostsGenerated  Type = "posts.generated"
	PostUpdated     Type = "post.updated"
	ImagesChanged   Type = "post.images_changed"
	PostSubmitted   Type = "post.submitted"
	PostReviewed    Type = "post.reviewed"
	PostScheduled   Type = "post.scheduled"
	PostUnscheduled Type = "post.unscheduled"
	PostPublished   Type = "post.published"
	PostFailed      Type = "post.failed"
	ThemesGenerated Type = "themes.generated"
)

type Event struct {
	Type       Type      `json:"type"`
	PostID     string    `json:"postId,omitempty"`
	CampaignID string    `json:"campaignId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status,omitempty"`
	At         time.Time `json:"at"`
}

// Key partitions by post so a post's events stay ordered; campaign level
// events fall back to the campaign.
func (e Event) Key() []byte {
	if e.PostID != "" {
		return []byte(e.PostID)
	}
	return []byte(e.CampaignID)
}

func Decode(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" || e.UserID == "" {
		return Event{}, errors.New("decode event: missing type or user")
	}
	return e, nil
}

type Publisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		log: log.With().Str("component", "events").Logger(),
	}
}

func (p *Publisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		if e.At.IsZero() {
			e.At = time.Now().UTC()
		}
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: e.Key(), Value: value})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Subscribe reads the topic with the configured consumer group until ctx is
// done, calling handle for every decodable event.
func Subscribe(ctx context.Context, cfg config.KafkaConfig, log zerolog.Logger, handle func(Event)) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	defer reader.Close()

	log = log.With().Str("component", "events").Logger()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		e, err := Decode(msg.Value)
		if err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping event")
			continue
		}
		handle(e)
	}
}
