package redisstream

import (
	"context"
	"strings"

	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/logging"
)

// MirrorOption returns an events.BusOption that copies every event onto the
// configured stream. It returns nil when no address is set.
func MirrorOption(s Settings) (events.BusOption, error) {
	if !s.Enabled() {
		return nil, nil
	}
	s = s.withDefaults()
	pub, err := NewPublisher(s)
	if err != nil {
		return nil, err
	}
	return events.WithMirror(pub, s.Topic), nil
}

// NewPublisher returns a publisher that owns its redis client; the
// publisher's Close also closes the client.
func NewPublisher(s Settings) (message.Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: rstream.DefaultMarshallerUnmarshaller{},
	}, logging.NewWatermill(log.Logger))
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis stream publisher")
	}
	return pub, nil
}

// NewSubscriber returns a subscriber bound to the settings' consumer group.
// Like the publisher, it closes its client on Close.
func NewSubscriber(s Settings) (message.Subscriber, error) {
	s = s.withDefaults()
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  rstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logging.NewWatermill(log.Logger))
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis stream subscriber")
	}
	return sub, nil
}

// EnsureGroupAtTail creates the consumer group at the tail ($) if it doesn't
// exist, so a new tail does not replay the whole stream.
func EnsureGroupAtTail(ctx context.Context, s Settings) error {
	s = s.withDefaults()
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	defer func() { _ = client.Close() }()
	err := client.XGroupCreateMkStream(ctx, s.Topic, s.Group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrap(err, "create consumer group")
	}
	log.Info().Str("stream", s.Topic).Str("group", s.Group).Msg("created redis consumer group at $ (tail)")
	return nil
}
