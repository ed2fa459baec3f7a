package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultTopic = "chat-ui"

// Bus fans events out over an in-process watermill GoChannel. Mirrors receive
// a copy of every event; their failures are logged and never block the UI.
type Bus struct {
	ch      *gochannel.GoChannel
	topic   string
	mirrors []mirror
}

type mirror struct {
	pub   message.Publisher
	topic string
}

var _ Sink = &Bus{}

type BusOption func(*Bus)

func WithTopic(topic string) BusOption {
	return func(b *Bus) { b.topic = topic }
}

func WithMirror(pub message.Publisher, topic string) BusOption {
	return func(b *Bus) { b.mirrors = append(b.mirrors, mirror{pub: pub, topic: topic}) }
}

func NewBus(logger watermill.LoggerAdapter, opts ...BusOption) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	b := &Bus{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, logger),
		topic: DefaultTopic,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", string(ev.Kind))
	msg.SetContext(ctx)
	if err := b.ch.Publish(b.topic, msg); err != nil {
		return errors.Wrapf(err, "publish %s", ev.Kind)
	}

	for _, m := range b.mirrors {
		cp := message.NewMessage(watermill.NewUUID(), payload)
		cp.Metadata.Set("kind", string(ev.Kind))
		if err := m.pub.Publish(m.topic, cp); err != nil {
			log.Warn().Err(err).Str("topic", m.topic).Str("kind", string(ev.Kind)).Msg("event mirror publish failed")
		}
	}
	return nil
}

// Subscribe yields decoded events until ctx is cancelled. Undecodable
// messages are acked and skipped.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.ch.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe")
	}
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				log.Warn().Err(err).Str("uuid", msg.UUID).Msg("dropping undecodable event")
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	var firstErr error
	if err := b.ch.Close(); err != nil {
		firstErr = err
	}
	for _, m := range b.mirrors {
		if err := m.pub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
