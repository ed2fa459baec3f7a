package cmds

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatwidget/pkg/config"
	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/redisstream"
)

func NewEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with UI events mirrored to Redis",
	}
	cmd.AddCommand(newEventsTailCommand())
	return cmd
}

func newEventsTailCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Follow events published by running chat sessions",
		Long: "Follow events mirrored to the Redis stream. Requires --redis-stream-addr; " +
			"only events published after the consumer group was created are shown.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			rs := s.RedisStream
			if !rs.Enabled() {
				return errors.New("events tail needs --redis-stream-addr")
			}
			if err := redisstream.EnsureGroupAtTail(ctx, rs); err != nil {
				return err
			}
			sub, err := redisstream.NewSubscriber(rs)
			if err != nil {
				return err
			}
			defer func() { _ = sub.Close() }()

			topic := rs.Topic
			if topic == "" {
				topic = redisstream.DefaultTopic
			}
			msgs, err := sub.Subscribe(ctx, topic)
			if err != nil {
				return errors.Wrap(err, "subscribe")
			}
			log.Info().Str("stream", topic).Msg("tailing events")

			out := cmd.OutOrStdout()
			for msg := range msgs {
				var ev events.Event
				if err := json.Unmarshal(msg.Payload, &ev); err != nil {
					log.Warn().Err(err).Str("uuid", msg.UUID).Msg("skipping undecodable event")
				} else {
					printEvent(out, ev)
				}
				msg.Ack()
			}
			return nil
		},
	}
}

func printEvent(out io.Writer, ev events.Event) {
	ts := ev.Time.Format("15:04:05.000")
	switch ev.Kind {
	case events.KindTyping:
		_, _ = fmt.Fprintf(out, "%s %-15s %t\n", ts, ev.Kind, ev.Typing)
	case events.KindQuickActions:
		_, _ = fmt.Fprintf(out, "%s %-15s %d actions fallback=%t\n", ts, ev.Kind, len(ev.QuickActions), ev.Fallback)
	case events.KindSuggestions:
		_, _ = fmt.Fprintf(out, "%s %-15s %s: %d suggestions fallback=%t\n", ts, ev.Kind, ev.Category, len(ev.Suggestions), ev.Fallback)
	case events.KindStatistics:
		total := 0
		if ev.Metrics != nil {
			total = ev.Metrics.TotalQueries
		}
		_, _ = fmt.Fprintf(out, "%s %-15s total=%d fallback=%t\n", ts, ev.Kind, total, ev.Fallback)
	default:
		_, _ = fmt.Fprintf(out, "%s %-15s #%d %s\n", ts, ev.Kind, ev.RequestID, ev.Text)
	}
}
