// Package redisstream mirrors widget UI events into a Redis Stream so other
// processes can follow a session.
package redisstream

import "strings"

const (
	DefaultTopic    = "chatwidget-events"
	DefaultGroup    = "chatwidget-tail"
	DefaultConsumer = "tail-1"
)

// Settings holds Redis Streams transport configuration for watermill.
type Settings struct {
	Addr     string `mapstructure:"redis-stream-addr"`
	Topic    string `mapstructure:"redis-stream-topic"`
	Group    string `mapstructure:"redis-stream-group"`
	Consumer string `mapstructure:"redis-stream-consumer"`
}

// Enabled reports whether an address is configured.
func (s Settings) Enabled() bool {
	return strings.TrimSpace(s.Addr) != ""
}

func (s Settings) withDefaults() Settings {
	if s.Topic == "" {
		s.Topic = DefaultTopic
	}
	if s.Group == "" {
		s.Group = DefaultGroup
	}
	if s.Consumer == "" {
		s.Consumer = DefaultConsumer
	}
	return s
}
