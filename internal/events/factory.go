package events

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-slot-scheduling/internal/config"
)

// NewFromConfig builds the publisher selected by EVENTS_BACKEND.
func NewFromConfig(cfg config.Config, rdb *redis.Client, log zerolog.Logger) (Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		if rdb == nil {
			return nil, fmt.Errorf("events backend %q needs a redis client", cfg.EventsBackend)
		}
		return NewRedisPublisher(rdb, cfg.EventsChannel), nil
	case config.EventsKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	case config.EventsNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}
