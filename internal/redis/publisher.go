package redisclient

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/careportal/internal/portal"
)

// Publisher forwards store mutation events to a Redis pub/sub channel
// so that out-of-process UIs can raise notifications.
type Publisher struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger
}

func NewPublisher(client *redis.Client, channel string, log zerolog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "publisher").Str("channel", channel).Logger(),
	}
}

// Run subscribes to bus and publishes every event until ctx is done.
// Publish failures are logged and the event is dropped.
func (p *Publisher) Run(ctx context.Context, bus *portal.Bus) {
	events, cancel := bus.Subscribe(256)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.publish(ctx, ev)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev portal.MutationEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("op", ev.Op).Msg("encode event")
		return
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		p.log.Warn().Err(err).Str("op", ev.Op).Msg("publish event")
	}
}
