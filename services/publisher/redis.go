package publisher

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"casahunt/propertyworker/internal/scraper"
	apperrors "casahunt/propertyworker/pkg/errors"
)

// RedisPublisher implements Publisher using Redis streams. Each source gets
// its own stream so consumers can subscribe per marketplace.
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamMaxLength: streamMaxLength,
	}
}

// PublishListings publishes one source's listings as a single JSON-encoded
// stream entry.
func (p *RedisPublisher) PublishListings(source string, listings []scraper.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	payload, err := json.Marshal(listings)
	if err != nil {
		return apperrors.NewPublisher(source, "encoding listings", err)
	}

	stream := p.streamPrefix + ":" + source
	err = p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"source":   source,
			"count":    len(listings),
			"listings": payload,
		},
	}).Err()
	if err != nil {
		return apperrors.NewPublisher(source, "publishing to "+stream, err)
	}
	return nil
}

// TrimStreams trims all listing streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	pattern := p.streamPrefix + ":*"
	streams, err := p.client.Keys(p.ctx, pattern).Result()
	if err != nil {
		return apperrors.NewPublisher("", "listing streams", err)
	}

	for _, stream := range streams {
		if err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return apperrors.NewPublisher("", "trimming "+stream, err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
