// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisPublisher publishes JSON payloads to Redis channels.
type RedisPublisher struct {
	client redis.UniversalClient
}

// NewRedisClient builds a client from a redis:// URL. It does not connect.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_INVALID_URL").Wrap(err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish serializes payload as JSON and publishes it on channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return oops.Code("EVENT_ENCODE_FAILED").With("channel", channel).Wrap(err)
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return oops.Code("EVENT_PUBLISH_FAILED").With("channel", channel).Wrap(err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_UNAVAILABLE").Wrap(err)
	}
	return nil
}
