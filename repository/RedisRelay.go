package repository

import (
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"
)

const CartChannel = "cart-updated"

// RedisRelay carries cart change signals between processes. Publish goes to
// Redis; Run delivers every received signal, including our own, to local.
type RedisRelay struct {
	rdb   *redis.Client
	local CartNotifier
}

func NewRedisRelay(redis_conn *redis.Client, local CartNotifier) (*RedisRelay, error) {
	if redis_conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if local == nil {
		return nil, errors.New("local notifier must be non-nil")
	}
	return &RedisRelay{
		rdb:   redis_conn,
		local: local,
	}, nil
}

func (r *RedisRelay) NotifyCartChanged(ctx context.Context, cartSessionId string) {
	if err := r.rdb.Publish(ctx, CartChannel, cartSessionId).Err(); err != nil {
		// keep this process consistent even when redis is unreachable
		log.Printf("RedisRelay.NotifyCartChanged: %v", err)
		r.local.NotifyCartChanged(ctx, cartSessionId)
	}
}

// Run blocks until ctx is done. ready, when non-nil, is closed once the
// subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.rdb.Subscribe(ctx, CartChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		log.Printf("RedisRelay.Run: subscribe: %v", err)
		return err
	}
	if ready != nil {
		close(ready)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.local.NotifyCartChanged(ctx, msg.Payload)
		}
	}
}
