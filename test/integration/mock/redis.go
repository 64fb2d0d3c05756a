package mock

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Redis is an in-memory redis server standing in for the remote replica.
type Redis struct {
	Server *miniredis.Miniredis
	Client *redis.Client
}

// NewRedis starts an in-memory redis server.
func NewRedis() *Redis {
	miniRedis, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	conn := redis.NewClient(
		&redis.Options{
			Addr: miniRedis.Addr(),
		},
	)

	return &Redis{
		Server: miniRedis,
		Client: conn,
	}
}

// URL returns the connection URL of the server.
func (r *Redis) URL() string {
	return "redis://" + r.Server.Addr() + "/0"
}

// ClearRedis removes every key.
func (r *Redis) ClearRedis() error {
	return r.Client.FlushAll(context.TODO()).Err()
}

// Close stops the server.
func (r *Redis) Close() {
	_ = r.Client.Close()
	r.Server.Close()
}
