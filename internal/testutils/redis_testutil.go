package testutils

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
)

// RunTestRedis starts a throwaway redis container and returns its address.
func RunTestRedis(t *testing.T, logger log.Logger) (string, error) {
	t.Helper()

	pool, err := newPool()
	if err != nil {
		return "", fmt.Errorf("new test redis: %w", err)
	}

	resource, err := runContainer(t, pool, &dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, logger)
	if err != nil {
		return "", fmt.Errorf("new test redis: %w", err)
	}

	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))
	pool.MaxWait = 30 * time.Second
	if err := pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		return client.Ping(context.Background()).Err()
	}); err != nil {
		return "", fmt.Errorf("could not connect to docker: %w", err)
	}

	return addr, nil
}
