package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewClient(ctx, Options{Addr: "127.0.0.1:1"}, nil)
	require.ErrorContains(t, err, "redis ping")
}

func TestNewClient(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	req := require.New(t)
	c, err := NewClient(context.Background(), Options{Addr: addr}, nil)
	req.NoError(err)
	defer c.Close()
	req.True(c.Healthy(context.Background()))
}
