package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not-a-redis-url")
	require.Error(t, err)
}

func TestNewParsesRedisURL(t *testing.T) {
	c, err := New("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestLimiterFailsOpenWithoutStore(t *testing.T) {
	l := NewLimiter(nil, 1, time.Minute)
	assert.True(t, l.Allow(context.Background(), "anyone"))
	assert.True(t, l.Allow(context.Background(), "anyone"))
}
