package redis

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/chatrelay/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHook_CountsCommandOutcomes(t *testing.T) {
	hook := metricsHook{}
	ctx := context.Background()
	cmd := redis.NewStringCmd(ctx, "publish")

	okCounter := metrics.RedisCommands.WithLabelValues("publish", "ok")
	errCounter := metrics.RedisCommands.WithLabelValues("publish", "error")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	success := hook.ProcessHook(func(context.Context, redis.Cmder) error {
		return nil
	})
	require.NoError(t, success(ctx, cmd))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(okCounter))

	failure := hook.ProcessHook(func(context.Context, redis.Cmder) error {
		return errors.New("connection reset")
	})
	require.Error(t, failure(ctx, cmd))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(errCounter))
}

func TestMetricsHook_TreatsNilReplyAsSuccess(t *testing.T) {
	hook := metricsHook{}
	ctx := context.Background()
	cmd := redis.NewStringCmd(ctx, "get")

	okCounter := metrics.RedisCommands.WithLabelValues("get", "ok")
	errCounter := metrics.RedisCommands.WithLabelValues("get", "error")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	miss := hook.ProcessHook(func(context.Context, redis.Cmder) error {
		return redis.Nil
	})
	assert.ErrorIs(t, miss(ctx, cmd), redis.Nil)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(okCounter))
	assert.Equal(t, errBefore, testutil.ToFloat64(errCounter))
}

func TestMetricsHook_CountsDialFailures(t *testing.T) {
	hook := metricsHook{}

	before := testutil.ToFloat64(metrics.RedisDialErrors)
	dial := hook.DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})

	_, err := dial(context.Background(), "tcp", "127.0.0.1:6379")
	require.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RedisDialErrors))
}
