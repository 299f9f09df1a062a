package redis

import (
	"context"
	"net"
	"time"

	"github.com/pscheid92/chatrelay/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// metricsHook instruments the small command surface the broker uses:
// publish, subscribe, and the readiness ping.
type metricsHook struct{}

var _ redis.Hook = (*metricsHook)(nil)

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			metrics.RedisDialErrors.Inc()
		}
		return conn, err
	}
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)

		// redis.Nil is a miss, not a failure
		status := "ok"
		if err != nil && err != redis.Nil {
			status = "error"
		}

		metrics.RedisCommands.WithLabelValues(cmd.Name(), status).Inc()
		metrics.RedisCommandDuration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())

		return err
	}
}

// ProcessPipelineHook satisfies redis.Hook unchanged; the broker never
// pipelines commands.
func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
