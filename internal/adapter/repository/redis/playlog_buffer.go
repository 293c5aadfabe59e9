package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/arimusic/playledger/internal/domain"
)

// PlayLogBuffer implements domain.PlayLogBuffer on Redis lists. Appends are
// RPUSH, so append order within a key is the list order; a drain is an
// LRANGE + DEL inside MULTI/EXEC, so no record can be both returned and left
// for a subsequent drain, and two concurrent drains cannot both see the same
// records.
//
// When Redis is unreachable, appends fall back to the file WAL (if one is
// configured) and a health-check loop replays the WAL once the connection
// recovers.
type PlayLogBuffer struct {
	client      *redis.Client
	logger      *slog.Logger
	wal         domain.WALRepository
	isAvailable atomic.Bool
}

// NewPlayLogBuffer creates a new Redis-backed buffer. The WAL is optional;
// pass nil if not needed (e.g. for the sealer worker).
func NewPlayLogBuffer(client *redis.Client, logger *slog.Logger, wal domain.WALRepository) *PlayLogBuffer {
	b := &PlayLogBuffer{
		client: client,
		logger: logger.With("component", "redis_buffer"),
		wal:    wal,
	}
	b.isAvailable.Store(true)
	return b
}

// StartHealthCheck starts a background goroutine that monitors Redis
// connectivity and triggers WAL replay on recovery.
func (b *PlayLogBuffer) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if b.wal == nil {
		b.logger.Info("WAL is not configured, skipping health check/replayer")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("starting Redis health check and WAL replayer")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping Redis health check")
			return
		case <-ticker.C:
			err := b.client.Ping(ctx).Err()
			if err != nil {
				if b.isAvailable.CompareAndSwap(true, false) {
					b.logger.Error("Redis connection lost", "error", err)
				}
			} else {
				if b.isAvailable.CompareAndSwap(false, true) {
					b.logger.Info("Redis connection recovered")
					if err := b.ReplayWAL(ctx); err != nil {
						b.logger.Error("failed to replay WAL after Redis recovery", "error", err)
						b.isAvailable.Store(false)
					}
				}
			}
		}
	}
}

// ReplayWAL replays buffered entries from the WAL into Redis and truncates
// the WAL on success.
func (b *PlayLogBuffer) ReplayWAL(ctx context.Context) error {
	b.logger.Info("attempting to replay WAL to Redis")
	handler := func(entry domain.BufferedLog) error {
		return b.appendToRedis(ctx, entry.Key, entry.Log)
	}

	if err := b.wal.Replay(ctx, handler); err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}
	if err := b.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after successful replay: %w", err)
	}

	b.logger.Info("WAL replay to Redis completed successfully")
	return nil
}

// Append adds one record to the list under key, falling back to the WAL when
// Redis is unavailable.
func (b *PlayLogBuffer) Append(ctx context.Context, key string, log domain.PlayLog) error {
	if !b.isAvailable.Load() {
		if b.wal == nil {
			return domain.ErrBufferUnavailable
		}
		b.logger.Warn("Redis is unavailable, writing to WAL", "key", key)
		return b.wal.Write(ctx, domain.BufferedLog{Key: key, Log: log})
	}

	err := b.appendToRedis(ctx, key, log)
	if err != nil {
		if isNetworkError(err) {
			if b.isAvailable.CompareAndSwap(true, false) {
				b.logger.Error("Redis connection lost during append", "error", err)
			}
			if b.wal == nil {
				return fmt.Errorf("%w: %v", domain.ErrBufferUnavailable, err)
			}
			b.logger.Warn("Redis became unavailable, writing to WAL", "key", key)
			return b.wal.Write(ctx, domain.BufferedLog{Key: key, Log: log})
		}
		return err
	}
	return nil
}

func (b *PlayLogBuffer) appendToRedis(ctx context.Context, key string, log domain.PlayLog) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal play log: %w", err)
	}
	if err := b.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to RPUSH to redis list: %w", err)
	}
	return nil
}

// Drain atomically reads and clears a key. Records come back in append order.
func (b *PlayLogBuffer) Drain(ctx context.Context, key string) ([]domain.PlayLog, error) {
	var rangeCmd *redis.StringSliceCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		if isNetworkError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrBufferUnavailable, err)
		}
		return nil, fmt.Errorf("failed to drain redis list: %w", err)
	}

	raw := rangeCmd.Val()
	logs := make([]domain.PlayLog, 0, len(raw))
	for _, item := range raw {
		var log domain.PlayLog
		if err := json.Unmarshal([]byte(item), &log); err != nil {
			b.logger.Warn("invalid record in buffer, skipping", "key", key, "error", err)
			continue
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// Len reports the number of records currently buffered under a key.
func (b *PlayLogBuffer) Len(ctx context.Context, key string) (int64, error) {
	n, err := b.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to LLEN redis list: %w", err)
	}
	return n, nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
