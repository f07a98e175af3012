package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/flux-life/flux-planner/internal/store"
)

// StartSweeper runs a background goroutine that periodically evicts idle
// agents from cache and deletes conversations that stayed unconfirmed for
// staleTTL. A non-positive staleTTL disables the store cleanup. It stops
// when ctx is done.
func StartSweeper(ctx context.Context, cache *MemoryCache, repo store.Repository, interval, staleTTL time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Conversation sweeper started", "interval", interval, "stale_ttl", staleTTL)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, cache, repo, staleTTL)
			case <-ctx.Done():
				slog.Info("Conversation sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, cache *MemoryCache, repo store.Repository, staleTTL time.Duration) {
	if evicted := cache.Sweep(); evicted > 0 {
		slog.Info("Evicted idle conversations from cache", "count", evicted, "remaining", cache.Len())
	}

	if repo == nil || staleTTL <= 0 {
		return
	}
	deleted, err := repo.DeleteStaleConversations(ctx, staleTTL)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Conversation sweeper canceled during cleanup", "error", err)
			return
		}
		slog.Error("Failed to delete stale conversations", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Deleted stale conversations", "count", deleted)
	}
}
