// Package redis implements Redis caching for the gamification service.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/misis-lms/gamification-service/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD PAGE CACHE
// Implements course.LeaderboardCache. Each ranked page is cached as one JSON
// value keyed by (course, group, limit, offset) so a hit serves the page
// without touching PostgreSQL. All pages of a course share a key prefix and
// are invalidated together after a write.
// ══════════════════════════════════════════════════════════════════════════════

// cachedPage is the stored shape of one leaderboard page.
type cachedPage struct {
	Rows  []course.LeaderboardRow `json:"rows"`
	Total int                     `json:"total"`
}

// LeaderboardCache caches ranked leaderboard pages in Redis.
type LeaderboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewLeaderboardCache creates a new LeaderboardCache instance.
// A non-positive ttl falls back to TTLLeaderboardCache.
func NewLeaderboardCache(cache *Cache, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}
	return &LeaderboardCache{cache: cache, ttl: ttl}
}

// GetPage returns a cached page and its total, or ok=false on miss.
func (l *LeaderboardCache) GetPage(ctx context.Context, courseRef, groupRef string, limit, offset int) ([]course.LeaderboardRow, int, bool, error) {
	var page cachedPage
	err := l.cache.Get(ctx, pageKey(courseRef, groupRef, limit, offset), &page)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}

	return page.Rows, page.Total, true, nil
}

// PutPage caches a page with its total.
func (l *LeaderboardCache) PutPage(ctx context.Context, courseRef, groupRef string, limit, offset int, rows []course.LeaderboardRow, total int) error {
	page := cachedPage{Rows: rows, Total: total}
	return l.cache.Set(ctx, pageKey(courseRef, groupRef, limit, offset), page, l.ttl)
}

// Invalidate drops every cached page of a course after a write.
func (l *LeaderboardCache) Invalidate(ctx context.Context, courseRef string) error {
	return l.cache.DeleteByPattern(ctx, PrefixLeaderboard+courseRef+":*")
}

// pageKey builds the cache key for one page. An empty group is cached under
// the "all" segment so course-wide and group-scoped pages never collide.
func pageKey(courseRef, groupRef string, limit, offset int) string {
	if groupRef == "" {
		groupRef = "all"
	}
	return fmt.Sprintf("%s%s:%s:%d:%d", PrefixLeaderboard, courseRef, groupRef, limit, offset)
}
