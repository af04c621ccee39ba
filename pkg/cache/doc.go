// Package cache provides Redis-backed caching for client-choice
// payloads.
//
// Crawling the upstream list collection costs a paced pagination run,
// so the serialized choice payload is cached per organization and
// campaign for the configured TTL (default 1800s). Failed choice
// lookups are never cached.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.Key{
//		Organization: "mainline",
//		CampaignID:   "42",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - crawl upstream lists
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - anl_cache_hits_total{layer="redis"} - Cache hits
//   - anl_cache_misses_total - Cache misses
//   - anl_cache_size_bytes{layer="redis"} - Cache size
//   - anl_cache_errors_total{operation} - Cache operation errors
package cache
