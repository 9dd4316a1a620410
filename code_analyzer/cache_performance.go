package code_analyzer

import (
	"time"
)

// recordCacheHit increments cache hit counter
func (sc *StructureCache) recordCacheHit() {
	if sc.stats == nil {
		return
	}
	sc.stats.mutex.Lock()
	defer sc.stats.mutex.Unlock()
	sc.stats.TotalRequests++
	sc.stats.CacheHits++
}

// recordCacheMiss increments cache miss counter
func (sc *StructureCache) recordCacheMiss() {
	if sc.stats == nil {
		return
	}
	sc.stats.mutex.Lock()
	defer sc.stats.mutex.Unlock()
	sc.stats.TotalRequests++
	sc.stats.CacheMisses++
}

func (sc *StructureCache) recordRefresh() {
	if sc.stats == nil {
		return
	}
	sc.stats.mutex.Lock()
	defer sc.stats.mutex.Unlock()
	sc.stats.Refreshes++
}

// GetPerformanceStats returns detailed cache performance statistics
func (sc *StructureCache) GetPerformanceStats() map[string]interface{} {
	if sc.stats == nil {
		return map[string]interface{}{
			"total_requests":    0,
			"cache_hits":        0,
			"cache_misses":      0,
			"refreshes":         0,
			"hit_rate_percent":  0.0,
			"miss_rate_percent": 0.0,
			"uptime_seconds":    0.0,
			"uptime_human":      "0s",
		}
	}

	sc.stats.mutex.RLock()
	defer sc.stats.mutex.RUnlock()

	hitRate := 0.0
	missRate := 0.0
	if sc.stats.TotalRequests > 0 {
		hitRate = float64(sc.stats.CacheHits) / float64(sc.stats.TotalRequests) * 100
		missRate = float64(sc.stats.CacheMisses) / float64(sc.stats.TotalRequests) * 100
	}

	uptime := time.Since(sc.stats.LastResetTime)

	return map[string]interface{}{
		"total_requests":    sc.stats.TotalRequests,
		"cache_hits":        sc.stats.CacheHits,
		"cache_misses":      sc.stats.CacheMisses,
		"refreshes":         sc.stats.Refreshes,
		"hit_rate_percent":  hitRate,
		"miss_rate_percent": missRate,
		"uptime_seconds":    uptime.Seconds(),
		"uptime_human":      uptime.Truncate(time.Second).String(),
		"last_reset":        sc.stats.LastResetTime.Format(time.RFC3339),
	}
}

// ResetPerformanceStats resets all performance counters
func (sc *StructureCache) ResetPerformanceStats() {
	if sc.stats == nil {
		return
	}
	sc.stats.mutex.Lock()
	defer sc.stats.mutex.Unlock()

	sc.stats.TotalRequests = 0
	sc.stats.CacheHits = 0
	sc.stats.CacheMisses = 0
	sc.stats.Refreshes = 0
	sc.stats.LastResetTime = time.Now()
}
