package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"casahunt/propertyworker/logger"
)

const blockKeyPrefix = "source_block:"

// BlockSource marks a listing source as rate limited so fetches skip it
// until the block expires.
func BlockSource(c CacheService, source string, d time.Duration) {
	if c == nil {
		return
	}
	if err := c.Set(blockKeyPrefix+source, []byte("1"), d); err != nil {
		logger.Warn("failed to set block for source %s: %v", source, err)
	}
}

// IsBlocked reports whether a source is currently rate limited. Cache
// errors other than a miss count as not blocked; a flaky cache must not
// stop fetching.
func IsBlocked(c CacheService, source string) bool {
	if c == nil {
		return false
	}
	_, err := c.Get(blockKeyPrefix + source)
	if err == nil {
		return true
	}
	if err != memcache.ErrCacheMiss {
		logger.Warn("block lookup failed for source %s: %v", source, err)
	}
	return false
}

// UnblockSource clears a source block, used when a source recovers early.
func UnblockSource(c CacheService, source string) {
	if c == nil {
		return
	}
	if err := c.Delete(blockKeyPrefix + source); err != nil && err != memcache.ErrCacheMiss {
		logger.Warn("failed to clear block for source %s: %v", source, err)
	}
}
