package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"mpdviz/internal/logger"
)

type entry struct {
	data     []byte
	storedAt time.Time
}

// RenderCache provides a thread-safe, in-memory cache of rendered output
// keyed by the hash of the manifest it was produced from.
type RenderCache struct {
	mutex    sync.RWMutex
	cache    map[string]entry
	logger   logger.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	// Control
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a RenderCache whose entries expire after ttl.
func New(log logger.Logger, ttl time.Duration) *RenderCache {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	interval := ttl / 2
	if interval <= 0 || interval > 10*time.Second {
		interval = 10 * time.Second
	}
	return &RenderCache{
		cache:    make(map[string]entry),
		logger:   log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Key derives a cache key from a manifest body and a variant tag such as "png".
func Key(variant string, body []byte) string {
	sum := sha256.Sum256(body)
	return variant + ":" + hex.EncodeToString(sum[:])
}

// Start begins the background eviction worker.
func (rc *RenderCache) Start() {
	rc.logger.Infof("Starting render cache eviction worker...")
	go rc.evictionWorker()
}

// Stop gracefully shuts down the eviction worker.
func (rc *RenderCache) Stop() {
	rc.logger.Infof("Stopping render cache eviction worker...")
	rc.cancel()
}

// Set adds rendered output to the cache.
func (rc *RenderCache) Set(key string, data []byte) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	rc.cache[key] = entry{data: data, storedAt: rc.now()}
	rc.logger.Debugf("Cached render: %s, size: %d bytes", key, len(data))
}

// Get retrieves rendered output from the cache. Expired entries are misses
// even before the worker removes them.
func (rc *RenderCache) Get(key string) ([]byte, bool) {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	e, found := rc.cache[key]
	if !found || rc.expired(e) {
		return nil, false
	}
	return e.data, true
}

// Len reports the number of cached entries.
func (rc *RenderCache) Len() int {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	return len(rc.cache)
}

func (rc *RenderCache) expired(e entry) bool {
	return rc.ttl > 0 && rc.now().Sub(e.storedAt) >= rc.ttl
}

// evictionWorker runs in the background to clean up expired entries.
func (rc *RenderCache) evictionWorker() {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rc.ctx.Done():
			rc.logger.Infof("Eviction worker stopped.")
			return
		case <-ticker.C:
			rc.runEviction()
		}
	}
}

func (rc *RenderCache) runEviction() {
	rc.logger.Debugf("Running cache eviction...")

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	evictedCount := 0
	for key, e := range rc.cache {
		if rc.expired(e) {
			delete(rc.cache, key)
			evictedCount++
		}
	}

	if evictedCount > 0 {
		rc.logger.Infof("Evicted %d renders from cache. Current cache size: %d entries.", evictedCount, len(rc.cache))
	} else {
		rc.logger.Debugf("No renders to evict. Current cache size: %d entries.", len(rc.cache))
	}
}
