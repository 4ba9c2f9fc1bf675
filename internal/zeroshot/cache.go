package zeroshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rajasatyajit/civictriage/internal/logger"
	"github.com/rajasatyajit/civictriage/pkg/utils"
)

const cacheKeyPrefix = "zeroshot:v1:"

// CachedClassifier stores results in Redis keyed by text and label set.
// Redis failures are logged and the call falls through to the wrapped
// classifier. Errors are never cached.
type CachedClassifier struct {
	next Classifier
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedClassifier wraps next. A nil client disables caching.
func NewCachedClassifier(next Classifier, rdb *redis.Client, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(text string, labels []string) string {
	parts := make([]string, 0, len(labels)+1)
	parts = append(parts, text)
	parts = append(parts, labels...)
	return cacheKeyPrefix + utils.HashParts(parts...)
}

// Classify implements Classifier.
func (c *CachedClassifier) Classify(ctx context.Context, text string, labels []string) (Result, error) {
	if c.rdb == nil {
		return c.next.Classify(ctx, text, labels)
	}

	key := cacheKey(text, labels)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Result
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		logger.Warn("Discarding unreadable classifier cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("Classifier cache read failed", "error", err)
	}

	res, err := c.next.Classify(ctx, text, labels)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(res); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			logger.Warn("Classifier cache write failed", "error", setErr)
		}
	}
	return res, nil
}
