// Package directory caches student directory lookups in Redis.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"eventattend/internal/attendance"
	"eventattend/internal/metrics"
)

const keyPrefix = "directory:student:"

// Cache is a read-through attendance.Directory. Only listed students are
// cached; a Redis failure degrades to a direct lookup.
type Cache struct {
	next attendance.Directory
	rdb  *redis.Client
	ttl  time.Duration
	log  logrus.FieldLogger
}

var _ attendance.Directory = (*Cache)(nil)

// NewCache wraps next with a Redis cache whose entries live for ttl.
func NewCache(next attendance.Directory, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, log: log}
}

// LookupStudent serves from Redis when possible and fills it on a miss.
func (c *Cache) LookupStudent(ctx context.Context, studentID string) (*attendance.Student, error) {
	key := keyPrefix + studentID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var st attendance.Student
		if jerr := json.Unmarshal(raw, &st); jerr == nil {
			metrics.DirectoryCacheLookups.WithLabelValues("hit").Inc()
			return &st, nil
		}
		c.log.WithField("key", key).Warn("dropping undecodable directory cache entry")
		_ = c.rdb.Del(ctx, key).Err()
		metrics.DirectoryCacheLookups.WithLabelValues("miss").Inc()
	case errors.Is(err, redis.Nil):
		metrics.DirectoryCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.DirectoryCacheLookups.WithLabelValues("error").Inc()
		c.log.WithError(err).Debug("directory cache unavailable")
	}

	st, err := c.next.LookupStudent(ctx, studentID)
	if err != nil || st == nil {
		return st, err
	}
	if data, jerr := json.Marshal(st); jerr == nil {
		if serr := c.rdb.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.log.WithError(serr).Debug("directory cache fill failed")
		}
	}
	return st, nil
}
