package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Context keys shared with pkg/response, which merges them into the envelope.
const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "response_started_at"
	cacheHitMetaName = "cache_hit"
)

// WithResponseMeta prepares per-request envelope metadata and stamps the request start.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit flags whether an attendance report came from redis.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitMetaName, hit)
}

// SetMeta attaches a single metadata entry to the pending response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, ok := metaFrom(c)
	if !ok {
		meta = map[string]interface{}{}
		c.Set(responseMetaKey, meta)
	}
	meta[key] = value
}

// ExtractMeta returns the metadata collected so far, or nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := metaFrom(c)
	return meta
}

func metaFrom(c *gin.Context) (map[string]interface{}, bool) {
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil, false
	}
	meta, ok := value.(map[string]interface{})
	return meta, ok
}
