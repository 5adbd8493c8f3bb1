package middlewares

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"localevents/logger"
	"localevents/utils"
)

type cachedBody struct {
	Status int
	Header map[string][]string
	Body   []byte
}

// sha1Hex keeps Redis keys short whatever the query string.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CacheKeyFrom returns the Redis key for a cacheable request, or "" when the
// request must not be cached. Only public event reads are cached; item keys
// carry the raw event id so utils.CacheInvalidator can purge one event.
func CacheKeyFrom(c *gin.Context) string {
	if c.Request.Method != "GET" {
		return ""
	}
	path := c.FullPath()
	rawq := c.Request.URL.RawQuery

	switch {
	case strings.HasSuffix(path, "/events/:id"), strings.HasSuffix(path, "/events/:id/comments"):
		return utils.EventItemKey(c.Param("id"), sha1Hex(path+"|"+rawq))
	case strings.HasSuffix(path, "/events"):
		return utils.EventListKeyPrefix + sha1Hex(path+"|"+rawq)
	default:
		return ""
	}
}

// ResponseCache serves cached 2xx bodies and sets X-Cache to HIT or MISS.
// Redis errors fall through to the handler.
func ResponseCache(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CacheKeyFrom(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		if b, err := rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var hit cachedBody
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&hit); err == nil {
				for k, vals := range hit.Header {
					for _, v := range vals {
						c.Writer.Header().Add(k, v)
					}
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Status(hit.Status)
				_, _ = c.Writer.Write(hit.Body)
				c.Abort()
				return
			}
		}

		// Set before the handler writes, or the header would be too late.
		c.Writer.Header().Set("X-Cache", "MISS")
		bw := &bufferedWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = bw
		c.Next()

		status := bw.Status()
		if status < 200 || status >= 300 {
			return
		}
		header := c.Writer.Header().Clone()
		header.Del("X-Cache")
		var o bytes.Buffer
		if err := gob.NewEncoder(&o).Encode(cachedBody{Status: status, Header: header, Body: bw.buf.Bytes()}); err != nil {
			return
		}
		if err := rdb.Set(ctx, key, o.Bytes(), ttl).Err(); err != nil {
			logger.Warn("response cache write failed", logger.Fields{"key": key, "error": err.Error()})
		}
	}
}

// bufferedWriter copies the body aside while writing it through.
type bufferedWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
