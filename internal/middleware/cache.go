package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/triage-api/internal/model"
	"github.com/jwalitptl/triage-api/internal/service/audit"
)

// ResponseCache caches dashboard GET responses briefly so polling clients
// do not hammer the case store. Any write through the cached group flushes
// the whole cache; case priority ordering makes per-key invalidation
// impractical.
type ResponseCache struct {
	store   *gocache.Cache
	auditor *audit.Service
}

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

func NewResponseCache(ttl time.Duration, auditor *audit.Service) *ResponseCache {
	return &ResponseCache{
		store:   gocache.New(ttl, 2*ttl),
		auditor: auditor,
	}
}

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Cache serves GETs from cache and flushes on any other method.
func (rc *ResponseCache) Cache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if c.Writer.Status() < 400 {
				rc.store.Flush()
			}
			return
		}

		key := c.Request.URL.RequestURI()
		if entry, ok := rc.store.Get(key); ok {
			cached := entry.(cachedResponse)
			// the handler is skipped, so its read-access audit entry
			// must be written here; every dashboard read is recorded
			rc.auditRead(c)
			c.Header("X-Cache", "HIT")
			c.Data(cached.status, cached.contentType, cached.body)
			c.Abort()
			return
		}

		w := &cacheWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			rc.store.SetDefault(key, cachedResponse{
				status:      c.Writer.Status(),
				contentType: c.Writer.Header().Get("Content-Type"),
				body:        w.body.Bytes(),
			})
		}
	}
}

// auditRead mirrors the access entry the case service writes on a cache
// miss, keyed off the matched route.
func (rc *ResponseCache) auditRead(c *gin.Context) {
	if rc.auditor == nil {
		return
	}
	ctx := c.Request.Context()
	actorID := ActorID(c)
	opts := &audit.LogOptions{RequestID: c.GetString(ContextRequestID)}

	switch path := c.FullPath(); {
	case strings.HasSuffix(path, "/cases/:id"):
		caseID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return
		}
		rc.auditor.Log(ctx, actorID, caseID, model.AuditActionRead, model.AuditEntityCase, opts)
	case strings.HasSuffix(path, "/users/:id/cases"):
		opts.Metadata = map[string]interface{}{"user_id": c.Param("id")}
		rc.auditor.Log(ctx, actorID, uuid.Nil, model.AuditActionList, model.AuditEntityCase, opts)
	case strings.HasSuffix(path, "/cases"):
		rc.auditor.Log(ctx, actorID, uuid.Nil, model.AuditActionList, model.AuditEntityCase, opts)
	}
}

// Flush drops every cached response.
func (rc *ResponseCache) Flush() {
	rc.store.Flush()
}
