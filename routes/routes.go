package routes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"localevents/config"
	"localevents/metrics"
	"localevents/middlewares"
	"localevents/notify"
	"localevents/services"
	"localevents/utils"
)

// Options carries everything the handlers need. Nothing is read from package
// globals.
type Options struct {
	Accounts   *services.AccountService
	Events     *services.EventService
	Moderation *services.ModerationService
	Resets     *services.PasswordResetService
	Comments   *services.CommentService
	Deliveries notify.DeliveryLog

	Tokens    *utils.TokenService
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	CacheTTL  time.Duration

	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
	// Health pings the backing stores.
	Health func(ctx context.Context) error
}

type deps struct {
	Options
	inv *utils.CacheInvalidator
}

// RegisterRoutes mounts the API under /api. The returned func stops the
// janitors of the in-process rate limiters.
func RegisterRoutes(server *gin.Engine, o Options) (stop func()) {
	if o.Metrics == nil {
		o.Metrics = metrics.Nop
	}
	d := &deps{Options: o, inv: utils.NewCacheInvalidator(o.Redis)}
	rl := o.RateLimit

	server.Use(middlewares.RequestLogger(o.Metrics))

	// ① global per-IP limit
	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     rl.GlobalRPS,
		Burst:   rl.GlobalBurst,
		IdleTTL: 3 * time.Minute,
	})
	server.Use(globalLimiter.Middleware(func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}))

	api := server.Group("/api")
	api.GET("/health", d.health)
	if o.Gatherer != nil {
		api.GET("/metrics", gin.WrapH(metrics.Handler(o.Gatherer)))
	}

	// ② stricter per-IP limit on credential endpoints
	authLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     rl.AuthRPS,
		Burst:   rl.AuthBurst,
		IdleTTL: 10 * time.Minute,
	})
	byIP := func(prefix string) gin.HandlerFunc {
		return authLimiter.Middleware(func(c *gin.Context) string { return prefix + c.ClientIP() })
	}

	// public reads go through the response cache
	public := api.Group("", middlewares.ResponseCache(o.Redis, o.CacheTTL))
	public.GET("/events", d.listEvents)
	public.GET("/events/:id", d.getEvent)
	public.GET("/events/:id/comments", d.listComments)

	users := api.Group("/users")
	users.POST("/signup", byIP("signup:"), d.signup)
	users.POST("/login", byIP("login:"), d.login)
	users.POST("/reset", byIP("reset:"), d.requestReset)
	users.GET("/reset/:token", d.resolveResetToken)
	users.POST("/newpassword", byIP("newpassword:"), d.consumeResetToken)
	users.GET("/:id", d.getUser)

	// ③ authenticated group: bearer token, then per-user limit
	userLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     rl.UserRPS,
		Burst:   rl.UserBurst,
		IdleTTL: 10 * time.Minute,
	})
	auth := api.Group("", middlewares.Authenticate(o.Tokens))
	auth.Use(userLimiter.Middleware(func(c *gin.Context) string {
		return "u:" + strconv.FormatInt(c.GetInt64(middlewares.UserIDKey), 10)
	}))

	// daily report quota per user
	reportQuota := middlewares.Quota(o.Redis, middlewares.QuotaRule{
		Limit:  rl.ReportsPerDay,
		Window: 24 * time.Hour,
		KeyFn: func(c *gin.Context) string {
			uid := c.GetInt64(middlewares.UserIDKey)
			if uid == 0 {
				return ""
			}
			return fmt.Sprintf("quota:reports:user:%d:day", uid)
		},
	})

	auth.POST("/events", d.createEvent)
	auth.PATCH("/events/:id", d.updateEvent)
	auth.DELETE("/events/:id", d.deleteEvent)
	auth.POST("/events/report/:id", reportQuota, d.reportEvent)
	auth.POST("/events/:id/comments", d.addComment)
	auth.DELETE("/events/:id/comments/:commentId", d.deleteComment)
	auth.PATCH("/users/:id/password", d.changePassword)
	auth.GET("/users/:id/notifications", d.listNotifications)

	return func() {
		globalLimiter.Stop()
		authLimiter.Stop()
		userLimiter.Stop()
	}
}

// GET /api/health
func (d *deps) health(c *gin.Context) {
	if d.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.Health(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// purgeEvent drops the cached list and the cached reads of one event.
// Cache failures only cost freshness until the TTL runs out.
func (d *deps) purgeEvent(c *gin.Context, id string) {
	ctx := c.Request.Context()
	if err := d.inv.PurgeEventsList(ctx); err != nil {
		_ = c.Error(err)
	}
	if id == "" {
		return
	}
	if err := d.inv.PurgeEventItem(ctx, id); err != nil {
		_ = c.Error(err)
	}
}
