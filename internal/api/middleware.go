package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"psy-booking-bot/internal/apperrors"
)

const (
	requestIDKey   = "request_id"
	adminIDKey     = "admin_id"
	initDataHeader = "X-Telegram-Init-Data"
)

// RequestID tags every request with an id, reusing the caller's one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Logger writes one line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("request")
	}
}

// Recovery turns panics into a 500 JSON body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Str("request_id", c.GetString(requestIDKey)).
			Str("path", c.Request.URL.Path).
			Str("panic", fmt.Sprint(recovered)).
			Str("stack", string(debug.Stack())).
			Msg("panic recovered")
		respondError(c, apperrors.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}

// CORS allows the admin panel origin; "*" allows any.
func CORS(origin string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", initDataHeader, "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(origin, ",")
	}
	return cors.New(cfg)
}

// AdminAuth accepts only requests carrying valid Mini App init data of an
// admin. The init data comes in the X-Telegram-Init-Data header or the
// init_data query parameter.
func AdminAuth(token string, ttl time.Duration, isAdmin func(int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(initDataHeader)
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			abortError(c, apperrors.Unauthorized("missing init data"))
			return
		}
		if err := initdata.Validate(raw, token, ttl); err != nil {
			abortError(c, apperrors.Wrap(err, apperrors.CodeUnauthorized, "invalid init data"))
			return
		}
		data, err := initdata.Parse(raw)
		if err != nil {
			abortError(c, apperrors.Wrap(err, apperrors.CodeUnauthorized, "invalid init data"))
			return
		}
		if data.User.ID == 0 || !isAdmin(data.User.ID) {
			abortError(c, apperrors.Unauthorized("not an admin"))
			return
		}
		c.Set(adminIDKey, data.User.ID)
		c.Next()
	}
}
