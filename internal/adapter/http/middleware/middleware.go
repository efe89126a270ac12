package middleware

import (
	"net/http"
	"strings"
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"
	"qr-loyalty-backend/pkg/apperror"
	"qr-loyalty-backend/pkg/logger"
	"qr-loyalty-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxAccountID = "account_id"
	CtxRole      = "role"
	CtxRequestID = "request_id"
)

// RequestID propagates the caller's X-Request-ID or mints a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// JWTAuth validates the bearer access token and reloads the account so that a
// blacklist or deactivation takes effect on the next request.
func JWTAuth(tokenSvc ports.TokenService, accounts ports.AccountRepository, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.ValidateAccess(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		account, err := accounts.GetByID(c.Request.Context(), claims.AccountID)
		if err != nil {
			log.Error().Err(err).Str("account_id", claims.AccountID.String()).Msg("failed to load account")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if account == nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		if account.Blacklisted {
			reason := ""
			if account.BlacklistReason != nil {
				reason = *account.BlacklistReason
			}
			response.Error(c, apperror.ErrBlacklisted(reason))
			c.Abort()
			return
		}
		if !account.Active {
			response.Error(c, apperror.ErrAccountDisabled())
			c.Abort()
			return
		}

		c.Set(CtxAccountID, account.ID)
		c.Set(CtxRole, account.Role)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
// Must run after JWTAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxRole)
		r, ok := role.(domain.Role)
		if ok {
			for _, allowed := range roles {
				if r == allowed {
					c.Next()
					return
				}
			}
		}
		response.Error(c, apperror.ErrAccessDenied())
		c.Abort()
	}
}

// AccountID returns the authenticated account id set by JWTAuth.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(CtxAccountID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequestLogger logs every HTTP request and stores a request-scoped logger
// in the request context for the services to pick up. Must run after RequestID.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.WithRequestID(c.Request.Context(), log, c.GetString(CtxRequestID))
		c.Request = c.Request.WithContext(ctx)
		reqLog := logger.FromContext(ctx, log)

		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := reqLog.Info()
		if status >= http.StatusInternalServerError {
			event = reqLog.Error()
		} else if status >= http.StatusBadRequest {
			event = reqLog.Warn()
		}

		if id, ok := AccountID(c); ok {
			event = event.Str("account_id", id.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorResponse{
					ErrorCode: "SYS_001",
					Message:   "Internal server error",
					RequestID: c.GetString(CtxRequestID),
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			}
		}()
		c.Next()
	}
}
